// Package nonprofit layers caching and financial summaries over the
// ProPublica client.
package nonprofit

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/dds-finder/internal/cache"
	"github.com/sells-group/dds-finder/internal/config"
	"github.com/sells-group/dds-finder/internal/model"
	"github.com/sells-group/dds-finder/pkg/propublica"
)

// ErrNoFiling is returned when no filing with a PDF matches the request.
var ErrNoFiling = eris.New("nonprofit: no filing pdf available")

// TTLs controls how long each kind of response is cached.
type TTLs struct {
	Search time.Duration
	Org    time.Duration
	PDF    time.Duration
}

// TTLsFromConfig reads cache lifetimes from the ProPublica settings.
func TTLsFromConfig(c config.ProPublicaConfig) TTLs {
	return TTLs{
		Search: time.Duration(c.SearchTTLHours) * time.Hour,
		Org:    time.Duration(c.OrgTTLHours) * time.Hour,
		PDF:    time.Duration(c.PDFTTLHours) * time.Hour,
	}
}

// Service answers nonprofit lookups, caching every upstream response.
type Service struct {
	client propublica.Client
	loader *cache.Loader
	ttls   TTLs
}

// NewService creates a Service.
func NewService(client propublica.Client, loader *cache.Loader, ttls TTLs) *Service {
	return &Service{client: client, loader: loader, ttls: ttls}
}

// Search finds organizations by name within a state.
func (s *Service) Search(ctx context.Context, query, state string, page int) ([]model.Nonprofit, error) {
	key := "search:" + strings.ToLower(query) + ":" + state + ":" + strconv.Itoa(page)
	return cache.GetOrLoad(ctx, s.loader, key, s.ttls.Search, func(ctx context.Context) ([]model.Nonprofit, error) {
		return s.client.Search(ctx, query, state, page)
	})
}

// Details returns an organization and its filings. Missing organizations
// return propublica.ErrNotFound.
func (s *Service) Details(ctx context.Context, ein string) (*model.NonprofitDetails, error) {
	ein = propublica.NormalizeEIN(ein)
	return cache.GetOrLoad(ctx, s.loader, "org:"+ein, s.ttls.Org, func(ctx context.Context) (*model.NonprofitDetails, error) {
		return s.client.Organization(ctx, ein)
	})
}

// SelectFiling picks the filing for year, or the newest filing with a PDF
// when year is zero.
func SelectFiling(filings []model.Filing, year int) (model.Filing, bool) {
	if year != 0 {
		want := strconv.Itoa(year)
		for _, f := range filings {
			if f.TaxPeriod == want {
				return f, f.PDFURL != ""
			}
		}
		return model.Filing{}, false
	}
	for _, f := range filings {
		if f.PDFURL != "" {
			return f, true
		}
	}
	return model.Filing{}, false
}

// Form990PDF downloads the Form 990 for year, or the most recent filing
// with a PDF when year is zero. The chosen filing is returned with it.
func (s *Service) Form990PDF(ctx context.Context, ein string, year int) ([]byte, model.Filing, error) {
	ein = propublica.NormalizeEIN(ein)

	details, err := s.Details(ctx, ein)
	if err != nil {
		return nil, model.Filing{}, err
	}

	filing, ok := SelectFiling(details.Filings, year)
	if !ok {
		zap.L().Warn("nonprofit: no filing pdf",
			zap.String("ein", ein),
			zap.Int("year", year),
		)
		return nil, model.Filing{}, ErrNoFiling
	}

	key := "pdf:" + ein + ":" + filing.TaxPeriod
	data, err := cache.GetOrLoad(ctx, s.loader, key, s.ttls.PDF, func(ctx context.Context) ([]byte, error) {
		return s.client.DownloadPDF(ctx, filing.PDFURL)
	})
	if err != nil {
		return nil, model.Filing{}, err
	}
	return data, filing, nil
}

// FinancialHistory returns up to years of financial data, newest first.
func (s *Service) FinancialHistory(ctx context.Context, ein string, years int) ([]model.FinancialYear, error) {
	details, err := s.Details(ctx, ein)
	if err != nil {
		return nil, err
	}

	filings := details.Filings
	if years >= 0 && years < len(filings) {
		filings = filings[:years]
	}

	out := make([]model.FinancialYear, 0, len(filings))
	for _, f := range filings {
		out = append(out, model.FinancialYearFromFiling(f))
	}

	zap.L().Info("nonprofit: financial history",
		zap.String("ein", details.EIN),
		zap.String("name", details.Name),
		zap.Int("years", len(out)),
	)
	return out, nil
}

// Summary is an organization with its formatted financial history.
type Summary struct {
	EIN              string     `json:"ein"`
	Name             string     `json:"name"`
	City             string     `json:"city"`
	State            string     `json:"state"`
	NTEECode         string     `json:"ntee_code,omitempty"`
	FinancialHistory []YearView `json:"financialHistory"`
	YearsAvailable   int        `json:"yearsAvailable"`
	LatestYear       *string    `json:"latestYear"`
	ProPublicaURL    string     `json:"propublicaUrl"`
}

// Summary builds the financial summary for an organization over up to
// years of history.
func (s *Service) Summary(ctx context.Context, ein string, years int) (*Summary, error) {
	ein = propublica.NormalizeEIN(ein)

	details, err := s.Details(ctx, ein)
	if err != nil {
		return nil, err
	}
	history, err := s.FinancialHistory(ctx, ein, years)
	if err != nil {
		return nil, err
	}

	sum := &Summary{
		EIN:              details.EIN,
		Name:             details.Name,
		City:             details.City,
		State:            details.State,
		NTEECode:         details.NTEECode,
		FinancialHistory: make([]YearView, 0, len(history)),
		YearsAvailable:   len(history),
		ProPublicaURL:    propublica.OrganizationURL(ein),
	}
	for _, fy := range history {
		sum.FinancialHistory = append(sum.FinancialHistory, NewYearView(fy))
	}
	if len(history) > 0 {
		sum.LatestYear = &history[0].Year
	}
	return sum, nil
}
