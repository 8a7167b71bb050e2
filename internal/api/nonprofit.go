package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/dds-finder/internal/dds"
	"github.com/sells-group/dds-finder/internal/match"
	"github.com/sells-group/dds-finder/internal/model"
	"github.com/sells-group/dds-finder/internal/nonprofit"
	"github.com/sells-group/dds-finder/pkg/propublica"
)

type unifiedResult struct {
	EIN           string               `json:"ein"`
	Name          string               `json:"name"`
	City          string               `json:"city"`
	State         string               `json:"state"`
	NTEECode      string               `json:"ntee_code,omitempty"`
	ProPublicaURL string               `json:"propublica_url"`
	DDSProvider   *model.ProviderMatch `json:"dds_provider"`
	HasForm990    bool                 `json:"has_form990"`
}

func (s *Server) handleUnifiedSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if len([]rune(q)) < 2 {
		writeError(w, http.StatusBadRequest, "q must be at least 2 characters")
		return
	}
	state := r.URL.Query().Get("state")
	if state == "" {
		state = "CT"
	}

	orgs, err := s.nonprofits.Search(r.Context(), q, state, 0)
	if err != nil {
		zap.L().Error("api: propublica search", zap.String("q", q), zap.Error(err))
		orgs = nil
	}

	byCity := s.providersByCity(r.Context(), orgs)

	results := make([]unifiedResult, 0, len(orgs))
	for _, org := range orgs {
		res := unifiedResult{
			EIN:           org.EIN,
			Name:          org.Name,
			City:          org.City,
			State:         org.State,
			NTEECode:      org.NTEECode,
			ProPublicaURL: propublica.OrganizationURL(org.EIN),
			HasForm990:    true,
		}
		if providers := byCity[org.City]; len(providers) > 0 {
			if p, ok := match.MatchBest(org.Name, providers, s.opts.Threshold); ok {
				m := model.ProviderMatch{Name: p.Name, URL: p.Link, Town: org.City}
				res.DDSProvider = &m
			}
		}
		results = append(results, res)
	}

	zap.L().Info("api: unified search", zap.String("q", q), zap.Int("results", len(results)))
	writeJSON(w, http.StatusOK, map[string]any{"results": results, "query": q, "state": state})
}

// providersByCity loads each distinct city's roster once. Cities without a
// roster map to nil.
func (s *Server) providersByCity(ctx context.Context, orgs []model.Nonprofit) map[string][]model.Provider {
	var cities []string
	seen := make(map[string]struct{})
	for _, o := range orgs {
		if o.City == "" {
			continue
		}
		if _, ok := seen[o.City]; !ok {
			seen[o.City] = struct{}{}
			cities = append(cities, o.City)
		}
	}

	loaded := make([][]model.Provider, len(cities))
	var g errgroup.Group
	g.SetLimit(s.opts.CityConcurrency)
	for i, city := range cities {
		g.Go(func() error {
			ps, err := s.roster.Providers(ctx, city)
			if err != nil {
				zap.L().Debug("api: dds lookup failed", zap.String("city", city), zap.Error(err))
				return nil
			}
			loaded[i] = ps
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string][]model.Provider, len(cities))
	for i, city := range cities {
		out[city] = loaded[i]
	}
	return out
}

type organizationView struct {
	*model.NonprofitDetails
	LatestFiling *model.Filing `json:"latest_filing"`
}

func (s *Server) handleOrganization(w http.ResponseWriter, r *http.Request) {
	ein := chi.URLParam(r, "ein")

	details, err := s.nonprofits.Details(r.Context(), ein)
	if errors.Is(err, propublica.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Organization not found")
		return
	}
	if err != nil {
		zap.L().Error("api: organization", zap.String("ein", ein), zap.Error(err))
		writeError(w, http.StatusBadGateway, "Failed to fetch organization.")
		return
	}

	if details.Filings == nil {
		details.Filings = []model.Filing{}
	}
	view := organizationView{NonprofitDetails: details, LatestFiling: details.LatestFiling()}
	writeJSON(w, http.StatusOK, map[string]any{"organization": view})
}

func (s *Server) handleFinancials(w http.ResponseWriter, r *http.Request) {
	ein := propublica.NormalizeEIN(chi.URLParam(r, "ein"))

	years := s.opts.DefaultYears
	if v := r.URL.Query().Get("years"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "years must be a positive integer")
			return
		}
		years = n
	}
	years = min(years, s.opts.MaxYears)

	sum, err := s.nonprofits.Summary(r.Context(), ein, years)
	if errors.Is(err, propublica.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Organization not found for EIN: "+ein)
		return
	}
	if err != nil {
		zap.L().Error("api: financials", zap.String("ein", ein), zap.Error(err))
		writeError(w, http.StatusBadGateway, "Failed to fetch financials.")
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

type fetchDocsRequest struct {
	EIN         string `json:"ein"`
	OrgName     string `json:"org_name"`
	City        string `json:"city"`
	ProviderURL string `json:"provider_url"`
}

type fetchDocsResponse struct {
	Form990         *string  `json:"form990"`
	Form990Year     *string  `json:"form990_year"`
	ProviderProfile *string  `json:"provider_profile"`
	QualityReport   *string  `json:"quality_report"`
	OrgName         *string  `json:"org_name"`
	Errors          []string `json:"errors"`
}

func encodePDF(data []byte) *string {
	s := base64.StdEncoding.EncodeToString(data)
	return &s
}

// handleFetchDocs gathers the Form 990, the DDS provider profile and its
// quality report for one organization. Each document fails independently;
// failures are listed in errors.
func (s *Server) handleFetchDocs(w http.ResponseWriter, r *http.Request) {
	var req fetchDocsRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.EIN) == "" {
		writeError(w, http.StatusBadRequest, "ein is required")
		return
	}

	ctx := r.Context()
	resp := fetchDocsResponse{Errors: []string{}}
	orgName, city := req.OrgName, req.City

	// Form 990.
	details, err := s.nonprofits.Details(ctx, req.EIN)
	switch {
	case err == nil:
		resp.OrgName = &details.Name
		if orgName == "" {
			orgName = details.Name
		}
		if city == "" {
			city = details.City
		}
		if f, ok := nonprofit.SelectFiling(details.Filings, 0); ok {
			year := f.TaxPeriod
			resp.Form990Year = &year
		}
	case !errors.Is(err, propublica.ErrNotFound):
		zap.L().Error("api: fetch-docs details", zap.String("ein", req.EIN), zap.Error(err))
	}

	pdf, _, err := s.nonprofits.Form990PDF(ctx, req.EIN, 0)
	switch {
	case err == nil:
		resp.Form990 = encodePDF(pdf)
	case errors.Is(err, propublica.ErrNotFound), errors.Is(err, nonprofit.ErrNoFiling):
		resp.Errors = append(resp.Errors, "Form 990 not available from ProPublica")
	default:
		resp.Errors = append(resp.Errors, "Form 990 fetch error: "+err.Error())
	}

	// DDS provider profile.
	providerURL := req.ProviderURL
	if providerURL == "" && city != "" && orgName != "" {
		providerURL, resp.Errors = s.findProviderURL(ctx, orgName, city, resp.Errors)
	}

	var profile []byte
	if providerURL != "" {
		profile, err = s.roster.FetchPDF(ctx, providerURL)
		if err != nil {
			zap.L().Error("api: fetch-docs profile", zap.String("url", providerURL), zap.Error(err))
			resp.Errors = append(resp.Errors, "Provider profile fetch error: "+err.Error())
		} else {
			resp.ProviderProfile = encodePDF(profile)
		}
	}

	// Quality report.
	if len(profile) > 0 {
		_, quality, err := s.roster.FetchQuality(ctx, profile)
		if err != nil {
			resp.Errors = append(resp.Errors, qualityMessage(err))
		} else {
			resp.QualityReport = encodePDF(quality)
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) findProviderURL(ctx context.Context, orgName, city string, errs []string) (string, []string) {
	providers, err := s.roster.Providers(ctx, city)
	switch {
	case errors.Is(err, dds.ErrTownNotFound), err == nil && len(providers) == 0:
		return "", append(errs, "No DDS providers found for town: "+city)
	case err != nil:
		zap.L().Warn("api: dds provider search", zap.String("city", city), zap.Error(err))
		return "", append(errs, "DDS search error: "+err.Error())
	}

	p, ok := match.MatchBest(orgName, providers, s.opts.Threshold)
	if !ok {
		return "", append(errs, "No DDS provider match found in "+city)
	}
	zap.L().Info("api: dds match", zap.String("org", orgName), zap.String("provider", p.Name))
	return p.Link, errs
}
