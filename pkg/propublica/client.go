// Package propublica provides a client for the ProPublica Nonprofit Explorer API.
package propublica

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/dds-finder/internal/model"
	"github.com/sells-group/dds-finder/internal/resilience"
)

// DefaultBaseURL is the Nonprofit Explorer API v2 root.
const DefaultBaseURL = "https://projects.propublica.org/nonprofits/api/v2"

const userAgent = "DDSScraper/1.0"

// ErrNotFound is returned when ProPublica has no organization for an EIN.
var ErrNotFound = eris.New("propublica: organization not found")

// Client defines the Nonprofit Explorer operations.
type Client interface {
	// Search finds organizations by name within a state. Page is zero-based.
	Search(ctx context.Context, query, state string, page int) ([]model.Nonprofit, error)
	// Organization returns an organization and its filings, newest first.
	Organization(ctx context.Context, ein string) (*model.NonprofitDetails, error)
	// DownloadPDF fetches a filing PDF.
	DownloadPDF(ctx context.Context, pdfURL string) ([]byte, error)
}

// Option configures the ProPublica client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithMinInterval sets the minimum spacing between requests. Zero disables
// spacing.
func WithMinInterval(d time.Duration) Option {
	return func(c *httpClient) {
		if d <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithRetry overrides the retry policy.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *httpClient) {
		c.retry = cfg
	}
}

// WithBreaker sets the circuit breaker guarding API calls.
func WithBreaker(cb *resilience.CircuitBreaker) Option {
	return func(c *httpClient) {
		c.breaker = cb
	}
}

// WithPDFTimeout bounds a single PDF download.
func WithPDFTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		c.pdfTimeout = d
	}
}

type httpClient struct {
	baseURL    string
	http       *http.Client
	limiter    *rate.Limiter
	retry      resilience.RetryConfig
	breaker    *resilience.CircuitBreaker
	pdfTimeout time.Duration
}

// NewClient creates a ProPublica client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: DefaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter:    rate.NewLimiter(rate.Every(500*time.Millisecond), 1),
		retry:      resilience.DefaultRetryConfig(),
		pdfTimeout: 60 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.breaker == nil {
		c.breaker = resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			Name:       "propublica",
			ShouldTrip: resilience.IsTransient,
		})
	}
	if c.retry.OnRetry == nil {
		c.retry.OnRetry = resilience.RetryLogger("propublica", "get")
	}
	return c
}

// NormalizeEIN strips hyphens and surrounding space from an EIN.
func NormalizeEIN(ein string) string {
	return strings.ReplaceAll(strings.TrimSpace(ein), "-", "")
}

// OrganizationURL is the public Nonprofit Explorer page for an EIN.
func OrganizationURL(ein string) string {
	return "https://projects.propublica.org/nonprofits/organizations/" + NormalizeEIN(ein)
}

// get performs a rate-limited GET with retries and the circuit breaker.
// Transient statuses are retried; other non-200 statuses come back as
// *statusError.
func (c *httpClient) get(ctx context.Context, rawURL string) ([]byte, error) {
	return resilience.ExecuteVal(ctx, c.breaker, func(ctx context.Context) ([]byte, error) {
		return resilience.DoVal(ctx, c.retry, func(ctx context.Context) ([]byte, error) {
			return c.getOnce(ctx, rawURL)
		})
	})
}

type statusError struct {
	code int
	url  string
}

func (e *statusError) Error() string {
	return "propublica: http " + strconv.Itoa(e.code) + " from " + e.url
}

func (c *httpClient) getOnce(ctx context.Context, rawURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "propublica: rate limiter wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "propublica: create request")
	}
	req.Header.Set("User-Agent", userAgent)

	zap.L().Debug("propublica: request", zap.String("url", rawURL))
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, eris.Wrap(err, "propublica: request canceled")
		}
		return nil, resilience.NewTransientError(eris.Wrap(err, "propublica: request"), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		serr := &statusError{code: resp.StatusCode, url: rawURL}
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(serr, resp.StatusCode)
		}
		return nil, serr
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "propublica: read body"), 0)
	}
	return body, nil
}

// Search finds organizations by name within a state.
func (c *httpClient) Search(ctx context.Context, query, state string, page int) ([]model.Nonprofit, error) {
	params := url.Values{}
	params.Set("q", query)
	if state != "" {
		params.Set("state[id]", state)
	}
	params.Set("page", strconv.Itoa(page))

	body, err := c.get(ctx, c.baseURL+"/search.json?"+params.Encode())
	if err != nil {
		return nil, eris.Wrapf(err, "propublica: search %q", query)
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, eris.Wrap(err, "propublica: decode search")
	}

	out := make([]model.Nonprofit, 0, len(resp.Organizations))
	for _, o := range resp.Organizations {
		out = append(out, model.Nonprofit{
			EIN:            string(o.EIN),
			Name:           o.Name,
			City:           o.City,
			State:          o.State,
			NTEECode:       string(o.NTEECode),
			SubsectionCode: string(o.SubsectionCode),
		})
	}

	zap.L().Info("propublica: search",
		zap.String("query", query),
		zap.String("state", state),
		zap.Int("results", len(out)),
	)
	return out, nil
}

// Organization returns an organization and its filings. The organization
// summary year is added as a filing without a PDF when it is newer than
// every filing and reports revenue.
func (c *httpClient) Organization(ctx context.Context, ein string) (*model.NonprofitDetails, error) {
	ein = NormalizeEIN(ein)

	body, err := c.get(ctx, c.baseURL+"/organizations/"+url.PathEscape(ein)+".json")
	if err != nil {
		var se *statusError
		if errors.As(err, &se) && se.code == http.StatusNotFound {
			zap.L().Warn("propublica: organization not found", zap.String("ein", ein))
			return nil, ErrNotFound
		}
		return nil, eris.Wrapf(err, "propublica: organization %s", ein)
	}

	var resp orgResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, eris.Wrap(err, "propublica: decode organization")
	}

	details := &model.NonprofitDetails{
		EIN:      string(resp.Organization.EIN),
		Name:     resp.Organization.Name,
		City:     resp.Organization.City,
		State:    resp.Organization.State,
		NTEECode: string(resp.Organization.NTEECode),
	}
	if details.EIN == "" {
		details.EIN = ein
	}

	if f, ok := summaryFiling(resp); ok {
		zap.L().Info("propublica: adding summary year not yet in filings",
			zap.String("ein", ein),
			zap.String("year", f.TaxPeriod),
		)
		details.Filings = append(details.Filings, f)
	}
	for _, f := range resp.Filings {
		details.Filings = append(details.Filings, model.Filing{
			TaxPeriod:     string(f.TaxYear),
			PDFURL:        string(f.PDFURL),
			TotalRevenue:  f.TotalRevenue,
			TotalExpenses: f.TotalExpenses,
			TotalAssets:   f.TotalAssets,
			NetAssets:     f.NetAssets,
		})
	}

	sort.SliceStable(details.Filings, func(i, j int) bool {
		return details.Filings[i].TaxPeriod > details.Filings[j].TaxPeriod
	})
	return details, nil
}

func summaryFiling(resp orgResponse) (model.Filing, bool) {
	period := string(resp.Organization.TaxPeriod)
	if period == "" {
		return model.Filing{}, false
	}
	year, err := strconv.Atoi(strings.SplitN(period, "-", 2)[0])
	if err != nil {
		return model.Filing{}, false
	}

	first := 0
	if len(resp.Filings) > 0 {
		first, _ = strconv.Atoi(string(resp.Filings[0].TaxYear))
	}
	rev := resp.Organization.Revenue
	if year <= first || rev == nil || *rev == 0 {
		return model.Filing{}, false
	}
	return model.Filing{
		TaxPeriod:    strconv.Itoa(year),
		TotalRevenue: rev,
		TotalAssets:  resp.Organization.Assets,
	}, true
}

// DownloadPDF fetches a filing PDF.
func (c *httpClient) DownloadPDF(ctx context.Context, pdfURL string) ([]byte, error) {
	if c.pdfTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.pdfTimeout)
		defer cancel()
	}
	data, err := c.get(ctx, pdfURL)
	if err != nil {
		return nil, eris.Wrap(err, "propublica: download pdf")
	}
	zap.L().Info("propublica: downloaded pdf",
		zap.String("url", pdfURL),
		zap.Int("bytes", len(data)),
	)
	return data, nil
}
