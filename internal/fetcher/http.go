package fetcher

import (
	"bytes"
	"context"
	"io"
	"math"
	"math/rand/v2"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/dds-finder/internal/config"
)

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	UserAgent  string
	Timeout    time.Duration
	MaxRetries int
	// MaxBytes caps Fetch bodies. Zero means unlimited.
	MaxBytes int64
	// BackoffBase is the first retry delay; it doubles per attempt.
	BackoffBase time.Duration
	Limiters    map[string]*AdaptiveLimiter
	Client      *http.Client
}

// OptionsFromConfig maps fetch settings onto HTTPOptions.
func OptionsFromConfig(c config.FetchConfig) HTTPOptions {
	return HTTPOptions{
		UserAgent:  c.UserAgent,
		Timeout:    time.Duration(c.TimeoutSecs) * time.Second,
		MaxRetries: c.MaxRetries,
		MaxBytes:   c.MaxBytes,
	}
}

// HTTPFetcher implements Fetcher over net/http.
type HTTPFetcher struct {
	client   *http.Client
	opts     HTTPOptions
	limiters map[string]*AdaptiveLimiter
	fallback *rate.Limiter
}

// NewHTTPFetcher creates an HTTPFetcher, filling unset options with defaults.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "DDSScraper/1.0 (+https://portal.ct.gov)"
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = time.Second
	}
	if opts.Limiters == nil {
		opts.Limiters = DefaultLimiters()
	}

	client := opts.Client
	if client == nil {
		client = &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				MaxConnsPerHost:     20,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}

	return &HTTPFetcher{
		client:   client,
		opts:     opts,
		limiters: opts.Limiters,
		fallback: rate.NewLimiter(20, 20),
	}
}

func (f *HTTPFetcher) limiterFor(u *url.URL) *AdaptiveLimiter {
	return f.limiters[u.Hostname()]
}

func (f *HTTPFetcher) wait(ctx context.Context, lim *AdaptiveLimiter) error {
	if lim != nil {
		return lim.Wait(ctx)
	}
	return f.fallback.Wait(ctx)
}

func (f *HTTPFetcher) doWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	lim := f.limiterFor(req.URL)

	var lastErr error
	for attempt := range f.opts.MaxRetries {
		if err := f.wait(ctx, lim); err != nil {
			return nil, eris.Wrap(err, "fetcher: rate limiter wait")
		}

		resp, err := f.client.Do(req.Clone(ctx))
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, eris.Wrap(ctx.Err(), "fetcher: request canceled")
			}
			lastErr = err
			zap.L().Warn("fetcher: request failed, retrying",
				zap.String("url", req.URL.String()),
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)

		case resp.StatusCode == http.StatusTooManyRequests:
			_ = resp.Body.Close()
			lastErr = eris.Errorf("http 429 from %s", req.URL.Host)
			if lim != nil {
				lim.OnRateLimit()
			}

		case resp.StatusCode >= 500:
			_ = resp.Body.Close()
			lastErr = eris.Errorf("http %d from %s", resp.StatusCode, req.URL.Host)
			zap.L().Warn("fetcher: server error, retrying",
				zap.String("url", req.URL.String()),
				zap.Int("status", resp.StatusCode),
				zap.Int("attempt", attempt+1),
			)

		default:
			if lim != nil {
				lim.OnSuccess()
			}
			return resp, nil
		}

		if attempt < f.opts.MaxRetries-1 {
			f.sleep(ctx, attempt)
		}
	}

	return nil, eris.Wrap(lastErr, "fetcher: all retries exhausted")
}

func (f *HTTPFetcher) sleep(ctx context.Context, attempt int) {
	d := time.Duration(float64(f.opts.BackoffBase) * math.Pow(2, float64(attempt)))
	if d > 30*time.Second {
		d = 30 * time.Second
	}
	if half := int64(d) / 2; half > 0 {
		d += time.Duration(rand.Int64N(half))
	}

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Download fetches the URL and returns the response body. Non-200
// responses are errors.
func (f *HTTPFetcher) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: create request")
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)

	resp, err := f.doWithRetry(ctx, req)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: download %s", rawURL)
	}

	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, eris.Errorf("fetcher: unexpected status %d from %s", resp.StatusCode, rawURL)
	}
	return resp.Body, nil
}

// Fetch downloads the URL into memory, failing when the body exceeds
// MaxBytes.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	body, err := f.Download(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer body.Close() //nolint:errcheck

	var r io.Reader = body
	if f.opts.MaxBytes > 0 {
		r = io.LimitReader(body, f.opts.MaxBytes+1)
	}

	var buf bytes.Buffer
	n, err := buf.ReadFrom(r)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: read body from %s", rawURL)
	}
	if f.opts.MaxBytes > 0 && n > f.opts.MaxBytes {
		return nil, eris.Errorf("fetcher: body from %s exceeds %d bytes", rawURL, f.opts.MaxBytes)
	}

	zap.L().Debug("fetcher: fetched",
		zap.String("url", rawURL),
		zap.Int64("bytes", n),
	)
	return buf.Bytes(), nil
}
