package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/dds-finder/internal/cache"
	"github.com/sells-group/dds-finder/internal/dds"
	"github.com/sells-group/dds-finder/internal/fetcher"
	"github.com/sells-group/dds-finder/internal/nonprofit"
	"github.com/sells-group/dds-finder/internal/pdftext"
	"github.com/sells-group/dds-finder/internal/resilience"
	"github.com/sells-group/dds-finder/pkg/propublica"
)

// finderEnv holds the cache and services shared by the commands.
type finderEnv struct {
	Cache      cache.Cache
	DDS        *dds.Service
	Nonprofits *nonprofit.Service
}

// Close releases the cache backend.
func (e *finderEnv) Close() {
	if e.Cache != nil {
		_ = e.Cache.Close()
	}
}

// initEnv validates the config for mode and wires the cache, the DDS
// service and the ProPublica service. Callers should defer env.Close().
func initEnv(ctx context.Context, mode string) (*finderEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	c, err := cache.New(ctx, cfg.Cache)
	if err != nil {
		return nil, eris.Wrap(err, "init cache")
	}
	loader := cache.NewLoader(c)

	extractor, err := pdftext.NewExtractor(cfg.PDF)
	if err != nil {
		_ = c.Close()
		return nil, eris.Wrap(err, "init pdf extractor")
	}

	fetch := fetcher.NewHTTPFetcher(fetcher.OptionsFromConfig(cfg.Fetch))
	ddsSvc := dds.NewService(fetch, extractor, loader, dds.OptionsFromConfig(cfg.DDS))

	breakerCfg := resilience.CircuitFromConfig("propublica", cfg.Resilience)
	breakerCfg.ShouldTrip = resilience.IsTransient
	retryCfg := resilience.RetryFromConfig(cfg.Resilience)
	retryCfg.OnRetry = resilience.RetryLogger("propublica", "get")

	pp := propublica.NewClient(
		propublica.WithBaseURL(cfg.ProPublica.BaseURL),
		propublica.WithMinInterval(time.Duration(cfg.ProPublica.MinIntervalMs)*time.Millisecond),
		propublica.WithRetry(retryCfg),
		propublica.WithBreaker(resilience.NewCircuitBreaker(breakerCfg)),
		propublica.WithPDFTimeout(time.Duration(cfg.ProPublica.PDFTimeoutSecs)*time.Second),
	)
	npSvc := nonprofit.NewService(pp, loader, nonprofit.TTLsFromConfig(cfg.ProPublica))

	return &finderEnv{Cache: c, DDS: ddsSvc, Nonprofits: npSvc}, nil
}
