// Package dds fetches and parses the DDS qualified-provider rosters.
package dds

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/dds-finder/internal/cache"
	"github.com/sells-group/dds-finder/internal/config"
	"github.com/sells-group/dds-finder/internal/fetcher"
	"github.com/sells-group/dds-finder/internal/match"
	"github.com/sells-group/dds-finder/internal/model"
	"github.com/sells-group/dds-finder/internal/pdftext"
	"github.com/sells-group/dds-finder/internal/roster"
)

// Sentinel errors.
var (
	ErrTownNotFound   = eris.New("dds: town not found")
	ErrURLNotAllowed  = eris.New("dds: url not allowed")
	ErrNoQualityURL   = eris.New("dds: no quality report url in provider profile")
	ErrQualityBlocked = eris.New("dds: quality report url not from allowed domain")
)

// Options configures a Service.
type Options struct {
	IndexURL     string
	AllowedHosts []string
	TownsTTL     time.Duration
	ProvidersTTL time.Duration
	// Concurrency bounds parallel roster downloads in AllProviders.
	Concurrency int
}

// OptionsFromConfig maps DDS settings onto Options.
func OptionsFromConfig(c config.DDSConfig) Options {
	return Options{
		IndexURL:     c.IndexURL,
		AllowedHosts: c.AllowedHosts,
		TownsTTL:     time.Duration(c.TownsTTLHours) * time.Hour,
		ProvidersTTL: time.Duration(c.ProvidersTTLHours) * time.Hour,
		Concurrency:  c.MaxConcurrentTown,
	}
}

// Service reads the town index and town rosters, caching both.
type Service struct {
	fetch  fetcher.Fetcher
	pdf    pdftext.Extractor
	links  pdftext.LinkExtractor
	loader *cache.Loader
	opts   Options
}

// NewService creates a Service. When pdf cannot read link annotations the
// native extractor is used for them.
func NewService(f fetcher.Fetcher, pdf pdftext.Extractor, loader *cache.Loader, opts Options) *Service {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	links, ok := pdf.(pdftext.LinkExtractor)
	if !ok {
		links = pdftext.NewNative()
	}
	return &Service{fetch: f, pdf: pdf, links: links, loader: loader, opts: opts}
}

// Towns returns every town with a roster PDF, sorted by name.
func (s *Service) Towns(ctx context.Context) ([]model.Town, error) {
	return cache.GetOrLoad(ctx, s.loader, "towns", s.opts.TownsTTL, func(ctx context.Context) ([]model.Town, error) {
		zap.L().Info("dds: fetching town index", zap.String("url", s.opts.IndexURL))

		body, err := s.fetch.Download(ctx, s.opts.IndexURL)
		if err != nil {
			return nil, eris.Wrap(err, "dds: download town index")
		}
		defer body.Close() //nolint:errcheck

		towns, err := roster.ParseTownIndex(body, s.opts.IndexURL)
		if err != nil {
			return nil, err
		}
		zap.L().Info("dds: towns loaded", zap.Int("count", len(towns)))
		return towns, nil
	})
}

// Town looks a town up by name, ignoring case and spacing.
func (s *Service) Town(ctx context.Context, name string) (model.Town, error) {
	towns, err := s.Towns(ctx)
	if err != nil {
		return model.Town{}, err
	}
	t, ok := roster.FindTown(towns, name)
	if !ok {
		return model.Town{}, ErrTownNotFound
	}
	return t, nil
}

// TownPDFURL returns the roster PDF URL for a town.
func (s *Service) TownPDFURL(ctx context.Context, name string) (string, error) {
	t, err := s.Town(ctx, name)
	if err != nil {
		return "", err
	}
	return t.PDFURL, nil
}

func providersKey(town string) string {
	return "providers::" + roster.NormalizeTown(town)
}

// RefreshProviders drops the cached roster for a town so the next
// Providers call downloads it again.
func (s *Service) RefreshProviders(ctx context.Context, name string) error {
	t, err := s.Town(ctx, name)
	if err != nil {
		return err
	}
	if err := s.loader.Invalidate(ctx, providersKey(t.Name)); err != nil {
		return eris.Wrapf(err, "dds: invalidate roster for %s", t.Name)
	}
	zap.L().Info("dds: roster cache cleared", zap.String("town", t.Name))
	return nil
}

// Providers returns the parsed roster for a town, each stamped with the
// town's index name.
func (s *Service) Providers(ctx context.Context, name string) ([]model.Provider, error) {
	t, err := s.Town(ctx, name)
	if err != nil {
		zap.L().Warn("dds: no roster for town", zap.String("town", name))
		return nil, err
	}

	key := providersKey(t.Name)
	return cache.GetOrLoad(ctx, s.loader, key, s.opts.ProvidersTTL, func(ctx context.Context) ([]model.Provider, error) {
		data, err := s.fetch.Fetch(ctx, t.PDFURL)
		if err != nil {
			return nil, eris.Wrapf(err, "dds: download roster for %s", t.Name)
		}
		providers, err := s.ParseRoster(ctx, data, t.Name)
		if err != nil {
			return nil, err
		}
		zap.L().Info("dds: parsed roster",
			zap.String("town", t.Name),
			zap.Int("providers", len(providers)),
		)
		return providers, nil
	})
}

// ParseRoster extracts providers from a roster PDF without any network
// access.
func (s *Service) ParseRoster(ctx context.Context, data []byte, town string) ([]model.Provider, error) {
	pages, err := s.pdf.ExtractPages(ctx, data)
	if err != nil {
		return nil, eris.Wrapf(err, "dds: extract roster text for %s", town)
	}
	providers := roster.ParseProviders(roster.SplitLines(pages), town)
	for i := range providers {
		providers[i].Town = town
	}
	return providers, nil
}

// AllProviders returns the providers of every town as one list, in town
// order. A town that fails is logged and skipped.
func (s *Service) AllProviders(ctx context.Context) ([]model.Provider, error) {
	return cache.GetOrLoad(ctx, s.loader, "all_providers_flat", s.opts.ProvidersTTL, func(ctx context.Context) ([]model.Provider, error) {
		towns, err := s.Towns(ctx)
		if err != nil {
			return nil, err
		}

		perTown := make([][]model.Provider, len(towns))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.opts.Concurrency)
		for i, t := range towns {
			g.Go(func() error {
				ps, err := s.Providers(gctx, t.Name)
				if err != nil {
					if gctx.Err() != nil {
						return gctx.Err()
					}
					zap.L().Warn("dds: skipping town", zap.String("town", t.Name), zap.Error(err))
					return nil
				}
				perTown[i] = ps
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, eris.Wrap(err, "dds: load all providers")
		}

		var all []model.Provider
		for _, ps := range perTown {
			all = append(all, ps...)
		}
		zap.L().Info("dds: all providers loaded",
			zap.Int("towns", len(towns)),
			zap.Int("providers", len(all)),
		)
		return all, nil
	})
}

// FetchPDF downloads a DDS document after checking it against the allow-list.
func (s *Service) FetchPDF(ctx context.Context, rawURL string) ([]byte, error) {
	if !IsAllowedPDF(rawURL, s.opts.AllowedHosts) {
		zap.L().Warn("dds: blocked pdf fetch", zap.String("url", rawURL))
		return nil, ErrURLNotAllowed
	}
	zap.L().Info("dds: fetching pdf", zap.String("url", rawURL))
	return s.fetch.Fetch(ctx, rawURL)
}

// QualityURL finds the quality report link in a provider profile PDF.
// Pages are scanned last to first, text before link annotations. An empty
// string means none was found.
func (s *Service) QualityURL(ctx context.Context, profile []byte) (string, error) {
	pages, err := s.pdf.ExtractPages(ctx, profile)
	if err != nil {
		return "", eris.Wrap(err, "dds: extract profile text")
	}
	links, err := s.links.ExtractLinks(ctx, profile)
	if err != nil {
		zap.L().Debug("dds: profile links unavailable", zap.Error(err))
		links = nil
	}

	for i := len(pages) - 1; i >= 0; i-- {
		if u := roster.ExtractQualityURL(pages[i]); u != "" {
			return u, nil
		}
		if i < len(links) {
			for _, uri := range links[i] {
				if roster.IsQualityLink(uri) {
					return uri, nil
				}
			}
		}
	}
	return "", nil
}

// FetchQuality locates and downloads the quality report referenced by a
// provider profile PDF.
func (s *Service) FetchQuality(ctx context.Context, profile []byte) (string, []byte, error) {
	u, err := s.QualityURL(ctx, profile)
	if err != nil {
		return "", nil, err
	}
	if u == "" {
		return "", nil, ErrNoQualityURL
	}
	if !IsAllowedPDF(u, s.opts.AllowedHosts) {
		return u, nil, ErrQualityBlocked
	}
	data, err := s.fetch.Fetch(ctx, u)
	if err != nil {
		return u, nil, eris.Wrap(err, "dds: download quality report")
	}
	return u, data, nil
}

// MatchProvider finds the roster provider in town that best matches
// orgName. The bool is false when nothing meets threshold.
func (s *Service) MatchProvider(ctx context.Context, orgName, town string, threshold float64) (model.Provider, bool, error) {
	providers, err := s.Providers(ctx, town)
	if err != nil {
		return model.Provider{}, false, err
	}
	p, ok := match.MatchBest(orgName, providers, threshold)
	return p, ok, nil
}
