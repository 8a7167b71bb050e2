// Package api serves the DDS provider finder HTTP API.
package api

import (
	"context"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/dds-finder/internal/config"
	"github.com/sells-group/dds-finder/internal/match"
	"github.com/sells-group/dds-finder/internal/model"
	"github.com/sells-group/dds-finder/internal/nonprofit"
)

// Roster is the DDS side of the API.
type Roster interface {
	Towns(ctx context.Context) ([]model.Town, error)
	Providers(ctx context.Context, town string) ([]model.Provider, error)
	FetchPDF(ctx context.Context, url string) ([]byte, error)
	FetchQuality(ctx context.Context, profile []byte) (string, []byte, error)
}

// Nonprofits is the ProPublica side of the API.
type Nonprofits interface {
	Search(ctx context.Context, query, state string, page int) ([]model.Nonprofit, error)
	Details(ctx context.Context, ein string) (*model.NonprofitDetails, error)
	Form990PDF(ctx context.Context, ein string, year int) ([]byte, model.Filing, error)
	Summary(ctx context.Context, ein string, years int) (*nonprofit.Summary, error)
}

// Options tunes request handling.
type Options struct {
	// Threshold is the minimum similarity for a DDS provider match.
	Threshold float64
	// DefaultYears and MaxYears bound the financial history endpoint.
	DefaultYears int
	MaxYears     int
	// CityConcurrency bounds parallel roster loads in unified search.
	CityConcurrency int
}

// Server holds the API dependencies.
type Server struct {
	roster     Roster
	nonprofits Nonprofits
	server     config.ServerConfig
	opts       Options
}

// NewServer creates a Server.
func NewServer(r Roster, n Nonprofits, sc config.ServerConfig, opts Options) *Server {
	if opts.Threshold <= 0 {
		opts.Threshold = match.DefaultThreshold
	}
	if opts.DefaultYears <= 0 {
		opts.DefaultYears = 5
	}
	if opts.MaxYears <= 0 {
		opts.MaxYears = 10
	}
	if opts.CityConcurrency <= 0 {
		opts.CityConcurrency = 4
	}
	return &Server{roster: r, nonprofits: n, server: sc, opts: opts}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(s.corsOptions()))

	r.Get("/", s.handleIndex)
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(s.server.StaticDir))))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/towns", s.handleTowns)
		r.Get("/providers", s.handleProviders)
		r.Get("/fetch-pdf", s.handleFetchPDF)
		r.Get("/fetch-provider-with-quality", s.handleProviderWithQuality)
		r.Get("/search/unified", s.handleUnifiedSearch)
		r.Get("/organization/{ein}", s.handleOrganization)
		r.Post("/organization/fetch-docs", s.handleFetchDocs)
		r.Get("/propublica/financials/{ein}", s.handleFinancials)
	})
	return r
}

func (s *Server) corsOptions() cors.Options {
	origins := s.server.AllowedOrigins
	if s.server.AllowAll {
		origins = []string{"*"}
	} else if len(origins) == 0 {
		origins = config.DefaultAllowedOrigins
	}
	return cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAge:           300,
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, filepath.Join(s.server.StaticDir, "index.html"))
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
