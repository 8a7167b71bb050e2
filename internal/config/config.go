package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	DDS        DDSConfig        `yaml:"dds" mapstructure:"dds"`
	ProPublica ProPublicaConfig `yaml:"propublica" mapstructure:"propublica"`
	Match      MatchConfig      `yaml:"match" mapstructure:"match"`
	PDF        PDFConfig        `yaml:"pdf" mapstructure:"pdf"`
	Cache      CacheConfig      `yaml:"cache" mapstructure:"cache"`
	Fetch      FetchConfig      `yaml:"fetch" mapstructure:"fetch"`
	Resilience ResilienceConfig `yaml:"resilience" mapstructure:"resilience"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// DDSConfig configures access to the DDS provider-by-town documents.
type DDSConfig struct {
	IndexURL          string   `yaml:"index_url" mapstructure:"index_url"`
	AllowedHosts      []string `yaml:"allowed_hosts" mapstructure:"allowed_hosts"`
	TownsTTLHours     int      `yaml:"towns_ttl_hours" mapstructure:"towns_ttl_hours"`
	ProvidersTTLHours int      `yaml:"providers_ttl_hours" mapstructure:"providers_ttl_hours"`
	MaxConcurrentTown int      `yaml:"max_concurrent_towns" mapstructure:"max_concurrent_towns"`
}

// ProPublicaConfig holds Nonprofit Explorer API settings.
type ProPublicaConfig struct {
	BaseURL         string `yaml:"base_url" mapstructure:"base_url"`
	State           string `yaml:"state" mapstructure:"state"`
	MinIntervalMs   int    `yaml:"min_interval_ms" mapstructure:"min_interval_ms"`
	SearchTTLHours  int    `yaml:"search_ttl_hours" mapstructure:"search_ttl_hours"`
	OrgTTLHours     int    `yaml:"org_ttl_hours" mapstructure:"org_ttl_hours"`
	PDFTTLHours     int    `yaml:"pdf_ttl_hours" mapstructure:"pdf_ttl_hours"`
	PDFTimeoutSecs  int    `yaml:"pdf_timeout_secs" mapstructure:"pdf_timeout_secs"`
	HistoryYears    int    `yaml:"history_years" mapstructure:"history_years"`
	MaxHistoryYears int    `yaml:"max_history_years" mapstructure:"max_history_years"`
}

// MatchConfig configures organization-to-provider name matching.
type MatchConfig struct {
	Threshold float64 `yaml:"threshold" mapstructure:"threshold"`
}

// PDFConfig configures PDF text extraction.
type PDFConfig struct {
	Extractor     string `yaml:"extractor" mapstructure:"extractor"`
	PdfToTextPath string `yaml:"pdftotext_path" mapstructure:"pdftotext_path"`
}

// CacheConfig configures the response cache backend.
type CacheConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"`
	DSN    string `yaml:"dsn" mapstructure:"dsn"`
}

// FetchConfig configures outbound HTTP downloads.
type FetchConfig struct {
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries" mapstructure:"max_retries"`
	MaxBytes    int64  `yaml:"max_bytes" mapstructure:"max_bytes"`
}

// ResilienceConfig configures retries and the circuit breaker guarding
// third-party APIs.
type ResilienceConfig struct {
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int     `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	Multiplier       float64 `yaml:"multiplier" mapstructure:"multiplier"`
	JitterFraction   float64 `yaml:"jitter_fraction" mapstructure:"jitter_fraction"`
	FailureThreshold int     `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int     `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// ServerConfig configures the web API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	AllowAll       bool     `yaml:"allow_all_origins" mapstructure:"allow_all_origins"`
	StaticDir      string   `yaml:"static_dir" mapstructure:"static_dir"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DefaultAllowedOrigins are the local development origins accepted when no
// origins are configured.
var DefaultAllowedOrigins = []string{
	"http://localhost:3000", "http://localhost:3001",
	"http://localhost:5173", "http://localhost:5174",
	"http://127.0.0.1:3000", "http://127.0.0.1:3001",
	"http://127.0.0.1:5173", "http://127.0.0.1:5174",
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("DDS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.allowed_origins", DefaultAllowedOrigins)
	v.SetDefault("server.allow_all_origins", false)
	v.SetDefault("server.static_dir", "static")
	v.SetDefault("dds.index_url", "https://portal.ct.gov/dds/searchable-archive/providerprofile/general/provider-by-town?language=en_US")
	v.SetDefault("dds.allowed_hosts", []string{"portal.ct.gov", "www.ct.gov", "ct.gov"})
	v.SetDefault("dds.towns_ttl_hours", 24)
	v.SetDefault("dds.providers_ttl_hours", 6)
	v.SetDefault("dds.max_concurrent_towns", 4)
	v.SetDefault("propublica.base_url", "https://projects.propublica.org/nonprofits/api/v2")
	v.SetDefault("propublica.state", "CT")
	v.SetDefault("propublica.min_interval_ms", 500)
	v.SetDefault("propublica.search_ttl_hours", 1)
	v.SetDefault("propublica.org_ttl_hours", 24)
	v.SetDefault("propublica.pdf_ttl_hours", 7*24)
	v.SetDefault("propublica.pdf_timeout_secs", 60)
	v.SetDefault("propublica.history_years", 5)
	v.SetDefault("propublica.max_history_years", 10)
	v.SetDefault("match.threshold", 0.6)
	v.SetDefault("pdf.extractor", "native")
	v.SetDefault("pdf.pdftotext_path", "pdftotext")
	v.SetDefault("cache.driver", "memory")
	v.SetDefault("fetch.user_agent", "DDSScraper/1.0 (+https://portal.ct.gov)")
	v.SetDefault("fetch.timeout_secs", 30)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.max_bytes", 50<<20)
	v.SetDefault("resilience.max_attempts", 3)
	v.SetDefault("resilience.initial_backoff_ms", 500)
	v.SetDefault("resilience.max_backoff_ms", 10000)
	v.SetDefault("resilience.multiplier", 2.0)
	v.SetDefault("resilience.jitter_fraction", 0.25)
	v.SetDefault("resilience.failure_threshold", 5)
	v.SetDefault("resilience.reset_timeout_secs", 30)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	applyLegacyEnv(&cfg)
	return &cfg, nil
}

// applyLegacyEnv honours the unprefixed variables used by existing
// deployments.
func applyLegacyEnv(cfg *Config) {
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		var list []string
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				list = append(list, o)
			}
		}
		cfg.Server.AllowedOrigins = list
	}
	if os.Getenv("ALLOW_ALL_ORIGINS") != "" || os.Getenv("RAILWAY_ENVIRONMENT") != "" {
		cfg.Server.AllowAll = true
	}
	if port := os.Getenv("PORT"); port != "" && os.Getenv("DDS_SERVER_PORT") == "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
}

// Validate checks the settings a command needs before it starts.
func (c *Config) Validate(mode string) error {
	var errs []string

	if c.Match.Threshold < 0 || c.Match.Threshold > 1 {
		errs = append(errs, "match.threshold must be between 0 and 1")
	}

	switch c.Cache.Driver {
	case "memory", "":
	case "sqlite", "postgres":
		if c.Cache.DSN == "" {
			errs = append(errs, "cache.dsn is required for driver "+c.Cache.Driver)
		}
	default:
		errs = append(errs, "cache.driver must be memory, sqlite or postgres")
	}

	switch c.PDF.Extractor {
	case "native", "pdftotext", "":
	default:
		errs = append(errs, "pdf.extractor must be native or pdftotext")
	}

	if mode == "serve" && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		errs = append(errs, "server.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
