package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, DefaultAllowedOrigins, cfg.Server.AllowedOrigins)
	assert.Equal(t, "memory", cfg.Cache.Driver)
	assert.Equal(t, "native", cfg.PDF.Extractor)
	assert.InDelta(t, 0.6, cfg.Match.Threshold, 0.001)
	assert.Equal(t, []string{"portal.ct.gov", "www.ct.gov", "ct.gov"}, cfg.DDS.AllowedHosts)
	assert.Equal(t, 24, cfg.DDS.TownsTTLHours)
	assert.Equal(t, 6, cfg.DDS.ProvidersTTLHours)
	assert.Equal(t, "https://projects.propublica.org/nonprofits/api/v2", cfg.ProPublica.BaseURL)
	assert.Equal(t, "CT", cfg.ProPublica.State)
	assert.Equal(t, 500, cfg.ProPublica.MinIntervalMs)
	assert.Equal(t, 168, cfg.ProPublica.PDFTTLHours)
	assert.Equal(t, 30, cfg.Fetch.TimeoutSecs)
	assert.Equal(t, 3, cfg.Resilience.MaxAttempts)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
cache:
  driver: sqlite
  dsn: cache.db
log:
  level: debug
  format: console
server:
  port: 9090
match:
  threshold: 0.7
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Cache.Driver)
	assert.Equal(t, "cache.db", cfg.Cache.DSN)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.InDelta(t, 0.7, cfg.Match.Threshold, 0.001)
	// Defaults still apply for unset values
	assert.Equal(t, 24, cfg.DDS.TownsTTLHours)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
cache:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("DDS_CACHE_DRIVER", "postgres")
	t.Setenv("DDS_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Cache.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("DDS_SERVER_PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestLoadLegacyEnv(t *testing.T) {
	chdirTemp(t)

	t.Setenv("ALLOWED_ORIGINS", "https://app.example.org, https://admin.example.org,")
	t.Setenv("RAILWAY_ENVIRONMENT", "production")
	t.Setenv("PORT", "7070")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://app.example.org", "https://admin.example.org"}, cfg.Server.AllowedOrigins)
	assert.True(t, cfg.Server.AllowAll)
	assert.Equal(t, 7070, cfg.Server.Port)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("log: [unclosed"), 0644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

func validDefaults() *Config {
	cfg := &Config{}
	cfg.Match.Threshold = 0.6
	cfg.Cache.Driver = "memory"
	cfg.PDF.Extractor = "native"
	cfg.Server.Port = 8000
	return cfg
}

func TestValidate_Defaults(t *testing.T) {
	assert.NoError(t, validDefaults().Validate("serve"))
}

func TestValidate_Threshold(t *testing.T) {
	cfg := validDefaults()
	cfg.Match.Threshold = 1.5

	err := cfg.Validate("match")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "match.threshold")
}

func TestValidate_CacheDSNRequired(t *testing.T) {
	cfg := validDefaults()
	cfg.Cache.Driver = "sqlite"

	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache.dsn is required")

	cfg.Cache.DSN = "cache.db"
	assert.NoError(t, cfg.Validate("serve"))
}

func TestValidate_UnknownDrivers(t *testing.T) {
	cfg := validDefaults()
	cfg.Cache.Driver = "redis"
	cfg.PDF.Extractor = "ocr"

	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache.driver")
	assert.Contains(t, err.Error(), "pdf.extractor")
}

func TestValidate_ServePort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	assert.Error(t, cfg.Validate("serve"))
	assert.NoError(t, cfg.Validate("towns"))
}
