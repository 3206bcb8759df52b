package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// chdirTemp switches to an empty temp dir so no config.yaml or .env is found.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout())
	assert.Equal(t, 60*time.Second, cfg.Server.WriteTimeout())
	assert.Equal(t, int64(20<<20), cfg.Server.MaxUploadBytes())
	assert.InDelta(t, 10, cfg.Server.RateLimitRPS, 0.001)
	assert.Equal(t, 20, cfg.Server.RateLimitBurst)
	assert.Equal(t, []string{"http://localhost:5173", "http://127.0.0.1:5173"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "data/all_data.csv", cfg.Market.DataCSV)
	assert.Empty(t, cfg.Market.WeightRules)
	assert.Empty(t, cfg.Anthropic.Key)
	assert.Equal(t, "claude-haiku-4-5-20251001", cfg.Anthropic.Model)
	assert.Equal(t, 30*time.Second, cfg.Anthropic.Timeout())
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
log:
  level: debug
  format: console
server:
  port: 9090
  cors_origins:
    - https://advisor.example.com
market:
  data_csv: /srv/data/all_data.csv
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "/srv/data/all_data.csv", cfg.Market.DataCSV)
	assert.Equal(t, []string{
		"http://localhost:5173", "http://127.0.0.1:5173", "https://advisor.example.com",
	}, cfg.Server.CORSOrigins)
	// Defaults still apply for unset values
	assert.Equal(t, 20, cfg.Server.MaxUploadMB)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
log:
  level: debug
anthropic:
  model: claude-sonnet-4-5-20250929
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	t.Setenv("ADVISOR_LOG_LEVEL", "warn")
	t.Setenv("ADVISOR_ANTHROPIC_KEY", "sk-test")
	t.Setenv("ADVISOR_SERVER_CORS_ORIGINS", "https://a.example.com, https://b.example.com,http://localhost:5173")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "sk-test", cfg.Anthropic.Key)
	assert.Equal(t, "claude-sonnet-4-5-20250929", cfg.Anthropic.Model)
	assert.Equal(t, []string{
		"http://localhost:5173", "http://127.0.0.1:5173", "https://a.example.com", "https://b.example.com",
	}, cfg.Server.CORSOrigins)
}

func TestLoadDotEnv(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("ADVISOR_SERVER_PORT=3000\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("ADVISOR_SERVER_PORT") }) //nolint:errcheck

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestLoadDotEnvDoesNotOverrideEnv(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("ADVISOR_SERVER_PORT=3000\n"), 0o644))
	t.Setenv("ADVISOR_SERVER_PORT", "4000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 4000, cfg.Server.Port)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server: [unclosed"), 0o644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestLoadFile(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server:\n  port: 9090\n"), 0o644))
	alt := filepath.Join(t.TempDir(), "staging.yaml")
	require.NoError(t, os.WriteFile(alt, []byte("server:\n  port: 7070\nmarket:\n  data_csv: /data/staging.csv\n"), 0o644))

	cfg, err := LoadFile(alt)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "/data/staging.csv", cfg.Market.DataCSV)

	_, err = LoadFile(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestInitLogger(t *testing.T) {
	tests := []struct {
		name    string
		cfg     LogConfig
		wantErr bool
	}{
		{"console", LogConfig{Level: "debug", Format: "console"}, false},
		{"json", LogConfig{Level: "info", Format: "json"}, false},
		{"invalid level", LogConfig{Level: "invalid", Format: "json"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := InitLogger(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, zap.L())
		})
	}
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Server.Port = 8080
	cfg.Server.MaxUploadMB = 20
	cfg.Server.RateLimitRPS = 10
	cfg.Server.RateLimitBurst = 20
	cfg.Anthropic.TimeoutSecs = 30
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mode    string
		mutate  func(*Config)
		wantErr string
	}{
		{"serve ok", "serve", func(*Config) {}, ""},
		{"cli ok", "cli", func(c *Config) { c.Server.Port = 0 }, ""},
		{"invalid port", "serve", func(c *Config) { c.Server.Port = 0 }, "server.port must be > 0"},
		{"invalid upload", "serve", func(c *Config) { c.Server.MaxUploadMB = -1 }, "server.max_upload_mb must be > 0"},
		{"invalid rate", "serve", func(c *Config) { c.Server.RateLimitRPS = 0 }, "server.rate_limit_rps must be > 0"},
		{"invalid burst", "serve", func(c *Config) { c.Server.RateLimitBurst = 0 }, "server.rate_limit_burst must be > 0"},
		{"invalid timeout", "cli", func(c *Config) { c.Anthropic.TimeoutSecs = 0 }, "anthropic.timeout_secs must be > 0"},
		{"unknown mode", "unknown", func(*Config) {}, "unknown mode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validDefaults()
			tt.mutate(cfg)
			err := cfg.Validate(tt.mode)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0
	cfg.Server.RateLimitBurst = 0

	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0; server.rate_limit_burst must be > 0")
}
