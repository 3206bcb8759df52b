package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "ADVISOR"

// Config holds the full application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Market    MarketConfig    `yaml:"market" mapstructure:"market"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port             int      `yaml:"port" mapstructure:"port"`
	ReadTimeoutSecs  int      `yaml:"read_timeout_secs" mapstructure:"read_timeout_secs"`
	WriteTimeoutSecs int      `yaml:"write_timeout_secs" mapstructure:"write_timeout_secs"`
	MaxUploadMB      int      `yaml:"max_upload_mb" mapstructure:"max_upload_mb"`
	RateLimitRPS     float64  `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
	RateLimitBurst   int      `yaml:"rate_limit_burst" mapstructure:"rate_limit_burst"`
	CORSOrigins      []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// ReadTimeout returns the read timeout as a duration.
func (s ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(s.ReadTimeoutSecs) * time.Second
}

// WriteTimeout returns the write timeout as a duration.
func (s ServerConfig) WriteTimeout() time.Duration {
	return time.Duration(s.WriteTimeoutSecs) * time.Second
}

// MaxUploadBytes returns the upload size limit in bytes.
func (s ServerConfig) MaxUploadBytes() int64 {
	return int64(s.MaxUploadMB) << 20
}

// MarketConfig locates the country dataset and weight rules.
type MarketConfig struct {
	DataCSV     string `yaml:"data_csv" mapstructure:"data_csv"`
	WeightRules string `yaml:"weight_rules" mapstructure:"weight_rules"`
}

// AnthropicConfig configures the narrative generator. An empty key disables
// it and every narrative uses local fallback text.
type AnthropicConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	Model       string `yaml:"model" mapstructure:"model"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
}

// Timeout returns the per-call timeout as a duration.
func (a AnthropicConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSecs) * time.Second
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // json or console
}

var defaultCORSOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173"}

// Load reads configuration from config.yaml (optional), a .env file
// (optional), and ADVISOR_* environment variables, in increasing precedence.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file in place of the optional
// ./config.yaml. A named file that cannot be read is an error.
func LoadFile(path string) (*Config, error) {
	// .env only fills variables that are not already set.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	// Config file
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Environment
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout_secs", 15)
	v.SetDefault("server.write_timeout_secs", 60)
	v.SetDefault("server.max_upload_mb", 20)
	v.SetDefault("server.rate_limit_rps", 10)
	v.SetDefault("server.rate_limit_burst", 20)
	v.SetDefault("server.cors_origins", defaultCORSOrigins)
	v.SetDefault("market.data_csv", "data/all_data.csv")
	v.SetDefault("market.weight_rules", "")
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.timeout_secs", 30)
	v.SetDefault("anthropic.base_url", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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
	cfg.Server.CORSOrigins = mergeOrigins(defaultCORSOrigins, cfg.Server.CORSOrigins)

	return &cfg, nil
}

// mergeOrigins keeps the default origins and appends configured extras.
// Environment values arrive as one comma-separated string.
func mergeOrigins(defaults, configured []string) []string {
	out := append([]string(nil), defaults...)
	seen := make(map[string]bool, len(out))
	for _, o := range out {
		seen[o] = true
	}
	for _, entry := range configured {
		for _, o := range strings.Split(entry, ",") {
			o = strings.TrimSpace(o)
			if o == "" || seen[o] {
				continue
			}
			seen[o] = true
			out = append(out, o)
		}
	}
	return out
}

// Validate checks the settings a command mode depends on.
func (c *Config) Validate(mode string) error {
	switch mode {
	case "serve":
		var missing []string
		if c.Server.Port <= 0 {
			missing = append(missing, "server.port must be > 0")
		}
		if c.Server.MaxUploadMB <= 0 {
			missing = append(missing, "server.max_upload_mb must be > 0")
		}
		if c.Server.RateLimitRPS <= 0 {
			missing = append(missing, "server.rate_limit_rps must be > 0")
		}
		if c.Server.RateLimitBurst <= 0 {
			missing = append(missing, "server.rate_limit_burst must be > 0")
		}
		if c.Anthropic.TimeoutSecs <= 0 {
			missing = append(missing, "anthropic.timeout_secs must be > 0")
		}
		if len(missing) > 0 {
			return eris.Errorf("config: invalid serve settings: %s", strings.Join(missing, "; "))
		}
	case "cli":
		if c.Anthropic.TimeoutSecs <= 0 {
			return eris.New("config: anthropic.timeout_secs must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
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
