package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	RadioRef   RadioRefConfig   `yaml:"radioref" mapstructure:"radioref"`
	Perplexity PerplexityConfig `yaml:"perplexity" mapstructure:"perplexity"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Oracle     OracleConfig     `yaml:"oracle" mapstructure:"oracle"`
	Fetch      FetchConfig      `yaml:"fetch" mapstructure:"fetch"`
	Taxonomy   TaxonomyConfig   `yaml:"taxonomy" mapstructure:"taxonomy"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the cache database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// RadioRefConfig holds the authoritative radio database account.
type RadioRefConfig struct {
	Username  string  `yaml:"username" mapstructure:"username"`
	Password  string  `yaml:"password" mapstructure:"password"`
	AppKey    string  `yaml:"app_key" mapstructure:"app_key"`
	BaseURL   string  `yaml:"base_url" mapstructure:"base_url"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// HasCredentials reports whether an authoritative account is configured.
func (c RadioRefConfig) HasCredentials() bool {
	return c.Username != "" && c.Password != ""
}

// PerplexityConfig holds Perplexity API settings.
type PerplexityConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
	Model     string `yaml:"model" mapstructure:"model"`
	WebSearch bool   `yaml:"web_search" mapstructure:"web_search"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// OracleConfig selects the AI search provider.
type OracleConfig struct {
	Provider string `yaml:"provider" mapstructure:"provider"` // perplexity, anthropic, none
}

// FetchConfig bounds the authoritative fan-out.
type FetchConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// TaxonomyConfig points at an optional category override file.
type TaxonomyConfig struct {
	OverridePath string `yaml:"override_path" mapstructure:"override_path"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("FREQSCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "freqscan.db")
	v.SetDefault("radioref.base_url", "http://api.radioreference.com/soap2/")
	v.SetDefault("radioref.rate_limit", 10.0)
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar-pro")
	v.SetDefault("perplexity.web_search", true)
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("oracle.provider", "perplexity")
	v.SetDefault("fetch.concurrency", 10)
	v.SetDefault("server.port", 8080)
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

	return &cfg, nil
}

// Validate checks the fields a command mode needs before it runs. Modes:
// "lookup" and "trip" need at least one data source; "serve" additionally
// needs a usable port.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "lookup", "trip", "serve":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if !c.RadioRef.HasCredentials() && c.Oracle.Provider == "none" {
		problems = append(problems, "either radioref credentials or an oracle provider is required")
	}
	switch c.Oracle.Provider {
	case "perplexity":
		if c.Perplexity.Key == "" {
			problems = append(problems, "perplexity.key is required for oracle.provider=perplexity")
		}
	case "anthropic":
		if c.Anthropic.Key == "" {
			problems = append(problems, "anthropic.key is required for oracle.provider=anthropic")
		}
	case "none":
	default:
		problems = append(problems, "oracle.provider must be perplexity, anthropic, or none")
	}

	switch c.Store.Driver {
	case "sqlite":
		if c.Store.SQLitePath == "" {
			problems = append(problems, "store.sqlite_path is required for the sqlite driver")
		}
	case "postgres":
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required for the postgres driver")
		}
	case "none":
	default:
		problems = append(problems, "store.driver must be sqlite, postgres, or none")
	}

	if c.Fetch.Concurrency < 1 || c.Fetch.Concurrency > 50 {
		problems = append(problems, "fetch.concurrency must be between 1 and 50")
	}
	if mode == "serve" && c.Server.Port <= 0 {
		problems = append(problems, "server.port must be > 0")
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
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
