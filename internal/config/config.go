package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Overpass OverpassConfig `yaml:"overpass" mapstructure:"overpass"`
	Fetch    FetchConfig    `yaml:"fetch" mapstructure:"fetch"`
	Enrich   EnrichConfig   `yaml:"enrich" mapstructure:"enrich"`
	Dedupe   DedupeConfig   `yaml:"dedupe" mapstructure:"dedupe"`
	Scrape   ScrapeConfig   `yaml:"scrape" mapstructure:"scrape"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the lead sink backend.
type StoreConfig struct {
	// Driver is one of sqlite, postgres, xlsx.
	Driver string `yaml:"driver" mapstructure:"driver"`
	// Path is the sqlite or xlsx file location.
	Path string `yaml:"path" mapstructure:"path"`
	// DatabaseURL is the postgres connection string.
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// OverpassConfig configures the Overpass API client.
type OverpassConfig struct {
	BaseURL          string  `yaml:"base_url" mapstructure:"base_url"`
	UserAgent        string  `yaml:"user_agent" mapstructure:"user_agent"`
	RequestsPerSec   float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
	Burst            int     `yaml:"burst" mapstructure:"burst"`
	RetryMaxAttempts int     `yaml:"retry_max_attempts" mapstructure:"retry_max_attempts"`
	RetryBaseMillis  int     `yaml:"retry_base_millis" mapstructure:"retry_base_millis"`
}

// FetchConfig configures how a run pulls records from the source.
type FetchConfig struct {
	// Limit caps a bounded run.
	Limit int `yaml:"limit" mapstructure:"limit"`
	// PageSize is the page size when Paginate is set.
	PageSize int `yaml:"page_size" mapstructure:"page_size"`
	// Paginate walks the source page by page instead of one bounded fetch.
	Paginate bool `yaml:"paginate" mapstructure:"paginate"`
}

// EnrichConfig configures optional LLM cleanup of raw records.
type EnrichConfig struct {
	// Provider is one of off, ollama, anthropic.
	Provider       string `yaml:"provider" mapstructure:"provider"`
	OllamaURL      string `yaml:"ollama_url" mapstructure:"ollama_url"`
	OllamaModel    string `yaml:"ollama_model" mapstructure:"ollama_model"`
	AnthropicKey   string `yaml:"anthropic_key" mapstructure:"anthropic_key"`
	AnthropicModel string `yaml:"anthropic_model" mapstructure:"anthropic_model"`
	TimeoutSecs    int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// DedupeConfig configures the embedding duplicate filter.
type DedupeConfig struct {
	// Enabled toggles the filter; off means every lead is admitted.
	Enabled             bool    `yaml:"enabled" mapstructure:"enabled"`
	OllamaURL           string  `yaml:"ollama_url" mapstructure:"ollama_url"`
	EmbedModel          string  `yaml:"embed_model" mapstructure:"embed_model"`
	SimilarityThreshold float64 `yaml:"similarity_threshold" mapstructure:"similarity_threshold"`
}

// ScrapeConfig configures the contact backfill page fetcher.
type ScrapeConfig struct {
	TimeoutSecs int `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// ServerConfig configures the HTTP server.
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
	v.SetEnvPrefix("LEADGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "leads.db")
	v.SetDefault("overpass.base_url", "https://overpass-api.de/api/interpreter")
	v.SetDefault("overpass.user_agent", "leadgen-cli/1.0")
	v.SetDefault("overpass.requests_per_sec", 1.0)
	v.SetDefault("overpass.burst", 1)
	v.SetDefault("overpass.retry_max_attempts", 3)
	v.SetDefault("overpass.retry_base_millis", 1000)
	v.SetDefault("fetch.limit", 200)
	v.SetDefault("fetch.page_size", 50)
	v.SetDefault("fetch.paginate", false)
	v.SetDefault("enrich.provider", "off")
	v.SetDefault("enrich.ollama_model", "llama3.2")
	v.SetDefault("enrich.anthropic_model", "claude-haiku-4-5-20251001")
	v.SetDefault("enrich.timeout_secs", 30)
	v.SetDefault("dedupe.enabled", true)
	v.SetDefault("dedupe.embed_model", "nomic-embed-text")
	v.SetDefault("dedupe.similarity_threshold", 0.85)
	v.SetDefault("scrape.timeout_secs", 8)
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

// Validate checks the configuration needed for the given mode. mode is
// one of run, serve, leads.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch c.Store.Driver {
	case "sqlite", "xlsx":
		if c.Store.Path == "" {
			problems = append(problems, "store.path is required")
		}
	case "postgres":
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown store.driver %q", c.Store.Driver))
	}

	switch c.Enrich.Provider {
	case "off", "ollama":
	case "anthropic":
		if c.Enrich.AnthropicKey == "" {
			problems = append(problems, "enrich.anthropic_key is required")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown enrich.provider %q", c.Enrich.Provider))
	}

	if c.Dedupe.SimilarityThreshold < 0 || c.Dedupe.SimilarityThreshold > 1 {
		problems = append(problems, "dedupe.similarity_threshold must be between 0 and 1")
	}

	switch mode {
	case "run", "leads":
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown mode %q", mode))
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
