// Package config loads application configuration from file and environment
// and initializes the global logger.
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
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Search    SearchConfig    `yaml:"search" mapstructure:"search"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Fetch     FetchConfig     `yaml:"fetch" mapstructure:"fetch"`
	Render    RenderConfig    `yaml:"render" mapstructure:"render"`
	PDF       PDFConfig       `yaml:"pdf" mapstructure:"pdf"`
	Scorer    ScorerConfig    `yaml:"scorer" mapstructure:"scorer"`
	Extract   ExtractConfig   `yaml:"extract" mapstructure:"extract"`
	Pricing   PricingConfig   `yaml:"pricing" mapstructure:"pricing"`
	Batch     BatchConfig     `yaml:"batch" mapstructure:"batch"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // "sqlite" or "postgres"
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// SearchConfig holds search-provider API settings.
type SearchConfig struct {
	Key        string  `yaml:"key" mapstructure:"key"`
	BaseURL    string  `yaml:"base_url" mapstructure:"base_url"`
	MaxResults int     `yaml:"max_results" mapstructure:"max_results"`
	RatePerSec float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	Burst      int     `yaml:"burst" mapstructure:"burst"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key        string  `yaml:"key" mapstructure:"key"`
	Model      string  `yaml:"model" mapstructure:"model"`
	MaxTokens  int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	RatePerSec float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	Burst      int     `yaml:"burst" mapstructure:"burst"`
}

// FetchConfig configures the tiered content fetcher.
type FetchConfig struct {
	Tier1TimeoutSecs int     `yaml:"tier1_timeout_secs" mapstructure:"tier1_timeout_secs"`
	Tier2TimeoutSecs int     `yaml:"tier2_timeout_secs" mapstructure:"tier2_timeout_secs"`
	Tier3TimeoutSecs int     `yaml:"tier3_timeout_secs" mapstructure:"tier3_timeout_secs"`
	MinContentLength int     `yaml:"min_content_length" mapstructure:"min_content_length"`
	MaxBodyBytes     int64   `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	UserAgent        string  `yaml:"user_agent" mapstructure:"user_agent"`
	DomainRatePerSec float64 `yaml:"domain_rate_per_sec" mapstructure:"domain_rate_per_sec"`
	DomainBurst      int     `yaml:"domain_burst" mapstructure:"domain_burst"`
}

// RenderConfig configures the Tier-3 headless rendering pool.
type RenderConfig struct {
	PoolSize       int  `yaml:"pool_size" mapstructure:"pool_size"`
	Headless       bool `yaml:"headless" mapstructure:"headless"`
	WaitMillis     int  `yaml:"wait_millis" mapstructure:"wait_millis"`
	DisableSandbox bool `yaml:"disable_sandbox" mapstructure:"disable_sandbox"`
}

// PDFConfig configures PDF text extraction.
type PDFConfig struct {
	Provider      string `yaml:"provider" mapstructure:"provider"` // "purego" or "pdftotext"
	PdfToTextPath string `yaml:"pdftotext_path" mapstructure:"pdftotext_path"`
	DocumentDir   string `yaml:"document_dir" mapstructure:"document_dir"`
	FTPMirror     string `yaml:"ftp_mirror" mapstructure:"ftp_mirror"` // optional ftp:// base URL
}

// ScorerConfig configures source validation and scoring.
type ScorerConfig struct {
	ManufacturerDomains []string `yaml:"manufacturer_domains" mapstructure:"manufacturer_domains"`
	ExcludedDomains     []string `yaml:"excluded_domains" mapstructure:"excluded_domains"`
	MaxResults          int      `yaml:"max_results" mapstructure:"max_results"`
	ManufacturerBonus   float64  `yaml:"manufacturer_bonus" mapstructure:"manufacturer_bonus"`
}

// ExtractConfig configures the batched extraction engine.
type ExtractConfig struct {
	ContextBudgetChars int `yaml:"context_budget_chars" mapstructure:"context_budget_chars"`
	MaxRetries         int `yaml:"max_retries" mapstructure:"max_retries"`
}

// PricingConfig holds per-model token pricing (USD per million tokens).
type PricingConfig struct {
	Models map[string]ModelPricing `yaml:"models" mapstructure:"models"`
}

// ModelPricing holds one model's pricing.
type ModelPricing struct {
	InputPerMTok  string `yaml:"input_per_mtok" mapstructure:"input_per_mtok"`
	OutputPerMTok string `yaml:"output_per_mtok" mapstructure:"output_per_mtok"`
}

// BatchConfig configures bulk job processing.
type BatchConfig struct {
	MaxConcurrentProducts int `yaml:"max_concurrent_products" mapstructure:"max_concurrent_products"`
}

// ServerConfig configures the webhook server.
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
	v.SetEnvPrefix("PRODEX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "prodex.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("batch.max_concurrent_products", 3)
	v.SetDefault("search.base_url", "https://api.perplexity.ai")
	v.SetDefault("search.max_results", 20)
	v.SetDefault("search.rate_per_sec", 1.0)
	v.SetDefault("search.burst", 2)
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 8192)
	v.SetDefault("anthropic.rate_per_sec", 0.5)
	v.SetDefault("anthropic.burst", 1)
	v.SetDefault("fetch.tier1_timeout_secs", 10)
	v.SetDefault("fetch.tier2_timeout_secs", 20)
	v.SetDefault("fetch.tier3_timeout_secs", 45)
	v.SetDefault("fetch.min_content_length", 200)
	v.SetDefault("fetch.max_body_bytes", 1024*1024)
	v.SetDefault("fetch.user_agent", "Mozilla/5.0 (compatible; ProdexBot/1.0)")
	v.SetDefault("fetch.domain_rate_per_sec", 2.0)
	v.SetDefault("fetch.domain_burst", 4)
	v.SetDefault("render.pool_size", 3)
	v.SetDefault("render.headless", true)
	v.SetDefault("render.wait_millis", 1500)
	v.SetDefault("pdf.provider", "purego")
	v.SetDefault("pdf.pdftotext_path", "pdftotext")
	v.SetDefault("scorer.max_results", 10)
	v.SetDefault("scorer.manufacturer_bonus", 0.3)
	v.SetDefault("extract.context_budget_chars", 120000)
	v.SetDefault("extract.max_retries", 3)

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
