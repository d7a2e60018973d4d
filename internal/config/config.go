// Package config loads and validates the pipeline configuration.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the full pipeline configuration. Fields are populated from a
// flat JSON document with environment-variable overrides and validated
// once at load time.
type Config struct {
	Tokenizer  TokenizerConfig  `mapstructure:"tokenizer"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Batching   BatchingConfig   `mapstructure:"batching"`
	Routing    RoutingConfig    `mapstructure:"routing"`
	Infra      InfraConfig      `mapstructure:"infra"`
	SLA        SLAConfig        `mapstructure:"sla"`
}

// TokenizerConfig selects the token estimation method.
type TokenizerConfig struct {
	Method   string `mapstructure:"method"`
	Endpoint string `mapstructure:"endpoint"`
}

// ClassifierConfig holds the small/large boundary.
type ClassifierConfig struct {
	SmallThreshold int `mapstructure:"small_threshold"`
}

// BatchingConfig controls adaptive batching.
type BatchingConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	MaxTokens    int    `mapstructure:"max_tokens"`
	MetadataPath string `mapstructure:"metadata_path"`
}

// RoutingConfig controls dual-model routing and its backends.
type RoutingConfig struct {
	Enabled   bool             `mapstructure:"enabled"`
	NMT       NMTBackendConfig `mapstructure:"nmt"`
	LLM       LLMBackendConfig `mapstructure:"llm"`
	StatsPath string           `mapstructure:"stats_path"`
}

// NMTBackendConfig configures the NMT backend.
type NMTBackendConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	APIKey   string `mapstructure:"api_key"`
	Mode     string `mapstructure:"mode"`
	Function string `mapstructure:"function"`
}

// LLMBackendConfig configures the LLM backend.
type LLMBackendConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	APIKey   string `mapstructure:"api_key"`
	Model    string `mapstructure:"model"`
}

// InfraConfig controls infrastructure routing.
type InfraConfig struct {
	Enabled              bool   `mapstructure:"enabled"`
	ConcurrencyThreshold int    `mapstructure:"concurrency_threshold"`
	TokenLoadThreshold   int    `mapstructure:"token_load_threshold"`
	StatsPath            string `mapstructure:"stats_path"`
}

// SLAConfig controls run tracking and report export.
type SLAConfig struct {
	Enabled                bool    `mapstructure:"enabled"`
	DeadlineSeconds        float64 `mapstructure:"deadline_seconds"`
	ReportPath             string  `mapstructure:"report_path"`
	IncludeSentenceMetrics bool    `mapstructure:"include_sentence_metrics"`
	IncludeLanguageMetrics bool    `mapstructure:"include_language_metrics"`
}

// setDefaults registers the documented default for every key.
func setDefaults(v *viper.Viper) {
	v.SetDefault("tokenizer.method", "char")
	v.SetDefault("tokenizer.endpoint", "")
	v.SetDefault("classifier.small_threshold", 20)
	v.SetDefault("batching.enabled", true)
	v.SetDefault("batching.max_tokens", 1000)
	v.SetDefault("batching.metadata_path", "")
	v.SetDefault("routing.enabled", false)
	v.SetDefault("routing.nmt.endpoint", "")
	v.SetDefault("routing.nmt.api_key", "")
	v.SetDefault("routing.nmt.mode", "http")
	v.SetDefault("routing.nmt.function", "")
	v.SetDefault("routing.llm.endpoint", "")
	v.SetDefault("routing.llm.api_key", "")
	v.SetDefault("routing.llm.model", "")
	v.SetDefault("routing.stats_path", "")
	v.SetDefault("infra.enabled", false)
	v.SetDefault("infra.concurrency_threshold", 10)
	v.SetDefault("infra.token_load_threshold", 50000)
	v.SetDefault("infra.stats_path", "")
	v.SetDefault("sla.enabled", true)
	v.SetDefault("sla.deadline_seconds", 3600)
	v.SetDefault("sla.report_path", "")
	v.SetDefault("sla.include_sentence_metrics", true)
	v.SetDefault("sla.include_language_metrics", true)
}

// Default returns a configuration with every documented default applied.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{}
	// Unmarshalling pure defaults cannot fail.
	_ = v.Unmarshal(cfg)
	return cfg
}

// Load reads the JSON configuration document at path, applies defaults
// and environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetEnvPrefix("LOCALIZATION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations that cannot work at all. Advisory
// conditions (very small or very large batch budgets) are handled as
// warnings at the point of use, not here.
func (c *Config) Validate() error {
	if c.Classifier.SmallThreshold < 0 {
		return fmt.Errorf("classifier.small_threshold must be non-negative, got %d", c.Classifier.SmallThreshold)
	}
	if c.Batching.MaxTokens <= 0 {
		return fmt.Errorf("batching.max_tokens must be positive, got %d", c.Batching.MaxTokens)
	}
	switch c.Routing.NMT.Mode {
	case "", "http", "lambda":
	default:
		return fmt.Errorf("routing.nmt.mode must be http or lambda, got %q", c.Routing.NMT.Mode)
	}
	if c.Infra.ConcurrencyThreshold <= 0 {
		return fmt.Errorf("infra.concurrency_threshold must be positive, got %d", c.Infra.ConcurrencyThreshold)
	}
	if c.Infra.TokenLoadThreshold <= 0 {
		return fmt.Errorf("infra.token_load_threshold must be positive, got %d", c.Infra.TokenLoadThreshold)
	}
	if c.SLA.DeadlineSeconds <= 0 {
		return fmt.Errorf("sla.deadline_seconds must be positive, got %v", c.SLA.DeadlineSeconds)
	}
	return nil
}

// Snapshot returns the configuration as a flat map for inclusion in run
// reports. Secrets are omitted.
func (c *Config) Snapshot() map[string]any {
	return map[string]any{
		"tokenizer.method":           c.Tokenizer.Method,
		"classifier.small_threshold": c.Classifier.SmallThreshold,
		"batching.enabled":           c.Batching.Enabled,
		"batching.max_tokens":        c.Batching.MaxTokens,
		"routing.enabled":            c.Routing.Enabled,
		"routing.nmt.mode":           c.Routing.NMT.Mode,
		"infra.enabled":              c.Infra.Enabled,
		"sla.deadline_seconds":       c.SLA.DeadlineSeconds,
	}
}
