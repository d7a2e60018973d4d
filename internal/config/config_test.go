package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Tokenizer.Method != "char" {
		t.Errorf("tokenizer.method default = %q, want %q", cfg.Tokenizer.Method, "char")
	}
	if cfg.Classifier.SmallThreshold != 20 {
		t.Errorf("classifier.small_threshold default = %d, want 20", cfg.Classifier.SmallThreshold)
	}
	if !cfg.Batching.Enabled || cfg.Batching.MaxTokens != 1000 {
		t.Errorf("batching defaults = %+v, want enabled with 1000 tokens", cfg.Batching)
	}
	if cfg.Routing.Enabled {
		t.Error("routing should default to disabled")
	}
	if cfg.Infra.ConcurrencyThreshold != 10 || cfg.Infra.TokenLoadThreshold != 50000 {
		t.Errorf("infra thresholds = %d/%d, want 10/50000",
			cfg.Infra.ConcurrencyThreshold, cfg.Infra.TokenLoadThreshold)
	}
	if cfg.SLA.DeadlineSeconds != 3600 {
		t.Errorf("sla.deadline_seconds default = %v, want 3600", cfg.SLA.DeadlineSeconds)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	doc := `{
		"tokenizer": {"method": "api", "endpoint": "http://tokenizer.local"},
		"classifier": {"small_threshold": 50},
		"batching": {"enabled": false, "max_tokens": 500},
		"routing": {
			"enabled": true,
			"nmt": {"endpoint": "http://nmt.local", "api_key": "nk"},
			"llm": {"endpoint": "http://llm.local", "api_key": "lk", "model": "gpt-test"}
		},
		"sla": {"deadline_seconds": 120}
	}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Tokenizer.Method != "api" {
		t.Errorf("tokenizer.method = %q, want %q", cfg.Tokenizer.Method, "api")
	}
	if cfg.Classifier.SmallThreshold != 50 {
		t.Errorf("classifier.small_threshold = %d, want 50", cfg.Classifier.SmallThreshold)
	}
	if cfg.Batching.Enabled {
		t.Error("batching.enabled should be false")
	}
	if !cfg.Routing.Enabled || cfg.Routing.LLM.Model != "gpt-test" {
		t.Errorf("routing config not loaded: %+v", cfg.Routing)
	}
	if cfg.SLA.DeadlineSeconds != 120 {
		t.Errorf("sla.deadline_seconds = %v, want 120", cfg.SLA.DeadlineSeconds)
	}
	// Unset keys keep their defaults.
	if cfg.Infra.ConcurrencyThreshold != 10 {
		t.Errorf("infra.concurrency_threshold = %d, want default 10", cfg.Infra.ConcurrencyThreshold)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"classifier": {"small_threshold": 50}}`), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("LOCALIZATION_TOKENIZER_METHOD", "api")
	t.Setenv("LOCALIZATION_CLASSIFIER_SMALL_THRESHOLD", "75")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Tokenizer.Method != "api" {
		t.Errorf("tokenizer.method = %q, want env override %q", cfg.Tokenizer.Method, "api")
	}
	// Environment wins over the file value too.
	if cfg.Classifier.SmallThreshold != 75 {
		t.Errorf("classifier.small_threshold = %d, want env override 75", cfg.Classifier.SmallThreshold)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("Load() of missing file should fail")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{
			name:   "negative small threshold",
			mutate: func(c *Config) { c.Classifier.SmallThreshold = -1 },
		},
		{
			name:   "zero batch budget",
			mutate: func(c *Config) { c.Batching.MaxTokens = 0 },
		},
		{
			name:   "bad nmt mode",
			mutate: func(c *Config) { c.Routing.NMT.Mode = "carrier-pigeon" },
		},
		{
			name:   "zero concurrency threshold",
			mutate: func(c *Config) { c.Infra.ConcurrencyThreshold = 0 },
		},
		{
			name:   "zero sla deadline",
			mutate: func(c *Config) { c.SLA.DeadlineSeconds = 0 },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() should reject the configuration")
			}
		})
	}
}

func TestSnapshot_OmitsSecrets(t *testing.T) {
	cfg := Default()
	cfg.Routing.NMT.APIKey = "secret-nmt"
	cfg.Routing.LLM.APIKey = "secret-llm"

	snap := cfg.Snapshot()
	for k, v := range snap {
		if s, ok := v.(string); ok && (s == "secret-nmt" || s == "secret-llm") {
			t.Errorf("snapshot leaks secret under key %q", k)
		}
	}
}
