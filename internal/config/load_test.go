package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv(EnvConfigPath, "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Ranking.TopN != 5 {
		t.Fatalf("top_n=%d want 5", cfg.Ranking.TopN)
	}
	if cfg.Model.MaxAttempts != 5 || cfg.Model.RateLimitBackoff.Duration != time.Second {
		t.Fatalf("unexpected model defaults: %+v", cfg.Model)
	}
	if cfg.Model.EnrichTimeout.Duration != 120*time.Second {
		t.Fatalf("enrich timeout=%s", cfg.Model.EnrichTimeout.Duration)
	}
}

func TestLoadYAML(t *testing.T) {
	p := writeConfig(t, "config.yaml", `
http:
  addr: ":9090"
  shutdown_timeout: 3s
ranking:
  top_n: 7
model:
  chat_timeout: 45
embedding:
  provider: OLLAMA
`)
	t.Setenv(EnvConfigPath, p)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Addr != ":9090" {
		t.Fatalf("addr=%q", cfg.HTTP.Addr)
	}
	if cfg.HTTP.ShutdownTimeout.Duration != 3*time.Second {
		t.Fatalf("shutdown=%s", cfg.HTTP.ShutdownTimeout.Duration)
	}
	if cfg.Model.ChatTimeout.Duration != 45*time.Second {
		t.Fatalf("chat timeout=%s", cfg.Model.ChatTimeout.Duration)
	}
	if cfg.Ranking.TopN != 7 {
		t.Fatalf("top_n=%d", cfg.Ranking.TopN)
	}
	if cfg.Embedding.Provider != "ollama" {
		t.Fatalf("provider=%q", cfg.Embedding.Provider)
	}
	// untouched sections keep their defaults
	if cfg.Redis.ConnectAttempts != 10 {
		t.Fatalf("redis attempts=%d", cfg.Redis.ConnectAttempts)
	}
}

func TestLoadTOML(t *testing.T) {
	p := writeConfig(t, "config.toml", `
env = "production"

[storage]
mode = "gcs"
bucket = "docinsight-files"

[model]
enrich_timeout = "90s"
`)
	t.Setenv(EnvConfigPath, p)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.Mode != "gcs" || cfg.Storage.Bucket != "docinsight-files" {
		t.Fatalf("storage=%+v", cfg.Storage)
	}
	if cfg.Model.EnrichTimeout.Duration != 90*time.Second {
		t.Fatalf("enrich timeout=%s", cfg.Model.EnrichTimeout.Duration)
	}
}

func TestLoadJSONRejectsUnknownFields(t *testing.T) {
	p := writeConfig(t, "config.json", `{"http":{"addr":":1"},"bogus":true}`)
	t.Setenv(EnvConfigPath, p)
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for unknown field")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	p := writeConfig(t, "config.json", `{"http":{"addr":":1"},"ranking":{"top_n":3}}`)
	t.Setenv(EnvConfigPath, p)
	t.Setenv("HTTP_ADDR", ":7777")
	t.Setenv("TOP_N", "9")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("GEMINI_API_KEY", "k")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Addr != ":7777" || cfg.Ranking.TopN != 9 {
		t.Fatalf("env overrides not applied: addr=%q top_n=%d", cfg.HTTP.Addr, cfg.Ranking.TopN)
	}
	if cfg.Redis.Addr != "cache:6380" {
		t.Fatalf("redis addr=%q", cfg.Redis.Addr)
	}
	if cfg.Model.APIKey != "k" {
		t.Fatalf("api key not applied")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"top_n", func(c *Config) { c.Ranking.TopN = 0 }, "top_n"},
		{"provider", func(c *Config) { c.Embedding.Provider = "bert" }, "embedding.provider"},
		{"bolt path", func(c *Config) { c.Embedding.Cache = "bolt" }, "cache_path"},
		{"gcs bucket", func(c *Config) { c.Storage.Mode = "gcs" }, "storage.bucket"},
		{"docai", func(c *Config) { c.Outline.Backend = "docai" }, "docai"},
		{"speech", func(c *Config) { c.Speech.Provider = "azure" }, "speech.provider"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("Validate()=%v, want error containing %q", err, tc.want)
			}
		})
	}
	if err := Default().Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}
