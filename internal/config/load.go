package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/yungbote/docinsight-backend/internal/platform/envutil"
)

const EnvConfigPath = "DOCINSIGHT_CONFIG_PATH"

var defaultFiles = []string{"config.yaml", "config.yml", "config.json", "config.toml"}

func Default() *Config {
	return &Config{
		Env:     "development",
		Version: "3.1.0",
		HTTP: HTTPConfig{
			Addr:              ":8000",
			ReadHeaderTimeout: D(10 * time.Second),
			IdleTimeout:       D(2 * time.Minute),
			ShutdownTimeout:   D(10 * time.Second),
			MaxUploadBytes:    64 << 20,
			CORSOrigins:       []string{"http://localhost:3000"},
		},
		Redis: RedisConfig{
			Addr:            "localhost:6379",
			ConnectAttempts: 10,
			ConnectBackoff:  D(2 * time.Second),
		},
		Auth: AuthConfig{
			AccessTTL: D(24 * time.Hour),
		},
		Model: ModelConfig{
			BaseURL:          "https://generativelanguage.googleapis.com/v1beta",
			Model:            "gemini-1.5-flash-latest",
			MaxAttempts:      5,
			RateLimitBackoff: D(time.Second),
			TransientBackoff: D(time.Second),
			EnrichTimeout:    D(120 * time.Second),
			ChatTimeout:      D(60 * time.Second),
			Burst:            1,
		},
		Embedding: EmbeddingConfig{
			Provider:   "hash",
			Dimensions: 384,
			Timeout:    D(30 * time.Second),
			Cache:      "none",
			CacheTTL:   D(7 * 24 * time.Hour),
		},
		Ranking: RankingConfig{
			TopN:            5,
			SnippetLimit:    5,
			MaxSnippetChars: 1000,
			KeywordAnalyzer: "prose",
		},
		Outline: OutlineConfig{
			Backend:       "local",
			PDFToTextPath: "pdftotext",
			Timeout:       D(2 * time.Minute),
			MaxParallel:   4,
			DocAI:         DocAIConfig{Location: "us"},
		},
		Storage: StorageConfig{
			Mode:         "local",
			LocalDir:     "session_files",
			PublicPrefix: "/session_files",
		},
		Speech: SpeechConfig{
			Provider: "none",
			Voices: map[string]string{
				"en": "en-US-Neural2-F",
				"hi": "hi-IN-Neural2-A",
			},
		},
		Telemetry: TelemetryConfig{
			ServiceName:  "docinsight",
			SamplerRatio: 0.1,
		},
	}
}

// Load builds the configuration from defaults, an optional config file and
// environment overrides, in that order, then validates it.
func Load() (*Config, error) {
	cfg := Default()

	path, err := resolvePath()
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := decodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
	}

	applyEnv(cfg)
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func resolvePath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		if _, err := os.Stat(p); err != nil {
			return "", fmt.Errorf("%s=%q: %w", EnvConfigPath, p, err)
		}
		return p, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", nil
	}
	for _, name := range defaultFiles {
		p := filepath.Join(wd, "config", name)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", nil
}

func decodeFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(b, cfg)
	case ".toml":
		return toml.Unmarshal(b, cfg)
	case ".json", "":
		dec := json.NewDecoder(bytes.NewReader(b))
		dec.DisallowUnknownFields()
		return dec.Decode(cfg)
	default:
		return fmt.Errorf("unsupported config extension %q", filepath.Ext(path))
	}
}

func applyEnv(cfg *Config) {
	cfg.Env = envutil.String("LOG_MODE", cfg.Env)
	cfg.HTTP.Addr = envutil.String("HTTP_ADDR", cfg.HTTP.Addr)
	cfg.HTTP.CORSOrigins = envutil.List("CORS_ORIGINS", cfg.HTTP.CORSOrigins)
	cfg.HTTP.MetricsEnabled = envutil.Bool("METRICS_ENABLED", cfg.HTTP.MetricsEnabled)

	if addr := strings.TrimSpace(os.Getenv("REDIS_ADDR")); addr != "" {
		cfg.Redis.Addr = addr
	} else if host := strings.TrimSpace(os.Getenv("REDIS_HOST")); host != "" {
		cfg.Redis.Addr = fmt.Sprintf("%s:%d", host, envutil.Int("REDIS_PORT", 6379))
	}
	cfg.Redis.Password = envutil.String("REDIS_PASSWORD", cfg.Redis.Password)

	cfg.Auth.JWTSecret = envutil.String("JWT_SECRET_KEY", cfg.Auth.JWTSecret)
	cfg.Auth.AccessTTL.Duration = envutil.Duration("JWT_ACCESS_TTL", cfg.Auth.AccessTTL.Duration)

	cfg.Model.APIKey = envutil.String("GEMINI_API_KEY", cfg.Model.APIKey)
	cfg.Model.Model = envutil.String("GEMINI_MODEL", cfg.Model.Model)
	cfg.Model.BaseURL = envutil.String("GEMINI_BASE_URL", cfg.Model.BaseURL)
	cfg.Model.RequestsPerSecond = envutil.Float("GEMINI_RPS", cfg.Model.RequestsPerSecond)

	cfg.Embedding.Provider = envutil.String("EMBEDDING_PROVIDER", cfg.Embedding.Provider)
	cfg.Embedding.Model = envutil.String("EMBEDDING_MODEL", cfg.Embedding.Model)
	cfg.Embedding.Cache = envutil.String("EMBEDDING_CACHE", cfg.Embedding.Cache)
	cfg.Embedding.CachePath = envutil.String("EMBEDDING_CACHE_PATH", cfg.Embedding.CachePath)
	switch strings.ToLower(cfg.Embedding.Provider) {
	case "openai":
		cfg.Embedding.APIKey = envutil.String("OPENAI_API_KEY", cfg.Embedding.APIKey)
		cfg.Embedding.BaseURL = envutil.String("OPENAI_BASE_URL", cfg.Embedding.BaseURL)
	case "ollama":
		cfg.Embedding.BaseURL = envutil.String("OLLAMA_URL", cfg.Embedding.BaseURL)
	}

	cfg.Ranking.TopN = envutil.Int("TOP_N", cfg.Ranking.TopN)
	cfg.Ranking.KeywordAnalyzer = envutil.String("KEYWORD_ANALYZER", cfg.Ranking.KeywordAnalyzer)

	cfg.Outline.Backend = envutil.String("OUTLINE_BACKEND", cfg.Outline.Backend)
	cfg.Outline.PDFToTextPath = envutil.String("PDFTOTEXT_PATH", cfg.Outline.PDFToTextPath)
	cfg.Outline.DocAI.ProjectID = envutil.String("DOCUMENTAI_PROJECT_ID", cfg.Outline.DocAI.ProjectID)
	cfg.Outline.DocAI.Location = envutil.String("DOCUMENTAI_LOCATION", cfg.Outline.DocAI.Location)
	cfg.Outline.DocAI.ProcessorID = envutil.String("DOCUMENTAI_PROCESSOR_ID", cfg.Outline.DocAI.ProcessorID)
	cfg.Outline.DocAI.ProcessorVersion = envutil.String("DOCUMENTAI_PROCESSOR_VERSION", cfg.Outline.DocAI.ProcessorVersion)

	cfg.Storage.Mode = envutil.String("OBJECT_STORAGE_MODE", cfg.Storage.Mode)
	cfg.Storage.LocalDir = envutil.String("SESSION_FILES_DIR", cfg.Storage.LocalDir)
	cfg.Storage.Bucket = envutil.String("GCS_BUCKET_NAME", cfg.Storage.Bucket)
	cfg.Storage.PublicBaseURL = envutil.String("GCS_PUBLIC_BASE_URL", cfg.Storage.PublicBaseURL)

	cfg.Speech.Provider = envutil.String("TTS_PROVIDER", cfg.Speech.Provider)
	cfg.Speech.BaseURL = envutil.String("TTS_BASE_URL", cfg.Speech.BaseURL)
	cfg.Speech.APIKey = envutil.String("TTS_API_KEY", cfg.Speech.APIKey)

	cfg.Telemetry.Enabled = envutil.Bool("OTEL_ENABLED", cfg.Telemetry.Enabled)
	cfg.Telemetry.ServiceName = envutil.String("OTEL_SERVICE_NAME", cfg.Telemetry.ServiceName)
	cfg.Telemetry.SamplerRatio = envutil.Float("OTEL_SAMPLER_RATIO", cfg.Telemetry.SamplerRatio)
	cfg.Telemetry.Endpoint = envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Telemetry.Endpoint)
	cfg.Telemetry.Insecure = envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", cfg.Telemetry.Insecure)
	if raw := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS")); raw != "" {
		cfg.Telemetry.Headers = parseHeaders(raw)
	}
}

func parseHeaders(raw string) map[string]string {
	headers := map[string]string{}
	for _, part := range strings.Split(raw, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		k, v := strings.TrimSpace(kv[0]), strings.TrimSpace(kv[1])
		if k != "" && v != "" {
			headers[k] = v
		}
	}
	if len(headers) == 0 {
		return nil
	}
	return headers
}

func (c *Config) normalize() {
	c.Embedding.Provider = strings.ToLower(strings.TrimSpace(c.Embedding.Provider))
	c.Embedding.Cache = strings.ToLower(strings.TrimSpace(c.Embedding.Cache))
	c.Outline.Backend = strings.ToLower(strings.TrimSpace(c.Outline.Backend))
	c.Storage.Mode = strings.ToLower(strings.TrimSpace(c.Storage.Mode))
	c.Speech.Provider = strings.ToLower(strings.TrimSpace(c.Speech.Provider))
	c.Ranking.KeywordAnalyzer = strings.ToLower(strings.TrimSpace(c.Ranking.KeywordAnalyzer))
	c.Model.BaseURL = strings.TrimRight(strings.TrimSpace(c.Model.BaseURL), "/")
	c.Embedding.BaseURL = strings.TrimRight(strings.TrimSpace(c.Embedding.BaseURL), "/")
	c.Speech.BaseURL = strings.TrimRight(strings.TrimSpace(c.Speech.BaseURL), "/")

	if c.Ranking.SnippetLimit <= 0 {
		c.Ranking.SnippetLimit = 5
	}
	if c.Ranking.MaxSnippetChars <= 0 {
		c.Ranking.MaxSnippetChars = 1000
	}
	if c.Model.MaxAttempts <= 0 {
		c.Model.MaxAttempts = 5
	}
	if c.Outline.MaxParallel <= 0 {
		c.Outline.MaxParallel = 4
	}
	if c.Telemetry.SamplerRatio < 0 {
		c.Telemetry.SamplerRatio = 0
	}
	if c.Telemetry.SamplerRatio > 1 {
		c.Telemetry.SamplerRatio = 1
	}
}

func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.HTTP.Addr) == "" {
		errs = append(errs, errors.New("http.addr is required"))
	}
	if c.Ranking.TopN < 1 {
		errs = append(errs, fmt.Errorf("ranking.top_n must be >= 1, got %d", c.Ranking.TopN))
	}
	switch c.Embedding.Provider {
	case "hash", "openai", "ollama":
	default:
		errs = append(errs, fmt.Errorf("unknown embedding.provider %q", c.Embedding.Provider))
	}
	switch c.Embedding.Cache {
	case "", "none", "redis", "bolt":
	default:
		errs = append(errs, fmt.Errorf("unknown embedding.cache %q", c.Embedding.Cache))
	}
	if c.Embedding.Cache == "bolt" && strings.TrimSpace(c.Embedding.CachePath) == "" {
		errs = append(errs, errors.New("embedding.cache_path is required for the bolt cache"))
	}
	switch c.Ranking.KeywordAnalyzer {
	case "prose", "none":
	default:
		errs = append(errs, fmt.Errorf("unknown ranking.keyword_analyzer %q", c.Ranking.KeywordAnalyzer))
	}
	switch c.Outline.Backend {
	case "local":
	case "docai":
		if c.Outline.DocAI.ProjectID == "" || c.Outline.DocAI.ProcessorID == "" {
			errs = append(errs, errors.New("outline.docai requires project_id and processor_id"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown outline.backend %q", c.Outline.Backend))
	}
	switch c.Storage.Mode {
	case "local":
		if strings.TrimSpace(c.Storage.LocalDir) == "" {
			errs = append(errs, errors.New("storage.local_dir is required in local mode"))
		}
	case "gcs":
		if strings.TrimSpace(c.Storage.Bucket) == "" {
			errs = append(errs, errors.New("storage.bucket is required in gcs mode"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage.mode %q", c.Storage.Mode))
	}
	switch c.Speech.Provider {
	case "none", "google", "openai":
	default:
		errs = append(errs, fmt.Errorf("unknown speech.provider %q", c.Speech.Provider))
	}
	return errors.Join(errs...)
}
