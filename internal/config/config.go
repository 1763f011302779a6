package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration decodes from "90s"-style strings or a bare number of seconds in
// JSON, YAML and TOML config files.
type Duration struct {
	time.Duration
}

func D(d time.Duration) Duration { return Duration{Duration: d} }

func parseDuration(raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("duration must look like \"5s\" or a number of seconds, got %q", raw)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "" || s == "null" {
		d.Duration = 0
		return nil
	}
	if s[0] == '"' {
		var u string
		if err := json.Unmarshal(b, &u); err != nil {
			return err
		}
		s = u
	}
	v, err := parseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	v, err := parseDuration(node.Value)
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// UnmarshalText is used by the TOML decoder.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := parseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Duration.String())
}

type HTTPConfig struct {
	Addr              string   `json:"addr" yaml:"addr" toml:"addr"`
	ReadHeaderTimeout Duration `json:"read_header_timeout" yaml:"read_header_timeout" toml:"read_header_timeout"`
	IdleTimeout       Duration `json:"idle_timeout" yaml:"idle_timeout" toml:"idle_timeout"`
	ShutdownTimeout   Duration `json:"shutdown_timeout" yaml:"shutdown_timeout" toml:"shutdown_timeout"`
	MaxUploadBytes    int64    `json:"max_upload_bytes" yaml:"max_upload_bytes" toml:"max_upload_bytes"`
	CORSOrigins       []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
	MetricsEnabled    bool     `json:"metrics_enabled" yaml:"metrics_enabled" toml:"metrics_enabled"`
}

type RedisConfig struct {
	Addr            string   `json:"addr" yaml:"addr" toml:"addr"`
	Password        string   `json:"password" yaml:"password" toml:"password"`
	DB              int      `json:"db" yaml:"db" toml:"db"`
	ConnectAttempts int      `json:"connect_attempts" yaml:"connect_attempts" toml:"connect_attempts"`
	ConnectBackoff  Duration `json:"connect_backoff" yaml:"connect_backoff" toml:"connect_backoff"`
}

type AuthConfig struct {
	JWTSecret string   `json:"jwt_secret" yaml:"jwt_secret" toml:"jwt_secret"`
	AccessTTL Duration `json:"access_ttl" yaml:"access_ttl" toml:"access_ttl"`
}

// ModelConfig drives the generative-model caller.
type ModelConfig struct {
	APIKey           string   `json:"api_key" yaml:"api_key" toml:"api_key"`
	BaseURL          string   `json:"base_url" yaml:"base_url" toml:"base_url"`
	Model            string   `json:"model" yaml:"model" toml:"model"`
	MaxAttempts      int      `json:"max_attempts" yaml:"max_attempts" toml:"max_attempts"`
	RateLimitBackoff Duration `json:"rate_limit_backoff" yaml:"rate_limit_backoff" toml:"rate_limit_backoff"`
	TransientBackoff Duration `json:"transient_backoff" yaml:"transient_backoff" toml:"transient_backoff"`
	EnrichTimeout    Duration `json:"enrich_timeout" yaml:"enrich_timeout" toml:"enrich_timeout"`
	ChatTimeout      Duration `json:"chat_timeout" yaml:"chat_timeout" toml:"chat_timeout"`
	// RequestsPerSecond <= 0 disables the client-side limiter.
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second" toml:"requests_per_second"`
	Burst             int     `json:"burst" yaml:"burst" toml:"burst"`
}

type EmbeddingConfig struct {
	Provider   string   `json:"provider" yaml:"provider" toml:"provider"`
	Model      string   `json:"model" yaml:"model" toml:"model"`
	BaseURL    string   `json:"base_url" yaml:"base_url" toml:"base_url"`
	APIKey     string   `json:"api_key" yaml:"api_key" toml:"api_key"`
	Dimensions int      `json:"dimensions" yaml:"dimensions" toml:"dimensions"`
	Timeout    Duration `json:"timeout" yaml:"timeout" toml:"timeout"`
	Cache      string   `json:"cache" yaml:"cache" toml:"cache"`
	CachePath  string   `json:"cache_path" yaml:"cache_path" toml:"cache_path"`
	CacheTTL   Duration `json:"cache_ttl" yaml:"cache_ttl" toml:"cache_ttl"`
}

type RankingConfig struct {
	TopN            int    `json:"top_n" yaml:"top_n" toml:"top_n"`
	SnippetLimit    int    `json:"snippet_limit" yaml:"snippet_limit" toml:"snippet_limit"`
	MaxSnippetChars int    `json:"max_snippet_chars" yaml:"max_snippet_chars" toml:"max_snippet_chars"`
	KeywordAnalyzer string `json:"keyword_analyzer" yaml:"keyword_analyzer" toml:"keyword_analyzer"`
}

type DocAIConfig struct {
	ProjectID        string `json:"project_id" yaml:"project_id" toml:"project_id"`
	Location         string `json:"location" yaml:"location" toml:"location"`
	ProcessorID      string `json:"processor_id" yaml:"processor_id" toml:"processor_id"`
	ProcessorVersion string `json:"processor_version" yaml:"processor_version" toml:"processor_version"`
}

type OutlineConfig struct {
	Backend       string      `json:"backend" yaml:"backend" toml:"backend"`
	PDFToTextPath string      `json:"pdftotext_path" yaml:"pdftotext_path" toml:"pdftotext_path"`
	Timeout       Duration    `json:"timeout" yaml:"timeout" toml:"timeout"`
	MaxParallel   int         `json:"max_parallel" yaml:"max_parallel" toml:"max_parallel"`
	DocAI         DocAIConfig `json:"docai" yaml:"docai" toml:"docai"`
}

type StorageConfig struct {
	Mode          string `json:"mode" yaml:"mode" toml:"mode"`
	LocalDir      string `json:"local_dir" yaml:"local_dir" toml:"local_dir"`
	PublicPrefix  string `json:"public_prefix" yaml:"public_prefix" toml:"public_prefix"`
	Bucket        string `json:"bucket" yaml:"bucket" toml:"bucket"`
	PublicBaseURL string `json:"public_base_url" yaml:"public_base_url" toml:"public_base_url"`
}

type SpeechConfig struct {
	Provider string            `json:"provider" yaml:"provider" toml:"provider"`
	BaseURL  string            `json:"base_url" yaml:"base_url" toml:"base_url"`
	APIKey   string            `json:"api_key" yaml:"api_key" toml:"api_key"`
	Model    string            `json:"model" yaml:"model" toml:"model"`
	Voices   map[string]string `json:"voices" yaml:"voices" toml:"voices"`
}

type TelemetryConfig struct {
	Enabled      bool              `json:"enabled" yaml:"enabled" toml:"enabled"`
	ServiceName  string            `json:"service_name" yaml:"service_name" toml:"service_name"`
	SamplerRatio float64           `json:"sampler_ratio" yaml:"sampler_ratio" toml:"sampler_ratio"`
	Endpoint     string            `json:"endpoint" yaml:"endpoint" toml:"endpoint"`
	Headers      map[string]string `json:"headers" yaml:"headers" toml:"headers"`
	Insecure     bool              `json:"insecure" yaml:"insecure" toml:"insecure"`
}

type Config struct {
	Env       string          `json:"env" yaml:"env" toml:"env"`
	Version   string          `json:"version" yaml:"version" toml:"version"`
	HTTP      HTTPConfig      `json:"http" yaml:"http" toml:"http"`
	Redis     RedisConfig     `json:"redis" yaml:"redis" toml:"redis"`
	Auth      AuthConfig      `json:"auth" yaml:"auth" toml:"auth"`
	Model     ModelConfig     `json:"model" yaml:"model" toml:"model"`
	Embedding EmbeddingConfig `json:"embedding" yaml:"embedding" toml:"embedding"`
	Ranking   RankingConfig   `json:"ranking" yaml:"ranking" toml:"ranking"`
	Outline   OutlineConfig   `json:"outline" yaml:"outline" toml:"outline"`
	Storage   StorageConfig   `json:"storage" yaml:"storage" toml:"storage"`
	Speech    SpeechConfig    `json:"speech" yaml:"speech" toml:"speech"`
	Telemetry TelemetryConfig `json:"telemetry" yaml:"telemetry" toml:"telemetry"`
}
