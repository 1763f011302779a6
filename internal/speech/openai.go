package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yungbote/docinsight-backend/internal/config"
	"github.com/yungbote/docinsight-backend/internal/platform/logger"
)

const openAIMaxInputChars = 4000

// OpenAISynthesizer talks to an OpenAI-compatible /v1/audio/speech endpoint.
type OpenAISynthesizer struct {
	log        *logger.Logger
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	voices     map[string]string
}

func NewOpenAISynthesizer(log *logger.Logger, cfg config.SpeechConfig, httpClient *http.Client) (*OpenAISynthesizer, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("openai speech: api key is required")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 2 * time.Minute}
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "tts-1"
	}
	return &OpenAISynthesizer{
		log:        log.With("service", "OpenAISynthesizer"),
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(cfg.APIKey),
		model:      model,
		voices:     cfg.Voices,
	}, nil
}

type speechRequest struct {
	Model          string `json:"model"`
	Input          string `json:"input"`
	Voice          string `json:"voice"`
	ResponseFormat string `json:"response_format"`
}

func (o *OpenAISynthesizer) Synthesize(ctx context.Context, text, lang string) ([]byte, error) {
	voice := voiceFor(o.voices, lang)
	// Google voice names mean nothing to this API.
	if strings.Count(voice, "-") >= 2 {
		voice = "alloy"
	}
	chunks := chunkText(text, openAIMaxInputChars)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("synthesize: empty text")
	}
	var audio []byte
	for i, chunk := range chunks {
		b, err := o.doOnce(ctx, speechRequest{Model: o.model, Input: chunk, Voice: voice, ResponseFormat: "mp3"})
		if err != nil {
			return nil, fmt.Errorf("synthesize chunk %d/%d: %w", i+1, len(chunks), err)
		}
		audio = append(audio, b...)
	}
	return audio, nil
}

func (o *OpenAISynthesizer) doOnce(ctx context.Context, body speechRequest) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/v1/audio/speech", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := string(raw)
		if len(msg) > 512 {
			msg = msg[:512]
		}
		return nil, fmt.Errorf("speech http %d: %s", resp.StatusCode, msg)
	}
	return raw, nil
}

func (o *OpenAISynthesizer) Close() error { return nil }
