// Package llm is the single path to the generative model. It wraps the
// Gemini generateContent endpoint with rate limiting, retries and typed
// errors.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"

	"github.com/yungbote/docinsight-backend/internal/config"
	"github.com/yungbote/docinsight-backend/internal/observability"
	"github.com/yungbote/docinsight-backend/internal/platform/httpx"
	"github.com/yungbote/docinsight-backend/internal/platform/logger"
)

const (
	DefaultEnrichTimeout = 120 * time.Second
	DefaultChatTimeout   = 60 * time.Second
)

// Request is one generateContent call. A non-nil Schema asks for JSON output
// constrained to it.
type Request struct {
	Prompt  string
	Schema  Schema
	Timeout time.Duration
}

type Client interface {
	GenerateText(ctx context.Context, req Request) (string, error)
	GenerateJSON(ctx context.Context, req Request, out any) error
}

type GeminiClient struct {
	log         *logger.Logger
	apiKey      string
	baseURL     string
	model       string
	httpClient  *http.Client
	maxAttempts int
	// rateBase is multiplied by 2^attempt after a 429; transientWait is the
	// flat pause after a timeout or network error.
	rateBase      time.Duration
	transientWait time.Duration
	limiter       *rate.Limiter

	sleep func(ctx context.Context, d time.Duration) error
	rndMu sync.Mutex
	rnd   *rand.Rand
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	ResponseMimeType string `json:"responseMimeType,omitempty"`
	ResponseSchema   Schema `json:"responseSchema,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
}

// NewGeminiClient never fails on a missing key; calls then return
// ErrConfiguration so the rest of the service keeps working.
func NewGeminiClient(log *logger.Logger, cfg config.ModelConfig, httpClient *http.Client) *GeminiClient {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gemini-1.5-flash-latest"
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	rateBase := cfg.RateLimitBackoff.Duration
	if rateBase <= 0 {
		rateBase = time.Second
	}
	transient := cfg.TransientBackoff.Duration
	if transient <= 0 {
		transient = time.Second
	}
	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	c := &GeminiClient{
		log:           log.With("service", "GeminiClient"),
		apiKey:        strings.TrimSpace(cfg.APIKey),
		baseURL:       baseURL,
		model:         model,
		httpClient:    httpClient,
		maxAttempts:   maxAttempts,
		rateBase:      rateBase,
		transientWait: transient,
		limiter:       limiter,
		sleep:         httpx.Sleep,
		rnd:           rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	if c.apiKey == "" {
		c.log.Warn("GEMINI_API_KEY is not set; model calls will fail with a configuration error")
	}
	return c
}

func (c *GeminiClient) Configured() bool { return c != nil && c.apiKey != "" }

func (c *GeminiClient) GenerateText(ctx context.Context, req Request) (string, error) {
	return c.generate(ctx, req)
}

// GenerateJSON decodes the model's text part into out.
func (c *GeminiClient) GenerateJSON(ctx context.Context, req Request, out any) error {
	text, err := c.generate(ctx, req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(stripFences(text)), out); err != nil {
		return fmt.Errorf("%w: decode structured output: %v", ErrBadRequest, err)
	}
	return nil
}

// stripFences removes a ```json fence some models add despite the mime type.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func (c *GeminiClient) generate(ctx context.Context, req Request) (text string, err error) {
	if c.apiKey == "" {
		return "", ErrConfiguration
	}
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultEnrichTimeout
	}

	ctx, span := observability.StartSpan(ctx, "llm.generate",
		attribute.String("llm.model", c.model),
		attribute.Bool("llm.structured", req.Schema != nil),
	)
	start := time.Now()
	defer func() {
		observability.Current().ObserveModelCall(Kind(err), time.Since(start))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, Kind(err))
		}
		span.End()
	}()

	body := generateRequest{Contents: []content{{Parts: []part{{Text: req.Prompt}}}}}
	if req.Schema != nil {
		body.GenerationConfig = &generationConfig{ResponseMimeType: "application/json", ResponseSchema: req.Schema}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return "", err
			}
		}
		span.SetAttributes(attribute.Int("llm.attempts", attempt+1))
		last := attempt == c.maxAttempts-1

		raw, status, err := c.doOnce(ctx, payload, timeout)
		switch {
		case err == nil && status == http.StatusTooManyRequests:
			lastErr = &HTTPError{StatusCode: status, Body: truncate(string(raw), 512)}
			if last {
				break
			}
			wait := c.backoff(attempt)
			observability.Current().IncModelRetry("rate_limited")
			c.log.Warn("Model rate limited; retrying", "attempt", attempt+1, "sleep", wait.String())
			if err := c.sleep(ctx, wait); err != nil {
				return "", err
			}
			continue

		case err == nil && (status < 200 || status >= 300):
			return "", &HTTPError{StatusCode: status, Body: truncate(string(raw), 2048)}

		case err == nil:
			return extractText(raw)

		case ctx.Err() != nil:
			return "", ctx.Err()

		case httpx.IsTimeout(err):
			if last {
				return "", fmt.Errorf("%w after %d attempts: %v", ErrTimeout, attempt+1, err)
			}
			lastErr = err
			observability.Current().IncModelRetry("timeout")

		case httpx.IsNetworkError(err):
			lastErr = err
			if last {
				break
			}
			observability.Current().IncModelRetry("network")

		default:
			return "", err
		}
		if last {
			break
		}
		c.log.Warn("Model request failed; retrying", "attempt", attempt+1, "error", lastErr)
		if err := c.sleep(ctx, c.transientWait); err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("%w: %v", ErrServiceUnavailable, lastErr)
}

func (c *GeminiClient) backoff(attempt int) time.Duration {
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return httpx.ExpBackoff(c.rateBase, attempt, time.Second, c.rnd)
}

func (c *GeminiClient) endpoint() string {
	return fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, url.PathEscape(c.model), url.QueryEscape(c.apiKey))
}

// doOnce performs one attempt bounded by timeout. A 2xx or 4xx/5xx response
// returns a nil error with its status; err is reserved for transport failures.
func (c *GeminiClient) doOnce(ctx context.Context, payload []byte, timeout time.Duration) ([]byte, int, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, c.endpoint(), bytes.NewReader(payload))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, redactKey(err, c.apiKey)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, redactKey(err, c.apiKey)
	}
	return raw, resp.StatusCode, nil
}

func extractText(raw []byte) (string, error) {
	var resp generateResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("%w: decode envelope: %v", ErrBadRequest, err)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: response has no candidates", ErrBadRequest)
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String(), nil
}

// url.Error embeds the request URL, which carries the key as a query param.
func redactKey(err error, key string) error {
	var uerr *url.Error
	if key == "" || !errors.As(err, &uerr) {
		return err
	}
	return &url.Error{Op: uerr.Op, URL: strings.ReplaceAll(uerr.URL, url.QueryEscape(key), "REDACTED"), Err: uerr.Err}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
