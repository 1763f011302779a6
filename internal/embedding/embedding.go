// Package embedding maps text into a shared vector space for relevance
// scoring. Providers are constructed once at startup and injected.
package embedding

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/docinsight-backend/internal/config"
	"github.com/yungbote/docinsight-backend/internal/platform/logger"
)

type Embedder interface {
	// Embed returns one vector per input, in input order.
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
	// Model identifies the vector space; vectors from different models are
	// not comparable and must not share cache entries.
	Model() string
}

// New builds the configured provider and wraps it with the configured cache.
// The returned closer releases cache resources (the bbolt file lock).
func New(log *logger.Logger, cfg config.EmbeddingConfig, rdb *goredis.Client) (Embedder, io.Closer, error) {
	var (
		base Embedder
		err  error
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "hash":
		base = NewHashEmbedder(cfg.Dimensions)
	case "openai":
		base, err = NewOpenAIEmbedder(log, cfg, nil)
	case "ollama":
		base, err = NewOllamaEmbedder(log, cfg)
	default:
		err = fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, nil, err
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Cache)) {
	case "", "none":
		return base, nopCloser{}, nil
	case "redis":
		if rdb == nil {
			return nil, nil, fmt.Errorf("redis embedding cache requires a redis client")
		}
		return NewCached(log, base, NewRedisCache(rdb, cfg.CacheTTL.Duration)), nopCloser{}, nil
	case "bolt":
		bc, err := NewBoltCache(cfg.CachePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open embedding cache: %w", err)
		}
		return NewCached(log, base, bc), bc, nil
	default:
		return nil, nil, fmt.Errorf("unknown embedding cache %q", cfg.Cache)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Cosine returns the cosine similarity of a and b in [-1, 1]. Mismatched or
// zero vectors score 0.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	if sim > 1 {
		return 1
	}
	if sim < -1 {
		return -1
	}
	return sim
}

func hasMissingEmbeddings(v [][]float32) bool {
	for _, e := range v {
		if len(e) == 0 {
			return true
		}
	}
	return false
}
