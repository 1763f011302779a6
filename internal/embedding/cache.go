package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/docinsight-backend/internal/platform/logger"
)

// Cache stores vectors under keys derived from (model, text).
type Cache interface {
	GetMany(ctx context.Context, keys []string) (map[string][]float32, error)
	PutMany(ctx context.Context, vecs map[string][]float32) error
}

// CacheKey is stable across processes so shared caches stay warm between
// deploys.
func CacheKey(model, text string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + text))
	return "emb:" + model + ":" + hex.EncodeToString(sum[:16])
}

// Cached serves hits from the cache and embeds only the misses. Cache errors
// are logged and treated as misses.
type Cached struct {
	log   *logger.Logger
	inner Embedder
	cache Cache
}

func NewCached(log *logger.Logger, inner Embedder, cache Cache) *Cached {
	return &Cached{log: log.With("service", "EmbeddingCache"), inner: inner, cache: cache}
}

func (c *Cached) Model() string { return c.inner.Model() }

func (c *Cached) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return [][]float32{}, nil
	}
	model := c.inner.Model()
	keys := make([]string, len(inputs))
	for i, in := range inputs {
		keys[i] = CacheKey(model, in)
	}

	hits, err := c.cache.GetMany(ctx, keys)
	if err != nil {
		c.log.Warn("Embedding cache read failed", "error", err)
		hits = nil
	}

	out := make([][]float32, len(inputs))
	var (
		missIdx   []int
		missTexts []string
	)
	pending := map[string]int{}
	for i, k := range keys {
		if v, ok := hits[k]; ok {
			out[i] = v
			continue
		}
		// identical inputs in one batch are embedded once
		if _, dup := pending[k]; dup {
			missIdx = append(missIdx, i)
			continue
		}
		pending[k] = len(missTexts)
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, inputs[i])
	}
	if len(missTexts) == 0 {
		return out, nil
	}

	vecs, err := c.inner.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	fresh := make(map[string][]float32, len(vecs))
	for _, i := range missIdx {
		v := vecs[pending[keys[i]]]
		out[i] = v
		fresh[keys[i]] = v
	}
	if err := c.cache.PutMany(ctx, fresh); err != nil {
		c.log.Warn("Embedding cache write failed", "error", err)
	}
	return out, nil
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("corrupt vector: %d bytes", len(b))
	}
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out, nil
}

// RedisCache shares vectors across API replicas.
type RedisCache struct {
	rdb *goredis.Client
	ttl time.Duration
}

func NewRedisCache(rdb *goredis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

func (r *RedisCache) GetMany(ctx context.Context, keys []string) (map[string][]float32, error) {
	out := map[string][]float32{}
	if len(keys) == 0 {
		return out, nil
	}
	vals, err := r.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		vec, err := decodeVector([]byte(s))
		if err != nil {
			continue
		}
		out[keys[i]] = vec
	}
	return out, nil
}

func (r *RedisCache) PutMany(ctx context.Context, vecs map[string][]float32) error {
	if len(vecs) == 0 {
		return nil
	}
	_, err := r.rdb.Pipelined(ctx, func(p goredis.Pipeliner) error {
		for k, v := range vecs {
			p.Set(ctx, k, encodeVector(v), r.ttl)
		}
		return nil
	})
	return err
}
