package redisx

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/docinsight-backend/internal/config"
	"github.com/yungbote/docinsight-backend/internal/platform/httpx"
	"github.com/yungbote/docinsight-backend/internal/platform/logger"
)

// Connect dials Redis and pings until it answers or the attempt budget runs
// out. Compose setups start the API before Redis is ready, hence the retry.
func Connect(ctx context.Context, log *logger.Logger, cfg config.RedisConfig) (*goredis.Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, fmt.Errorf("missing redis addr")
	}
	attempts := cfg.ConnectAttempts
	if attempts <= 0 {
		attempts = 1
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		lastErr = rdb.Ping(pingCtx).Err()
		cancel()
		if lastErr == nil {
			log.Info("Connected to Redis", "addr", addr, "attempt", attempt)
			return rdb, nil
		}
		log.Warn("Redis not ready", "addr", addr, "attempt", attempt, "of", attempts, "error", lastErr)
		if attempt == attempts {
			break
		}
		if err := httpx.Sleep(ctx, cfg.ConnectBackoff.Duration); err != nil {
			lastErr = err
			break
		}
	}
	_ = rdb.Close()
	return nil, fmt.Errorf("redis ping after %d attempts: %w", attempts, lastErr)
}
