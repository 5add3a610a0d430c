package bootstrap

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/raven-widget/internal/config"
	"github.com/wolfman30/raven-widget/internal/storage"
	"github.com/wolfman30/raven-widget/pkg/logging"
)

// ErrUnknownBackend is returned for a STORAGE_BACKEND the widget cannot open.
var ErrUnknownBackend = errors.New("bootstrap: unknown storage backend")

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// OpenStore opens the key-value backend named by cfg.StorageBackend.
func OpenStore(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (storage.Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	switch cfg.StorageBackend {
	case "memory":
		logger.Warn("using in-memory storage; visitor id will not survive restarts")
		return storage.NewMemoryStore(), nil
	case "", "sqlite":
		store, err := storage.NewSQLiteStore(cfg.StoragePath)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: open sqlite store: %w", err)
		}
		logger.Debug("sqlite storage opened", "path", cfg.StoragePath)
		return store, nil
	case "redis":
		client := BuildRedisClient(ctx, cfg, logger, true)
		if client == nil {
			return nil, fmt.Errorf("bootstrap: redis storage unavailable at %q", cfg.RedisAddr)
		}
		return storage.NewRedisStore(client, cfg.RedisKeyPrefix, 0, nil), nil
	case "postgres":
		if strings.TrimSpace(cfg.DatabaseURL) == "" {
			return nil, fmt.Errorf("bootstrap: DATABASE_URL is required for postgres storage")
		}
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: connect postgres: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("bootstrap: ping postgres: %w", err)
		}
		return storage.NewPostgresStore(pool), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.StorageBackend)
}
