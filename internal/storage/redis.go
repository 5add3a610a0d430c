package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// RedisStore keeps widget identifiers in Redis so a fleet of kiosks (or
// several machines of one operator) can share a single visitor profile.
type RedisStore struct {
	redis  *redis.Client
	prefix string
	ttl    time.Duration
	tracer trace.Tracer
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore wraps a client. Keys are namespaced with prefix; a zero ttl
// keeps values until deleted.
func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration, tracer trace.Tracer) *RedisStore {
	if client == nil {
		panic("storage: redis client cannot be nil")
	}
	if tracer == nil {
		tracer = otel.Tracer("raven.internal.storage.redis")
	}
	return &RedisStore{
		redis:  client,
		prefix: prefix,
		ttl:    ttl,
		tracer: tracer,
	}
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	ctx, span := s.tracer.Start(ctx, "storage.redis.get", trace.WithAttributes(attribute.String("storage.key", key)))
	defer span.End()

	value, err := s.redis.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		span.RecordError(err)
		return "", false, fmt.Errorf("storage: redis get: %w", err)
	}
	return value, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	ctx, span := s.tracer.Start(ctx, "storage.redis.set", trace.WithAttributes(attribute.String("storage.key", key)))
	defer span.End()

	if err := s.redis.Set(ctx, s.key(key), value, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("storage: redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	ctx, span := s.tracer.Start(ctx, "storage.redis.delete", trace.WithAttributes(attribute.String("storage.key", key)))
	defer span.End()

	if err := s.redis.Del(ctx, s.key(key)).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("storage: redis delete: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.redis.Close()
}

func (s *RedisStore) key(key string) string {
	return s.prefix + key
}
