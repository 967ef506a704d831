// Package rdsrepo хранение ключей идемпотентности в redis.
package rdsrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const (
	keyPrefix      = "idempotent-key:"
	inFlightMarker = "in-flight"
	defaultTTL     = 24 * time.Hour
)

// IdempotencyStore ключи хранятся с TTL. Значение ключа либо маркер "в работе", либо id созданной продажи.
type IdempotencyStore struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewIdempotencyStore(rdb redis.Cmdable, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &IdempotencyStore{rdb: rdb, ttl: ttl}
}

// Acquire захватывает ключ через SETNX. Если ключ уже есть, возвращает сохраненный id продажи
// (пустой, пока первый запрос еще выполняется).
func (s *IdempotencyStore) Acquire(ctx context.Context, key string) (string, bool, error) {
	redisKey := keyPrefix + key
	acquired, err := s.rdb.SetNX(ctx, redisKey, inFlightMarker, s.ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("[redis/acquire `%s`] %w", key, err)
	}
	if acquired {
		return "", true, nil
	}

	val, err := s.rdb.Get(ctx, redisKey).Result()
	if err != nil {
		// ключ успел истечь или был освобожден между SETNX и GET
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("[redis/read `%s`] %w", key, err)
	}
	if val == inFlightMarker {
		return "", false, nil
	}
	return val, false, nil
}

func (s *IdempotencyStore) Complete(ctx context.Context, key string, saleID uuid.UUID) error {
	if err := s.rdb.Set(ctx, keyPrefix+key, saleID.String(), s.ttl).Err(); err != nil {
		return fmt.Errorf("[redis/complete `%s`] %w", key, err)
	}
	return nil
}

func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("[redis/release `%s`] %w", key, err)
	}
	return nil
}

// Connect создает клиента и проверяет соединение.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect to redis %s: %w", addr, err)
	}
	return rdb, nil
}
