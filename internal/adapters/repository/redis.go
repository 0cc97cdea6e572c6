package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisBlob stores blobs as plain redis strings.
type RedisBlob struct {
	client *redis.Client
}

// NewRedisBlob connects to addr and pings it once.
func NewRedisBlob(ctx context.Context, addr, password string, db int) (*RedisBlob, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis backend: addr: %w", ErrMissingOption)
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return &RedisBlob{client: rdb}, nil
}

func (b *RedisBlob) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := b.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	return data, err
}

func (b *RedisBlob) Put(ctx context.Context, key string, data []byte) error {
	return b.client.Set(ctx, key, data, 0).Err()
}

func (b *RedisBlob) Close() error {
	return b.client.Close()
}
