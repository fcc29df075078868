package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/eugenenazirov/box-estimator/internal/packing"
)

// Redis stores decisions as JSON values under "<prefix>:<key>".
type Redis struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// RedisOption configures a Redis cache.
type RedisOption func(*Redis)

// WithPrefix namespaces every key.
func WithPrefix(prefix string) RedisOption {
	return func(r *Redis) {
		r.prefix = strings.Trim(prefix, ":")
	}
}

// WithRedisTTL sets the expiry of written keys. Zero keeps them forever.
func WithRedisTTL(d time.Duration) RedisOption {
	return func(r *Redis) { r.ttl = d }
}

// NewRedis wraps an existing client.
func NewRedis(rdb *redis.Client, opts ...RedisOption) *Redis {
	r := &Redis{
		rdb:    rdb,
		prefix: "boxpack",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Redis) Get(ctx context.Context, key string) (packing.Decision, bool, error) {
	raw, err := r.rdb.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return packing.Decision{}, false, nil
	}
	if err != nil {
		return packing.Decision{}, false, fmt.Errorf("redis get: %w", err)
	}

	var decision packing.Decision
	if err := json.Unmarshal(raw, &decision); err != nil {
		return packing.Decision{}, false, fmt.Errorf("decode cached decision: %w", err)
	}
	return decision, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, decision packing.Decision) error {
	raw, err := json.Marshal(decision)
	if err != nil {
		return fmt.Errorf("encode decision: %w", err)
	}
	if err := r.rdb.Set(ctx, r.key(key), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Ping checks connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

// Close releases the underlying client.
func (r *Redis) Close() error {
	return r.rdb.Close()
}

func (r *Redis) key(k string) string {
	if r.prefix == "" {
		return k
	}
	return r.prefix + ":" + k
}
