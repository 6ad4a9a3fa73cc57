package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"face-gallery/internal/config"
	"face-gallery/internal/domain/gallery"
)

const connectTimeout = 5 * time.Second

// RedisClient stores JSON values in Redis or Valkey. Every key is namespaced
// with the configured prefix so several deployments can share one database.
type RedisClient struct {
	client     *redis.Client
	prefix     string
	defaultTTL time.Duration
}

// NewRedisClient connects and pings; an unreachable server is an error
func NewRedisClient(cfg config.CacheConfig) (*RedisClient, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("cache is disabled")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:            cfg.Address,
		Password:        cfg.Password,
		DB:              cfg.Database,
		MaxRetries:      cfg.MaxRetries,
		MinRetryBackoff: cfg.MinRetryBackoff,
		MaxRetryBackoff: cfg.MaxRetryBackoff,
		DialTimeout:     cfg.DialTimeout,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		PoolSize:        cfg.PoolSize,
		MinIdleConns:    cfg.MinIdleConns,
		PoolTimeout:     cfg.PoolTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Address, err)
	}

	return &RedisClient{
		client:     rdb,
		prefix:     strings.TrimSuffix(cfg.KeyPrefix, ":"),
		defaultTTL: cfg.DefaultTTL,
	}, nil
}

// key applies the deployment prefix
func (r *RedisClient) key(k string) string {
	if r.prefix == "" {
		return k
	}
	return r.prefix + ":" + k
}

// Get decodes the value under key into result; gallery.ErrCacheMiss when absent
func (r *RedisClient) Get(ctx context.Context, key string, result any) error {
	val, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return gallery.ErrCacheMiss
	}
	if err != nil {
		return fmt.Errorf("failed to get %s: %w", key, err)
	}

	if err := json.Unmarshal(val, result); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return nil
}

// Set stores value as JSON. A zero ttl means the configured default.
func (r *RedisClient) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}

	if ttl == 0 {
		ttl = r.defaultTTL
	}
	if err := r.client.Set(ctx, r.key(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

func (r *RedisClient) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func (r *RedisClient) Health(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("cache ping failed: %w", err)
	}
	return nil
}

func (r *RedisClient) Close() error {
	return r.client.Close()
}

// FlushCache empties the whole database, other prefixes included
func (r *RedisClient) FlushCache(ctx context.Context) error {
	if err := r.client.FlushDB(ctx).Err(); err != nil {
		return fmt.Errorf("failed to flush cache: %w", err)
	}
	return nil
}

// GenerateKey joins a namespace and its parameters with ":"
func GenerateKey(namespace string, params ...string) string {
	if len(params) == 0 {
		return namespace
	}
	return namespace + ":" + strings.Join(params, ":")
}
