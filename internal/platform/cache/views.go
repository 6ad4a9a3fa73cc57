package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"face-gallery/internal/domain/gallery"
)

const (
	viewNamespace = "view"

	// maxUpdateAttempts bounds optimistic retries when concurrent writers
	// keep touching the same view
	maxUpdateAttempts = 16
)

// ErrUpdateConflict is returned when a view could not be updated because of
// concurrent writers
var ErrUpdateConflict = errors.New("view updated concurrently")

func viewKey(id string) string {
	return GenerateKey(viewNamespace, id)
}

// RedisViewStore keeps views in Redis/Valkey as JSON. Update uses
// WATCH/MULTI so concurrent load events and like toggles never lose writes.
type RedisViewStore struct {
	redis *RedisClient
	ttl   time.Duration
}

// NewRedisViewStore creates a view store on top of an existing client
func NewRedisViewStore(client *RedisClient, ttl time.Duration) *RedisViewStore {
	if ttl <= 0 {
		ttl = client.defaultTTL
	}
	return &RedisViewStore{redis: client, ttl: ttl}
}

func (s *RedisViewStore) Save(ctx context.Context, view *gallery.View) error {
	return s.redis.Set(ctx, viewKey(view.ID), view, s.ttl)
}

func (s *RedisViewStore) Get(ctx context.Context, id string) (*gallery.View, error) {
	var view gallery.View
	if err := s.redis.Get(ctx, viewKey(id), &view); err != nil {
		if errors.Is(err, gallery.ErrCacheMiss) {
			return nil, fmt.Errorf("%w: %s", gallery.ErrViewNotFound, id)
		}
		return nil, err
	}
	return &view, nil
}

func (s *RedisViewStore) Update(ctx context.Context, id string, fn func(*gallery.View) error) (*gallery.View, error) {
	key := s.redis.key(viewKey(id))
	var updated *gallery.View

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return fmt.Errorf("%w: %s", gallery.ErrViewNotFound, id)
			}
			return fmt.Errorf("failed to read view: %w", err)
		}

		var view gallery.View
		if err := json.Unmarshal(data, &view); err != nil {
			return fmt.Errorf("failed to unmarshal view: %w", err)
		}

		if err := fn(&view); err != nil {
			return err
		}

		encoded, err := json.Marshal(&view)
		if err != nil {
			return fmt.Errorf("failed to marshal view: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, redis.KeepTTL)
			return nil
		})
		if err != nil {
			return err
		}
		updated = &view
		return nil
	}

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		err := s.redis.client.Watch(ctx, txf, key)
		if err == nil {
			return updated, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, err
	}

	return nil, fmt.Errorf("%w: %s", ErrUpdateConflict, id)
}

func (s *RedisViewStore) Delete(ctx context.Context, id string) error {
	return s.redis.Delete(ctx, viewKey(id))
}
