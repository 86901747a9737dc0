package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/fjod/fitcoach/storefront/internal/cart"
	"github.com/redis/go-redis/v9"
)

func NewRedisMirror(client *redis.Client, baseTTL time.Duration) *RedisMirror {
	if baseTTL <= 0 {
		baseTTL = 7 * 24 * time.Hour
	}
	return &RedisMirror{
		client:  client,
		baseTTL: baseTTL,
	}
}

type RedisMirror struct {
	client  *redis.Client
	baseTTL time.Duration
}

func (r *RedisMirror) Get(ctx context.Context, cartID string) (*cart.State, error) {
	data, err := r.client.Get(ctx, cacheKey(cartID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var state cart.State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err)
	}
	return &state, nil
}

// Set stores state with the base TTL plus up to an hour of jitter so
// mirrors written together do not expire together.
func (r *RedisMirror) Set(ctx context.Context, cartID string, state cart.State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}

	jitter := time.Duration(rand.Intn(60)) * time.Minute
	if err := r.client.Set(ctx, cacheKey(cartID), data, r.baseTTL+jitter).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisMirror) Delete(ctx context.Context, cartID string) error {
	if err := r.client.Del(ctx, cacheKey(cartID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func cacheKey(cartID string) string {
	return fmt.Sprintf("cart:%s", cartID)
}
