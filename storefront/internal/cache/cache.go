package cache

import (
	"context"
	"errors"

	"github.com/fjod/fitcoach/storefront/internal/cart"
)

// CartMirror keeps a copy of a cart outside the process so a returning
// shopper gets their cart back.
type CartMirror interface {
	Get(ctx context.Context, cartID string) (*cart.State, error)
	Set(ctx context.Context, cartID string, state cart.State) error
	Delete(ctx context.Context, cartID string) error
}

var ErrCacheMiss = errors.New("cache miss")
