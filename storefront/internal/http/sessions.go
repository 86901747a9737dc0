package http

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fjod/fitcoach/storefront/internal/cache"
	"github.com/fjod/fitcoach/storefront/internal/cart"
	"github.com/fjod/fitcoach/storefront/internal/checkout"
	"github.com/rs/zerolog"
)

// Session is one shopper's cart and checkout flow.
type Session struct {
	Store    *cart.Store
	Checkout *checkout.Orchestrator
}

// Sessions keeps live sessions in memory. A session missing from memory is
// rebuilt from the cart mirror, so a restart or an eviction only loses
// checkout progress.
type Sessions struct {
	gateway   checkout.Gateway
	mirror    cache.CartMirror
	onSuccess func(checkout.Result)
	log       zerolog.Logger
	now       func() time.Time

	mu    sync.Mutex
	items map[string]*entry
}

type entry struct {
	sess     *Session
	lastSeen time.Time
}

func NewSessions(gw checkout.Gateway, mirror cache.CartMirror, onSuccess func(checkout.Result), log zerolog.Logger) *Sessions {
	return &Sessions{
		gateway:   gw,
		mirror:    mirror,
		onSuccess: onSuccess,
		log:       log,
		now:       time.Now,
		items:     make(map[string]*entry),
	}
}

// Get returns the session for cartID, restoring it from the mirror when it
// is not in memory. The mirror is read without holding the session lock.
func (s *Sessions) Get(ctx context.Context, cartID string) *Session {
	if sess := s.lookup(cartID); sess != nil {
		return sess
	}

	store := cart.NewStore(cartID)
	if s.mirror != nil {
		state, err := s.mirror.Get(ctx, cartID)
		switch {
		case err == nil:
			store = cart.NewStoreWithState(cartID, *state)
		case !errors.Is(err, cache.ErrCacheMiss):
			s.log.Warn().Err(err).Str("cart_id", cartID).Msg("failed to restore cart from mirror")
		}
	}
	sess := &Session{
		Store:    store,
		Checkout: checkout.NewOrchestrator(store, s.gateway, s.mirror, s.onSuccess, s.log),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.items[cartID]; ok {
		e.lastSeen = s.now()
		return e.sess
	}
	if s.mirror != nil {
		store.Subscribe(func(state cart.State) {
			// Dispatch runs on a request goroutine whose context may already
			// be gone once the handler returns.
			if err := s.mirror.Set(context.Background(), cartID, state); err != nil {
				s.log.Warn().Err(err).Str("cart_id", cartID).Msg("failed to mirror cart")
			}
		})
	}
	s.items[cartID] = &entry{sess: sess, lastSeen: s.now()}
	return sess
}

func (s *Sessions) lookup(cartID string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.items[cartID]
	if !ok {
		return nil
	}
	e.lastSeen = s.now()
	return e.sess
}

// Drop forgets a session, e.g. once its checkout completed elsewhere.
func (s *Sessions) Drop(cartID string) {
	s.mu.Lock()
	delete(s.items, cartID)
	s.mu.Unlock()
}

// Evict drops sessions not used for longer than idle and returns how many
// went. Their carts stay in the mirror.
func (s *Sessions) Evict(idle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-idle)
	n := 0
	for id, e := range s.items {
		if e.lastSeen.Before(cutoff) {
			delete(s.items, id)
			n++
		}
	}
	return n
}

// Run evicts idle sessions every interval until ctx is done.
func (s *Sessions) Run(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := s.Evict(idle); n > 0 {
				s.log.Debug().Int("evicted", n).Int("live", s.Len()).Msg("evicted idle sessions")
			}
		case <-ctx.Done():
			return
		}
	}
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
