package cart

import (
	"sync"

	"github.com/google/uuid"
)

// Store owns one cart's State. All mutation goes through Dispatch.
type Store struct {
	id string

	mu          sync.RWMutex
	state       State
	subscribers map[int]func(State)
	nextSubID   int

	// notifyMu is taken before mu is released, so subscribers see states
	// in the order they were reduced.
	notifyMu sync.Mutex
}

// NewStore creates an empty store. An empty id gets a random one.
func NewStore(id string) *Store {
	return NewStoreWithState(id, InitialState())
}

// NewStoreWithState restores a store from a previously mirrored state.
func NewStoreWithState(id string, s State) *Store {
	if id == "" {
		id = uuid.NewString()
	}
	if s.Items == nil {
		s.Items = []CartItem{}
	}
	return &Store{
		id:          id,
		state:       s.clone(),
		subscribers: make(map[int]func(State)),
	}
}

// ID is the client-generated cart identifier.
func (s *Store) ID() string {
	return s.id
}

// Dispatch reduces a into the current state and notifies subscribers with
// the new state. Subscribers run on the caller's goroutine after the state
// lock is released, one dispatch at a time; they must not dispatch.
func (s *Store) Dispatch(a Action) State {
	s.mu.Lock()
	s.state = Reduce(s.state, a)
	snapshot := s.state.clone()
	subs := make([]func(State), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()

	for _, fn := range subs {
		fn(snapshot.clone())
	}
	return snapshot
}

func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// Subscribe registers fn for every future dispatch and returns a function
// that removes it.
func (s *Store) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}
}
