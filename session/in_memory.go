package session

import (
	"context"
	"errors"
	"sync"

	"github.com/hupe1980/toolmesh/core"
)

var (
	// ErrNotFound is returned for unknown conversation IDs.
	ErrNotFound = errors.New("conversation not found")
	// ErrDeleted is returned by Update when the conversation was deleted
	// while fn ran. The result of fn is discarded.
	ErrDeleted = errors.New("conversation deleted during update")
)

// InMemoryStore is a volatile conversation store keyed by conversation ID.
// It is safe for concurrent access. Conversations are immutable values, so
// readers never observe a partially applied turn.
//
// Per-conversation locks are never released, so an Update racing a Delete
// still waits for the turn in flight.
type InMemoryStore struct {
	mu     sync.RWMutex
	convs  map[string]core.Conversation
	locks  map[string]*sync.Mutex
	epochs map[string]uint64 // bumped by Delete
}

// NewInMemoryStore constructs an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		convs:  make(map[string]core.Conversation),
		locks:  make(map[string]*sync.Mutex),
		epochs: make(map[string]uint64),
	}
}

// Get returns the stored conversation.
func (s *InMemoryStore) Get(id string) (core.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.convs[id]
	if !ok {
		return core.Conversation{}, ErrNotFound
	}
	return conv, nil
}

// Save stores conv under id, replacing any previous value.
func (s *InMemoryStore) Save(id string, conv core.Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.convs[id] = conv
}

// Delete removes a conversation. An Update running for id at the same time
// fails with ErrDeleted instead of storing its result.
func (s *InMemoryStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.convs, id)
	s.epochs[id]++
}

// IDs returns the stored conversation IDs in no particular order.
func (s *InMemoryStore) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.convs))
	for id := range s.convs {
		ids = append(ids, id)
	}
	return ids
}

// Update runs fn with the current conversation (empty when unknown) while
// holding the conversation's lock and stores the returned value. When fn
// fails, or the conversation is deleted meanwhile, nothing is stored.
func (s *InMemoryStore) Update(ctx context.Context, id string, fn func(ctx context.Context, conv core.Conversation) (core.Conversation, error)) (core.Conversation, error) {
	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	if err := ctx.Err(); err != nil {
		return core.Conversation{}, err
	}

	s.mu.RLock()
	current := s.convs[id]
	epoch := s.epochs[id]
	s.mu.RUnlock()

	next, err := fn(ctx, current)
	if err != nil {
		return core.Conversation{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epochs[id] != epoch {
		return core.Conversation{}, ErrDeleted
	}
	s.convs[id] = next
	return next, nil
}

func (s *InMemoryStore) lockFor(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}
