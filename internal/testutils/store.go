package testutils

import (
	"bytes"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/lessucettes/chatmod/internal/chat"
)

// InMemoryStore is a map-backed store with optional error injection.
type InMemoryStore struct {
	mu          sync.RWMutex
	settings    []byte
	archive     []chat.Action
	saves       int
	errToReturn error
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errToReturn = err
}

// Saves reports how many times SaveSettings succeeded.
func (s *InMemoryStore) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}

func (s *InMemoryStore) LoadSettings(ctx context.Context) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.errToReturn != nil {
		return nil, s.errToReturn
	}
	return bytes.Clone(s.settings), nil
}

func (s *InMemoryStore) SaveSettings(ctx context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.errToReturn != nil {
		return s.errToReturn
	}
	s.settings = bytes.Clone(data)
	s.saves++
	return nil
}

// ArchiveAction ignores ttl.
func (s *InMemoryStore) ArchiveAction(ctx context.Context, a chat.Action, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.errToReturn != nil {
		return s.errToReturn
	}
	s.archive = append(s.archive, a)
	return nil
}

func (s *InMemoryStore) ArchivedActions(ctx context.Context) ([]chat.Action, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.archive), nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error {
	return nil
}
