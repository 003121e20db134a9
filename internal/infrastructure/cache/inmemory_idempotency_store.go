package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	appsettlement "github.com/pharmalink/settlement/internal/application/settlement"
)

// entry is a stored transaction ID with expiration
type entry struct {
	transactionID uuid.UUID
	expiresAt     time.Time
}

// InMemoryIdempotencyStore implements IdempotencyStore using an in-memory map.
// This is suitable for single-instance deployments and testing.
type InMemoryIdempotencyStore struct {
	mu        sync.RWMutex
	entries   map[string]entry
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryIdempotencyStore creates a new in-memory idempotency store.
// It starts a background goroutine to clean up expired entries.
func NewInMemoryIdempotencyStore() *InMemoryIdempotencyStore {
	store := &InMemoryIdempotencyStore{
		entries:  make(map[string]entry),
		stopChan: make(chan struct{}),
	}

	store.wg.Add(1)
	go store.cleanupLoop()

	return store
}

// Get returns the transaction ID stored under the key, or uuid.Nil if the
// key is unknown or expired
func (s *InMemoryIdempotencyStore) Get(ctx context.Context, key string) (uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, exists := s.entries[key]
	if !exists {
		return uuid.Nil, nil
	}
	if time.Now().After(e.expiresAt) {
		return uuid.Nil, nil
	}
	return e.transactionID, nil
}

// Set stores the transaction ID under the key with a TTL
func (s *InMemoryIdempotencyStore) Set(ctx context.Context, key string, transactionID uuid.UUID, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = entry{
		transactionID: transactionID,
		expiresAt:     time.Now().Add(ttl),
	}
	return nil
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (s *InMemoryIdempotencyStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

// cleanupLoop periodically removes expired entries
func (s *InMemoryIdempotencyStore) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

// cleanup removes expired entries from the store
func (s *InMemoryIdempotencyStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for key, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, key)
		}
	}
}

// Size returns the number of entries in the store (for testing/monitoring)
func (s *InMemoryIdempotencyStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Ensure InMemoryIdempotencyStore implements IdempotencyStore
var _ appsettlement.IdempotencyStore = (*InMemoryIdempotencyStore)(nil)
