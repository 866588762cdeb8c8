package storage

import (
	"context"
	"sync"

	"github.com/careeros/careeros/internal/log"
)

// Ensure MemoryStore implements the Store interface
var _ Store = (*MemoryStore)(nil)

// MemoryStore is a process-lifetime account table. A restart loses all
// sessions, which is acceptable for single-user deployments; production
// uses FirestoreStore instead.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]*Account
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[string]*Account),
	}
}

// GetAccount returns a copy of the record for subject
func (s *MemoryStore) GetAccount(_ context.Context, subject string) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[subject]
	if !ok {
		return nil, ErrAccountNotFound
	}
	copied := *account
	return &copied, nil
}

// UpsertAccount creates or merge-updates the record for account.Subject
func (s *MemoryStore) UpsertAccount(_ context.Context, account *Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *account
	merged := merge(s.accounts[account.Subject], &copied)
	s.accounts[account.Subject] = merged

	log.LogDebugWithFields("storage", "Account upserted", map[string]any{
		"subject": merged.Subject,
	})
	return nil
}
