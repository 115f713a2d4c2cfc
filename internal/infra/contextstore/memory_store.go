package contextstore

import (
	"context"
	"sync"

	"github.com/LeonelIntegrationXpert/mt-chain-proxy/internal/domain/contextmem"
)

// MemoryStore keeps the consolidated summary in process memory. It is the
// fallback when no Valkey instance is configured.
type MemoryStore struct {
	mu   sync.RWMutex
	snap contextmem.Snapshot
	ok   bool
}

// NewMemoryStore constructs an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load implements contextmem.Store.
func (s *MemoryStore) Load(context.Context) (contextmem.Snapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap, s.ok, nil
}

// Save implements contextmem.Store.
func (s *MemoryStore) Save(_ context.Context, snapshot contextmem.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap, s.ok = snapshot, true
	return nil
}
