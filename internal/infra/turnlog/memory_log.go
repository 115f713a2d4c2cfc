package turnlog

import (
	"context"
	"sync"

	"github.com/LeonelIntegrationXpert/mt-chain-proxy/internal/domain/contextmem"
)

// MemoryLog collects turns in memory. It is the fallback when no Postgres
// DSN is configured.
type MemoryLog struct {
	mu    sync.RWMutex
	turns []contextmem.Turn
}

// NewMemoryLog constructs an empty in-process log.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{}
}

// Append implements contextmem.Recorder.
func (l *MemoryLog) Append(_ context.Context, turn contextmem.Turn) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.turns = append(l.turns, turn)
	return nil
}

// All returns a copy of every recorded turn.
func (l *MemoryLog) All() []contextmem.Turn {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]contextmem.Turn, len(l.turns))
	copy(out, l.turns)
	return out
}
