package decisions

import (
	"context"
	"sync"

	"creditdesk/internal/ports"
)

type MemoryLog struct {
	mu      sync.Mutex
	entries []ports.DecisionEntry
}

func NewMemoryLog() *MemoryLog { return &MemoryLog{} }

func (l *MemoryLog) RecordDecision(_ context.Context, e ports.DecisionEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, e)
	return nil
}

func (l *MemoryLog) Entries() []ports.DecisionEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]ports.DecisionEntry, len(l.entries))
	copy(out, l.entries)
	return out
}
