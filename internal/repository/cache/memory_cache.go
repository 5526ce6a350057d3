package cache

import (
	"context"
	"sync"
	"time"
)

type MemoryScoreCache struct {
	mu   sync.Mutex
	data map[int64]map[string]int
}

func NewMemoryScoreCache() *MemoryScoreCache {
	return &MemoryScoreCache{data: make(map[int64]map[string]int)}
}

func (m *MemoryScoreCache) GetScore(_ context.Context, customerID int64, day time.Time, version string) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	score, ok := m.data[customerID][scoreField(day, version)]
	return score, ok
}

func (m *MemoryScoreCache) SetScore(_ context.Context, customerID int64, day time.Time, version string, score int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	days, ok := m.data[customerID]
	if !ok {
		days = make(map[string]int)
		m.data[customerID] = days
	}
	days[scoreField(day, version)] = score
	return nil
}

func (m *MemoryScoreCache) Invalidate(_ context.Context, customerIDs ...int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range customerIDs {
		delete(m.data, id)
	}
	return nil
}
