package analytics

import (
	"context"
	"sync"

	"github.com/cloakgate/cloakgate/internal/models"
)

var _ HitLogService = (*MockHitLog)(nil)

// MockHitLog is an in-memory HitLogService for testing.
type MockHitLog struct {
	mu   sync.Mutex
	Hits []models.Hit
	Err  error
}

// NewMockHitLog creates a new mock hit log.
func NewMockHitLog() *MockHitLog {
	return &MockHitLog{}
}

// InsertHit records the hit in memory, or returns the configured error.
func (m *MockHitLog) InsertHit(ctx context.Context, hit models.Hit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Hits = append(m.Hits, hit)
	return nil
}

// RecentHits returns recorded hits, newest last insertion first.
func (m *MockHitLog) RecentHits(ctx context.Context, limit int) ([]models.Hit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var out []models.Hit
	for i := len(m.Hits) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.Hits[i])
	}
	return out, nil
}

// Recorded returns a copy of everything inserted so far.
func (m *MockHitLog) Recorded() []models.Hit {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Hit, len(m.Hits))
	copy(out, m.Hits)
	return out
}
