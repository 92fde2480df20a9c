// Package stats stores the search counter and audit trail.
package stats

import (
	"context"
	"sync"

	domstats "github.com/kailas-cloud/voicegate/internal/domain/stats"
)

// Memory keeps statistics in process memory. Lost on restart.
type Memory struct {
	mu     sync.Mutex
	total  int64
	recent []domstats.Record
}

// NewMemory creates an empty in-memory recorder.
func NewMemory() *Memory {
	return &Memory{}
}

// Record increments the counter and prepends rec.
func (m *Memory) Record(_ context.Context, rec domstats.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.total++
	m.recent = domstats.Prepend(m.recent, rec)
	return nil
}

// Snapshot returns a copy of the current statistics.
func (m *Memory) Snapshot(_ context.Context) (domstats.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	recent := make([]domstats.Record, len(m.recent))
	copy(recent, m.recent)
	return domstats.Snapshot{Total: m.total, Recent: recent}, nil
}

// Reset clears the counter and the audit list.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.total = 0
	m.recent = nil
	return nil
}
