// Package stats derives aggregate learning metrics from the store.
package stats

import (
	"time"

	"github.com/teachback/srs/internal/domain"
	"github.com/teachback/srs/internal/storage"
)

// Service computes read-only aggregate snapshots.
type Service struct {
	store *storage.DB

	// NowFunc supplies the current instant. Overridable in tests.
	NowFunc func() time.Time
}

// NewService returns a Service backed by store, using the wall clock.
func NewService(store *storage.DB) *Service {
	return &Service{store: store, NowFunc: time.Now}
}

// Snapshot returns the aggregate metrics as of the current instant.
func (s *Service) Snapshot() (*domain.StatsSnapshot, error) {
	return s.store.Stats(s.NowFunc().UTC())
}
