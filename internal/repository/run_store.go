package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"payout-invoice-backend/internal/metrics"
	"payout-invoice-backend/internal/models"
)

var ErrRunNotFound = errors.New("validation run not found")

// RunStore keeps validated runs between the validate and generate calls. Runs are
// single use: Take returns the run and forgets it.
type RunStore interface {
	Save(ctx context.Context, run *models.ValidationRun) error
	Get(ctx context.Context, id string) (*models.ValidationRun, error)
	Take(ctx context.Context, id string) (*models.ValidationRun, error)
	Delete(ctx context.Context, id string) error
}

type memoryEntry struct {
	run       *models.ValidationRun
	expiresAt time.Time
}

// MemoryRunStore is a RunStore for a single instance. Entries older than the TTL are
// treated as absent and dropped by Sweep.
type MemoryRunStore struct {
	mu   sync.Mutex
	runs map[string]memoryEntry
	ttl  time.Duration
	now  func() time.Time
}

func NewMemoryRunStore(ttl time.Duration) *MemoryRunStore {
	return &MemoryRunStore{
		runs: map[string]memoryEntry{},
		ttl:  ttl,
		now:  time.Now,
	}
}

func (s *MemoryRunStore) Save(_ context.Context, run *models.ValidationRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = memoryEntry{run: run, expiresAt: s.now().Add(s.ttl)}
	metrics.PendingRuns.Set(float64(len(s.runs)))
	return nil
}

func (s *MemoryRunStore) Get(_ context.Context, id string) (*models.ValidationRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookup(id)
}

func (s *MemoryRunStore) Take(_ context.Context, id string) (*models.ValidationRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	delete(s.runs, id)
	metrics.PendingRuns.Set(float64(len(s.runs)))
	return run, nil
}

func (s *MemoryRunStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.runs, id)
	metrics.PendingRuns.Set(float64(len(s.runs)))
	return nil
}

// Sweep drops expired runs and returns how many were removed.
func (s *MemoryRunStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for id, e := range s.runs {
		if !now.Before(e.expiresAt) {
			delete(s.runs, id)
			removed++
		}
	}
	metrics.PendingRuns.Set(float64(len(s.runs)))
	return removed
}

// caller holds s.mu
func (s *MemoryRunStore) lookup(id string) (*models.ValidationRun, error) {
	e, ok := s.runs[id]
	if !ok {
		return nil, ErrRunNotFound
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.runs, id)
		return nil, ErrRunNotFound
	}
	return e.run, nil
}
