package records

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Repository exposes the administered-dose history.
type Repository interface {
	// CountDoses returns how many doses of the vaccine the child has
	// actually received.
	CountDoses(ctx context.Context, childID, vaccineID uuid.UUID) (int, error)
}

// InMemoryRepository stores records in a slice, used by engine tests.
type InMemoryRepository struct {
	mu      sync.RWMutex
	records []VaccinationRecord
}

// NewInMemoryRepository creates an empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{}
}

// Add appends an administered-dose record.
func (r *InMemoryRepository) Add(rec VaccinationRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
}

// CountDoses counts administered doses for child+vaccine.
func (r *InMemoryRepository) CountDoses(ctx context.Context, childID, vaccineID uuid.UUID) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, rec := range r.records {
		if rec.ChildID == childID && rec.VaccineID == vaccineID {
			count++
		}
	}
	return count, nil
}

var _ Repository = (*InMemoryRepository)(nil)
