package catalog

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Repository defines read access to the vaccine catalog.
type Repository interface {
	GetVaccine(ctx context.Context, id uuid.UUID) (*Vaccine, error)
	GetPackage(ctx context.Context, id uuid.UUID) (*VaccinePackage, error)
	ListRules(ctx context.Context) ([]IntervalRule, error)
}

// InMemoryRepository is a Repository backed by in-memory maps, used in tests
// and local development seeding.
type InMemoryRepository struct {
	mu       sync.RWMutex
	vaccines map[uuid.UUID]*Vaccine
	packages map[uuid.UUID]*VaccinePackage
	rules    []IntervalRule
}

// NewInMemoryRepository creates an empty in-memory catalog.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		vaccines: make(map[uuid.UUID]*Vaccine),
		packages: make(map[uuid.UUID]*VaccinePackage),
	}
}

// PutVaccine adds or replaces a vaccine.
func (r *InMemoryRepository) PutVaccine(v *Vaccine) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vaccines[v.ID] = v
}

// PutPackage adds or replaces a package.
func (r *InMemoryRepository) PutPackage(p *VaccinePackage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.packages[p.ID] = p
}

// PutRule appends an interval rule.
func (r *InMemoryRepository) PutRule(rule IntervalRule) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = append(r.rules, rule)
}

// GetVaccine returns a vaccine by id.
func (r *InMemoryRepository) GetVaccine(ctx context.Context, id uuid.UUID) (*Vaccine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.vaccines[id]
	if !ok {
		return nil, ErrVaccineNotFound
	}
	copied := *v
	return &copied, nil
}

// GetPackage returns a package by id.
func (r *InMemoryRepository) GetPackage(ctx context.Context, id uuid.UUID) (*VaccinePackage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.packages[id]
	if !ok {
		return nil, ErrPackageNotFound
	}
	copied := *p
	copied.VaccineIDs = append([]uuid.UUID(nil), p.VaccineIDs...)
	return &copied, nil
}

// ListRules returns all configured interval rules.
func (r *InMemoryRepository) ListRules(ctx context.Context) ([]IntervalRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]IntervalRule(nil), r.rules...), nil
}

var _ Repository = (*InMemoryRepository)(nil)
