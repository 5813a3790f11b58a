package children

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

var (
	// ErrChildNotFound is returned when a child profile does not exist
	ErrChildNotFound = errors.New("child not found")

	// ErrParentNotFound is returned when a parent contact does not exist
	ErrParentNotFound = errors.New("parent not found")
)

// Repository defines read access to child profiles and parent contacts.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Child, error)
	GetParentContact(ctx context.Context, parentID uuid.UUID) (*ParentContact, error)
}

// InMemoryRepository is a Repository backed by maps, used in tests.
type InMemoryRepository struct {
	mu       sync.RWMutex
	children map[uuid.UUID]*Child
	parents  map[uuid.UUID]*ParentContact
}

// NewInMemoryRepository creates an empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		children: make(map[uuid.UUID]*Child),
		parents:  make(map[uuid.UUID]*ParentContact),
	}
}

// Put adds or replaces a child profile.
func (r *InMemoryRepository) Put(c *Child) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.children[c.ID] = c
}

// PutParent adds or replaces a parent contact.
func (r *InMemoryRepository) PutParent(p *ParentContact) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.parents[p.ParentID] = p
}

// GetByID returns a child profile by id.
func (r *InMemoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*Child, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.children[id]
	if !ok {
		return nil, ErrChildNotFound
	}
	copied := *c
	return &copied, nil
}

// GetParentContact returns the notification contact for a parent.
func (r *InMemoryRepository) GetParentContact(ctx context.Context, parentID uuid.UUID) (*ParentContact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.parents[parentID]
	if !ok {
		return nil, ErrParentNotFound
	}
	copied := *p
	return &copied, nil
}

var _ Repository = (*InMemoryRepository)(nil)
