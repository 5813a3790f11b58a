package appointments

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrAppointmentNotFound is returned when an appointment does not exist
	ErrAppointmentNotFound = errors.New("appointment not found")

	// ErrEmptySeries is returned when CreateSeries is called with no appointments
	ErrEmptySeries = errors.New("appointment series is empty")
)

// Repository persists appointment aggregates. CreateSeries must be atomic:
// either every appointment in the slice is stored or none are.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	ListActiveByChild(ctx context.Context, childID uuid.UUID, filter ListFilter) ([]*Appointment, error)
	LatestActiveBefore(ctx context.Context, childID uuid.UUID, before time.Time, excludeID uuid.UUID) (*Appointment, error)
	CreateSeries(ctx context.Context, series []*Appointment) error
	Reschedule(ctx context.Context, id uuid.UUID, newDate time.Time) error
}

// InMemoryRepository stores appointments in a map, used by engine tests.
type InMemoryRepository struct {
	mu         sync.RWMutex
	byID       map[uuid.UUID]*Appointment
	failCreate error
}

// NewInMemoryRepository creates an empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{byID: make(map[uuid.UUID]*Appointment)}
}

// FailNextCreate makes the next CreateSeries call return err, for testing
// rollback behavior.
func (r *InMemoryRepository) FailNextCreate(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failCreate = err
}

// GetByID returns an appointment by id.
func (r *InMemoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	appt, ok := r.byID[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return cloneAppointment(appt), nil
}

// ListActiveByChild returns the child's non-cancelled appointments matching
// the filter, ordered by date ascending.
func (r *InMemoryRepository) ListActiveByChild(ctx context.Context, childID uuid.UUID, filter ListFilter) ([]*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Appointment
	for _, appt := range r.byID {
		if appt.ChildID != childID || !appt.Status.IsActive() {
			continue
		}
		if filter.VaccineID != nil && !appt.HasVaccine(*filter.VaccineID) {
			continue
		}
		if filter.From != nil && appt.Date.Before(*filter.From) {
			continue
		}
		if filter.To != nil && appt.Date.After(*filter.To) {
			continue
		}
		out = append(out, cloneAppointment(appt))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// LatestActiveBefore returns the child's most recent non-cancelled appointment
// dated strictly before the given time, excluding excludeID. Returns nil when
// none exists.
func (r *InMemoryRepository) LatestActiveBefore(ctx context.Context, childID uuid.UUID, before time.Time, excludeID uuid.UUID) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest *Appointment
	for _, appt := range r.byID {
		if appt.ChildID != childID || appt.ID == excludeID || !appt.Status.IsActive() {
			continue
		}
		if !appt.Date.Before(before) {
			continue
		}
		if latest == nil || appt.Date.After(latest.Date) {
			latest = appt
		}
	}
	if latest == nil {
		return nil, nil
	}
	return cloneAppointment(latest), nil
}

// CreateSeries stores every appointment or none.
func (r *InMemoryRepository) CreateSeries(ctx context.Context, series []*Appointment) error {
	if len(series) == 0 {
		return ErrEmptySeries
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreate != nil {
		err := r.failCreate
		r.failCreate = nil
		return err
	}
	for _, appt := range series {
		r.byID[appt.ID] = cloneAppointment(appt)
	}
	return nil
}

// Reschedule moves an appointment to a new date and marks it rescheduled.
func (r *InMemoryRepository) Reschedule(ctx context.Context, id uuid.UUID, newDate time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	appt, ok := r.byID[id]
	if !ok {
		return ErrAppointmentNotFound
	}
	appt.Date = newDate
	appt.Status = StatusRescheduled
	return nil
}

// SetStatus is a test helper simulating the out-of-scope clinic workflow.
func (r *InMemoryRepository) SetStatus(id uuid.UUID, status Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if appt, ok := r.byID[id]; ok {
		appt.Status = status
	}
}

func cloneAppointment(a *Appointment) *Appointment {
	copied := *a
	copied.Lines = append([]VaccineLine(nil), a.Lines...)
	return &copied
}

var _ Repository = (*InMemoryRepository)(nil)
