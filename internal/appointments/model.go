package appointments

import (
	"time"

	"github.com/google/uuid"
)

// Status is the appointment lifecycle state. The scheduling engine only ever
// creates Pending appointments; confirmation and completion happen in the
// clinic workflow.
type Status string

const (
	StatusPending     Status = "pending"
	StatusConfirmed   Status = "confirmed"
	StatusCompleted   Status = "completed"
	StatusCancelled   Status = "cancelled"
	StatusRescheduled Status = "rescheduled"
)

// IsActive reports whether the appointment still occupies the child's
// schedule. Cancelled appointments are invisible to every booking check.
func (s Status) IsActive() bool {
	return s != StatusCancelled
}

// VaccineLine is one vaccine administered within an appointment, carrying the
// dose number and the price charged for it.
type VaccineLine struct {
	ID            uuid.UUID `json:"id"`
	AppointmentID uuid.UUID `json:"appointment_id"`
	VaccineID     uuid.UUID `json:"vaccine_id"`
	DoseNumber    int       `json:"dose_number"`
	Price         int64     `json:"price"`
}

// Appointment is a dated visit for one child with one or more vaccine lines.
type Appointment struct {
	ID        uuid.UUID     `json:"id"`
	ChildID   uuid.UUID     `json:"child_id"`
	Date      time.Time     `json:"date"`
	Status    Status        `json:"status"`
	Lines     []VaccineLine `json:"lines"`
	CreatedAt time.Time     `json:"created_at"`
}

// HasVaccine reports whether any line references the given vaccine.
func (a *Appointment) HasVaccine(vaccineID uuid.UUID) bool {
	for _, line := range a.Lines {
		if line.VaccineID == vaccineID {
			return true
		}
	}
	return false
}

// ListFilter narrows ListActiveByChild results.
type ListFilter struct {
	VaccineID *uuid.UUID
	From      *time.Time
	To        *time.Time
}
