package children

import (
	"time"

	"github.com/google/uuid"
)

// Child is the medical profile the scheduling engine evaluates. The engine
// never mutates it.
type Child struct {
	ID                       uuid.UUID `json:"id"`
	ParentID                 uuid.UUID `json:"parent_id"`
	FullName                 string    `json:"full_name"`
	DateOfBirth              time.Time `json:"date_of_birth"`
	BloodType                string    `json:"blood_type"`
	HasChronicIllnesses      bool      `json:"has_chronic_illnesses"`
	HasAllergies             bool      `json:"has_allergies"`
	HasRecentMedication      bool      `json:"has_recent_medication"`
	HasOtherSpecialCondition bool      `json:"has_other_special_condition"`
}

// ParentContact is the notification target for a child's appointments.
type ParentContact struct {
	ParentID uuid.UUID `json:"parent_id"`
	FullName string    `json:"full_name"`
	Email    string    `json:"email"`
	Phone    string    `json:"phone"`
}
