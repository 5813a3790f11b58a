package records

import (
	"time"

	"github.com/google/uuid"
)

// VaccinationRecord is a historical fact: a dose actually administered to a
// child. Pending and future appointments never appear here.
type VaccinationRecord struct {
	ID         uuid.UUID `json:"id"`
	ChildID    uuid.UUID `json:"child_id"`
	VaccineID  uuid.UUID `json:"vaccine_id"`
	DoseNumber int       `json:"dose_number"`
	Date       time.Time `json:"date"`
}
