package scheduling

import (
	"time"

	"github.com/google/uuid"

	"github.com/kidsvax/clinic-platform/internal/appointments"
	"github.com/kidsvax/clinic-platform/internal/catalog"
)

// NextDoseNumber converts the administered-dose count into the dose number
// the child is owed next. Pending appointments never count.
func NextDoseNumber(administered int) int {
	return administered + 1
}

// BuildSeries lays out the remaining dose sequence for one vaccine as pending
// appointments: one per dose from nextDose through RequiredDoses, spaced by
// the vaccine's own inter-dose interval starting at startDate.
//
// The caller must have verified nextDose <= RequiredDoses; BuildSeries returns
// nil otherwise.
func BuildSeries(childID uuid.UUID, vaccine *catalog.Vaccine, nextDose int, startDate time.Time, now time.Time) []*appointments.Appointment {
	if nextDose > vaccine.RequiredDoses {
		return nil
	}
	series := make([]*appointments.Appointment, 0, vaccine.RequiredDoses-nextDose+1)
	for dose := nextDose; dose <= vaccine.RequiredDoses; dose++ {
		apptID := uuid.New()
		date := startDate.AddDate(0, 0, (dose-nextDose)*vaccine.DoseIntervalDays)
		series = append(series, &appointments.Appointment{
			ID:        apptID,
			ChildID:   childID,
			Date:      date,
			Status:    appointments.StatusPending,
			CreatedAt: now,
			Lines: []appointments.VaccineLine{{
				ID:            uuid.New(),
				AppointmentID: apptID,
				VaccineID:     vaccine.ID,
				DoseNumber:    dose,
				Price:         vaccine.Price,
			}},
		})
	}
	return series
}
