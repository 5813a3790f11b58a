package scheduling

import (
	"time"

	"github.com/kidsvax/clinic-platform/internal/appointments"
)

// ValidateReschedule decides whether an appointment may move to newDate.
// prev is the child's most recent other non-cancelled appointment dated
// before the appointment's current date, or nil. Multi-dose series must be
// confirmed in order: while prev is unconfirmed, later appointments stay put.
// Pure, no mutation; the caller persists the new date on success.
func ValidateReschedule(appt *appointments.Appointment, prev *appointments.Appointment, newDate, now time.Time) *ValidationError {
	if appt == nil {
		return notFound("appointment not found")
	}
	if appt.Date.IsZero() {
		return invalidInput("", "appointment has no scheduled date")
	}
	if prev != nil && prev.Status != appointments.StatusConfirmed {
		return conflict("", "an earlier appointment in the series is not confirmed yet")
	}
	if len(appt.Lines) == 0 {
		return invalidInput("", "appointment has no vaccine assigned")
	}
	if dateOnly(newDate).Before(dateOnly(now)) {
		return invalidInput("", "new date cannot be in the past")
	}
	return nil
}

// dateOnly truncates to a UTC calendar date.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
