package scheduling

import (
	"time"

	"github.com/google/uuid"

	"github.com/kidsvax/clinic-platform/internal/catalog"
	"github.com/kidsvax/clinic-platform/pkg/logging"
)

// BookedVaccine summarizes an existing active booking the candidate is
// checked against: the vaccine and its most recent appointment date.
type BookedVaccine struct {
	VaccineID uuid.UUID
	Name      string
	LastDate  time.Time
}

// CheckCompatibility evaluates the candidate vaccine against every vaccine the
// child already has active bookings for. A pair without a rule is assumed
// compatible with no spacing requirement. A forbidden pair fails regardless of
// dates. A spaced pair fails when lastDate + minIntervalDays is strictly after
// the candidate date, so booking exactly at the interval boundary is allowed.
//
// Evaluated once per scheduling attempt against the series start date; later
// doses shifted by the vaccine's own interval are not re-checked.
func CheckCompatibility(rules *catalog.RuleBook, candidate *catalog.Vaccine, booked []BookedVaccine, candidateDate time.Time, logger *logging.Logger) *ValidationError {
	if logger == nil {
		logger = logging.Default()
	}
	for _, other := range booked {
		rule := rules.Find(candidate.ID, other.VaccineID)
		if rule == nil {
			// No rule configured for this pair: assumed compatible.
			logger.Debug("no interval rule for vaccine pair",
				"candidate", candidate.Name,
				"booked_vaccine_id", other.VaccineID,
			)
			continue
		}
		if !rule.CanBeGivenTogether {
			return incompatible(candidate.Name, "cannot be combined with "+other.Name)
		}
		if rule.MinIntervalDays > 0 {
			earliest := other.LastDate.AddDate(0, 0, rule.MinIntervalDays)
			if earliest.After(candidateDate) {
				return incompatible(candidate.Name,
					"requires a gap after "+other.Name+"; earliest allowed date is "+earliest.Format("2006-01-02"))
			}
		}
	}
	return nil
}
