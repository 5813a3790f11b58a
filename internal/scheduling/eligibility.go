package scheduling

import (
	"github.com/kidsvax/clinic-platform/internal/catalog"
	"github.com/kidsvax/clinic-platform/internal/children"
)

// CheckEligibility decides whether a child's medical profile permits the
// vaccine at all, independent of scheduling. All five checks must pass; the
// first failing check's reason is returned. Pure, no side effects.
func CheckEligibility(child *children.Child, vaccine *catalog.Vaccine) *ValidationError {
	if vaccine.ForBloodType != "" && vaccine.ForBloodType != child.BloodType {
		return ineligible(vaccine.Name, "vaccine is restricted to blood type "+vaccine.ForBloodType)
	}
	if vaccine.AvoidIfChronic && child.HasChronicIllnesses {
		return ineligible(vaccine.Name, "not suitable for children with chronic illnesses")
	}
	if vaccine.AvoidIfAllergy && child.HasAllergies {
		return ineligible(vaccine.Name, "not suitable for children with allergies")
	}
	if vaccine.HasDrugInteraction && child.HasRecentMedication {
		return ineligible(vaccine.Name, "interacts with the child's recent medication")
	}
	if vaccine.HasSpecialWarning && child.HasOtherSpecialCondition {
		return ineligible(vaccine.Name, "carries a special warning for the child's condition")
	}
	return nil
}
