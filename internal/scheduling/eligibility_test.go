package scheduling

import (
	"testing"

	"github.com/google/uuid"

	"github.com/kidsvax/clinic-platform/internal/catalog"
	"github.com/kidsvax/clinic-platform/internal/children"
)

func TestCheckEligibilityHealthyChild(t *testing.T) {
	child := &children.Child{ID: uuid.New(), BloodType: "O+"}
	vaccine := &catalog.Vaccine{
		ID:                 uuid.New(),
		Name:               "Pentaxim",
		AvoidIfChronic:     true,
		AvoidIfAllergy:     true,
		HasDrugInteraction: true,
		HasSpecialWarning:  true,
	}

	if verr := CheckEligibility(child, vaccine); verr != nil {
		t.Errorf("expected eligible, got %v", verr)
	}
}

func TestCheckEligibilityBloodTypeMismatch(t *testing.T) {
	child := &children.Child{ID: uuid.New(), BloodType: "A+"}
	vaccine := &catalog.Vaccine{ID: uuid.New(), Name: "RhoGard", ForBloodType: "O-"}

	verr := CheckEligibility(child, vaccine)
	if verr == nil {
		t.Fatal("expected ineligible for blood type mismatch")
	}
	if verr.Code != CodeIneligible {
		t.Errorf("expected code %s, got %s", CodeIneligible, verr.Code)
	}
	if verr.VaccineName != "RhoGard" {
		t.Errorf("expected vaccine name carried in error, got %q", verr.VaccineName)
	}
}

func TestCheckEligibilityMatchingBloodType(t *testing.T) {
	child := &children.Child{ID: uuid.New(), BloodType: "O-"}
	vaccine := &catalog.Vaccine{ID: uuid.New(), Name: "RhoGard", ForBloodType: "O-"}

	if verr := CheckEligibility(child, vaccine); verr != nil {
		t.Errorf("expected eligible with matching blood type, got %v", verr)
	}
}

// Each exclusion flag must flip the verdict independently of the other four.
func TestCheckEligibilityFlagsAreIndependent(t *testing.T) {
	cases := []struct {
		name    string
		vaccine catalog.Vaccine
		child   children.Child
	}{
		{
			name:    "chronic illness",
			vaccine: catalog.Vaccine{AvoidIfChronic: true},
			child:   children.Child{HasChronicIllnesses: true},
		},
		{
			name:    "allergy",
			vaccine: catalog.Vaccine{AvoidIfAllergy: true},
			child:   children.Child{HasAllergies: true},
		},
		{
			name:    "drug interaction",
			vaccine: catalog.Vaccine{HasDrugInteraction: true},
			child:   children.Child{HasRecentMedication: true},
		},
		{
			name:    "special warning",
			vaccine: catalog.Vaccine{HasSpecialWarning: true},
			child:   children.Child{HasOtherSpecialCondition: true},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.vaccine.Name = "TestVax"

			if verr := CheckEligibility(&tc.child, &tc.vaccine); verr == nil {
				t.Error("expected ineligible when flag and condition both set")
			}

			// Restriction flag without the matching condition stays eligible.
			healthy := children.Child{}
			if verr := CheckEligibility(&healthy, &tc.vaccine); verr != nil {
				t.Errorf("expected eligible for healthy child, got %v", verr)
			}

			// Condition without the restriction flag stays eligible.
			plain := catalog.Vaccine{Name: "PlainVax"}
			if verr := CheckEligibility(&tc.child, &plain); verr != nil {
				t.Errorf("expected eligible for unrestricted vaccine, got %v", verr)
			}
		})
	}
}

func TestCheckEligibilityIsIdempotent(t *testing.T) {
	child := &children.Child{ID: uuid.New(), HasAllergies: true}
	vaccine := &catalog.Vaccine{ID: uuid.New(), Name: "TestVax", AvoidIfAllergy: true}

	first := CheckEligibility(child, vaccine)
	second := CheckEligibility(child, vaccine)
	if first == nil || second == nil {
		t.Fatal("expected ineligible on both evaluations")
	}
	if first.Reason != second.Reason {
		t.Errorf("expected identical verdicts, got %q and %q", first.Reason, second.Reason)
	}
}
