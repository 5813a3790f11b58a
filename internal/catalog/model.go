package catalog

import "github.com/google/uuid"

// Vaccine is the immutable-per-request fact sheet the scheduling engine reads.
// Medical flags default to false, meaning "no restriction".
type Vaccine struct {
	ID                 uuid.UUID `json:"id"`
	Name               string    `json:"name"`
	RequiredDoses      int       `json:"required_doses"`
	DoseIntervalDays   int       `json:"dose_interval_days"`
	Price              int64     `json:"price"`
	AvoidIfChronic     bool      `json:"avoid_if_chronic"`
	AvoidIfAllergy     bool      `json:"avoid_if_allergy"`
	HasDrugInteraction bool      `json:"has_drug_interaction"`
	HasSpecialWarning  bool      `json:"has_special_warning"`
	ForBloodType       string    `json:"for_blood_type,omitempty"` // empty = any blood type
}

// VaccinePackage bundles several vaccines sold together at a package price.
type VaccinePackage struct {
	ID         uuid.UUID   `json:"id"`
	Name       string      `json:"name"`
	Price      int64       `json:"price"`
	VaccineIDs []uuid.UUID `json:"vaccine_ids"`
}

// DistinctVaccineIDs returns the package's vaccine ids with duplicates removed,
// preserving first-seen order. Package detail order carries no semantics.
func (p *VaccinePackage) DistinctVaccineIDs() []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(p.VaccineIDs))
	out := make([]uuid.UUID, 0, len(p.VaccineIDs))
	for _, id := range p.VaccineIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
