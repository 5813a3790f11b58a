package catalog

import "errors"

var (
	// ErrVaccineNotFound is returned when a vaccine is not in the catalog
	ErrVaccineNotFound = errors.New("vaccine not found")

	// ErrPackageNotFound is returned when a vaccine package is not in the catalog
	ErrPackageNotFound = errors.New("vaccine package not found")
)
