package scheduling

import (
	"errors"
	"fmt"
)

// Code classifies a validation failure. Every code is a recoverable condition
// surfaced to the caller, never a crash.
type Code string

const (
	CodeNotFound     Code = "not_found"
	CodeIneligible   Code = "ineligible"
	CodeIncompatible Code = "incompatible"
	CodeConflict     Code = "conflict"
	CodeInvalidInput Code = "invalid_input"
)

// ValidationError is a structured validation failure. VaccineName is carried
// as data so presentation layers can compose their own messages.
type ValidationError struct {
	Code        Code
	VaccineName string
	Reason      string
}

func (e *ValidationError) Error() string {
	if e.VaccineName != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Reason, e.VaccineName)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Reason)
}

// AsValidation unwraps err into a ValidationError if one is in the chain.
func AsValidation(err error) (*ValidationError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}

func notFound(reason string) *ValidationError {
	return &ValidationError{Code: CodeNotFound, Reason: reason}
}

func ineligible(vaccineName, reason string) *ValidationError {
	return &ValidationError{Code: CodeIneligible, VaccineName: vaccineName, Reason: reason}
}

func incompatible(vaccineName, reason string) *ValidationError {
	return &ValidationError{Code: CodeIncompatible, VaccineName: vaccineName, Reason: reason}
}

func conflict(vaccineName, reason string) *ValidationError {
	return &ValidationError{Code: CodeConflict, VaccineName: vaccineName, Reason: reason}
}

func invalidInput(vaccineName, reason string) *ValidationError {
	return &ValidationError{Code: CodeInvalidInput, VaccineName: vaccineName, Reason: reason}
}
