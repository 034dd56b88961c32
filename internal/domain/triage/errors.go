package triage

import "errors"

var (
	// ErrMissingCredential means no provider key was supplied or found.
	ErrMissingCredential = errors.New("missing credential")
	// ErrEmptySymptoms means the symptom text was empty or whitespace.
	ErrEmptySymptoms = errors.New("symptoms must not be empty")
	// ErrInvalidMode is returned for an unknown pipeline mode.
	ErrInvalidMode = errors.New("invalid mode (allowed: direct, agents)")
	// ErrInvalidTemperature is returned for a temperature outside [0,1].
	ErrInvalidTemperature = errors.New("temperature must be within [0,1]")
)
