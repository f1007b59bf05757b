package domain

import "errors"

// -----------------------------------------------------------------------------
// Domain Errors
// These errors represent domain-level failures and are used by stores,
// the generation pipeline and services to communicate failure conditions.
// -----------------------------------------------------------------------------

// Generation errors
var (
	ErrAnnotationUnavailable = errors.New("annotation unavailable")
	ErrInvalidProfile        = errors.New("invalid difficulty profile")
	ErrInvalidSampleRatio    = errors.New("sample ratio must be in (0, 1]")
)

// Exercise errors
var (
	ErrExerciseNotFound = errors.New("exercise not found")
	ErrBlankMismatch    = errors.New("blank count does not match answers")
)

// Segment errors
var (
	ErrNoSegmentData = errors.New("no transcript segment data")
)

// Job errors
var (
	ErrJobNotFound = errors.New("job not found")
)

// General errors
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)
