package domain

import "errors"

// Common domain errors used across the engine.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrLessonNotFound is returned by a LessonSource when no lesson
	// exists for the requested day. The session controller converts it
	// into a placeholder lesson rather than propagating it.
	ErrLessonNotFound = errors.New("lesson not found")

	// ErrLessonLocked is returned when a lesson day is requested before
	// its predecessor has been completed.
	ErrLessonLocked = errors.New("lesson locked")

	// ErrInvalidOperation is returned when a sync operation has an unknown
	// kind or a payload that does not decode as its kind's record type.
	ErrInvalidOperation = errors.New("invalid sync operation")
)
