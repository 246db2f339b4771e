package domain

import "errors"

// Domain-specific errors for business logic validation.
var (
	// Task errors
	ErrTaskNotFound    = errors.New("task not found")
	ErrSubtaskNotFound = errors.New("subtask not found")

	// Validation errors
	ErrEmptyTitle           = errors.New("title is required")
	ErrMissingDueDate       = errors.New("due date is required")
	ErrOutsideBusinessHours = errors.New("due time is outside business hours")
	ErrDueMomentInPast      = errors.New("due moment is earlier than now")
	ErrInvalidStatus        = errors.New("invalid task status")
	ErrInvalidPriority      = errors.New("invalid task priority")
	ErrInvalidRecurrence    = errors.New("invalid recurrence frequency")
	ErrInvalidDueTime       = errors.New("due time must be HH:MM")

	// Permission errors
	ErrPermissionDenied = errors.New("permission denied")

	// User errors
	ErrUserNotFound = errors.New("user not found")
	ErrUserInactive = errors.New("user is inactive")
	ErrInvalidToken = errors.New("invalid authentication token")
)
