package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned to a caller either wraps one of these or
// is treated as an internal failure.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
)

// Domain errors.
var (
	ErrProjectNotFound     = fmt.Errorf("project %w", ErrNotFound)
	ErrSprintNotFound      = fmt.Errorf("sprint %w", ErrNotFound)
	ErrTaskNotFound        = fmt.Errorf("task %w", ErrNotFound)
	ErrNotProjectMember    = fmt.Errorf("%w: not a member of the project", ErrForbidden)
	ErrInsufficientRole    = fmt.Errorf("%w: insufficient project role", ErrForbidden)
	ErrFeatureUnavailable  = fmt.Errorf("%w: feature not available for this project", ErrForbidden)
	ErrCrossProjectTask    = fmt.Errorf("%w: task and sprint belong to different projects", ErrConflict)
	ErrInvalidID           = fmt.Errorf("%w: malformed id", ErrInvalidInput)
	ErrInvalidDateRange    = fmt.Errorf("%w: start date must not be after end date", ErrInvalidInput)
	ErrStatusNotSettable   = fmt.Errorf("%w: only Cancelled can be set on a sprint", ErrInvalidInput)
	ErrUnknownTaskStatus   = fmt.Errorf("%w: status is not in the project vocabulary", ErrInvalidInput)
	ErrInvalidVocabulary   = fmt.Errorf("%w: status vocabulary must have 2-10 unique entries", ErrInvalidInput)
	ErrInvalidDoneStatus   = fmt.Errorf("%w: done status must be in the status vocabulary", ErrInvalidInput)
	ErrNoFieldsToUpdate    = fmt.Errorf("%w: no fields to update", ErrInvalidInput)
	ErrEmptyTitle          = fmt.Errorf("%w: title cannot be empty", ErrInvalidInput)
	ErrEmptyFile           = fmt.Errorf("%w: file is empty", ErrInvalidInput)
	ErrNoTasksInFile       = fmt.Errorf("%w: no tasks found in file", ErrInvalidInput)
	ErrInvalidSprintRef    = fmt.Errorf("%w: invalid sprint reference", ErrInvalidInput)
	ErrMissingCredentials  = fmt.Errorf("%w: missing credentials", ErrUnauthorized)
	ErrInvalidCredentials  = fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	ErrReadOnly            = errors.New("write attempted in read-only transaction")
	ErrNotInitialized      = errors.New("store not initialized (run 'sprintcrew init' first)")
	ErrAlreadyInitialized  = errors.New("sprintcrew already initialized")
	ErrConfigExists        = errors.New("config file already exists")
	ErrUnknownStoreDriver  = errors.New("unknown store driver")
	ErrQueueClosed         = errors.New("post-commit queue closed")
	ErrSubscriptionExpired = errors.New("subscription closed")
)

// Kind returns the error kind sentinel err wraps, or nil for internal errors.
func Kind(err error) error {
	for _, k := range []error{ErrInvalidInput, ErrUnauthorized, ErrForbidden, ErrNotFound, ErrConflict} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// ValidationError wraps a field-level validation failure as ErrInvalidInput.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid input: %s %s", e.Field, e.Reason)
}

// Unwrap makes errors.Is(err, ErrInvalidInput) hold.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}
