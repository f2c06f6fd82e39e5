/*
errors.go - Error kinds surfaced by the tracker

ERROR CATEGORIES:
  1. Validation errors - caller input breaks a basic rule (blank name,
     end date before start date, malformed date). Nothing was changed.
  2. Not-found errors - an operation named a child or subject id that
     does not exist. Safe to retry after refreshing the entity list.
  3. Storage errors - the persistence backend failed. Never retried here;
     mutations keep failing until the backend recovers.

USAGE:
  Every structured error matches its sentinel with errors.Is:

    if errors.Is(err, homeschool.ErrNotFound) {
        // refresh the list, maybe retry
    }

  and can be unpacked with errors.As for details:

    var verr *homeschool.ValidationError
    if errors.As(err, &verr) {
        fmt.Println(verr.Field)
    }

SEE ALSO:
  - tracker.go: wraps every backend failure in StorageError
  - api/handlers.go: maps kinds to HTTP status codes
*/
package homeschool

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is matched by every *NotFoundError.
	ErrNotFound = errors.New("not found")

	// ErrStorage is matched by every *StorageError.
	ErrStorage = errors.New("storage failure")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError reports caller-supplied input that fails a basic rule.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NotFoundError reports a reference to an entity that does not exist.
type NotFoundError struct {
	Kind Collection
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind.Singular(), e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// StorageError wraps a failure of the persistence backend.
// Op names the tracker operation that was running.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure during %s: %v", e.Op, e.Err)
}

// Unwrap exposes the backend cause; Is still matches ErrStorage.
func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrNotFound)
}

// IsNotFound returns true if the error indicates a missing child or subject.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// storageErr wraps a backend failure unless it already carries a kind.
func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrValidation) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrStorage) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
