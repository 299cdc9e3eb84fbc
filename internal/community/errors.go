package community

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateSubmission is returned when a submitter repeats the same
	// condition set nearby within the duplicate window.
	ErrDuplicateSubmission = errors.New("duplicate submission")

	// ErrInvalidConditions is returned for empty, oversized or unknown label sets.
	ErrInvalidConditions = errors.New("invalid conditions")

	// ErrStoreUnavailable classifies every report or counter store failure.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// StoreError wraps a failure from a ReportStore or CounterStore.
// errors.Is(err, ErrStoreUnavailable) holds for every StoreError.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrStoreUnavailable, e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool { return target == ErrStoreUnavailable }

// NewStoreError wraps err as a StoreError for op. A nil err yields nil.
func NewStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}
