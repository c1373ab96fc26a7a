package dao

import (
	"context"
	"errors"

	"github.com/viant/attention/model/types"
)

// Common, reusable DAO errors. Using sentinel variables allows callers to
// reliably detect error conditions via errors.Is/As.
var (
	// ErrNotFound is returned when the requested entity does not exist in the
	// underlying storage.
	ErrNotFound = errors.New("dao: not found")

	// ErrInvalidID indicates that the supplied agent id is empty.
	ErrInvalidID = errors.New("dao: invalid id")

	// ErrNilEntity is returned when the caller attempts to persist a nil
	// pointer.
	ErrNilEntity = errors.New("dao: nil entity")

	// ErrConflict is returned when a write lost a version race.
	ErrConflict = errors.New("dao: version conflict")
)

// Classify maps a store error onto the attention error taxonomy. Typed errors,
// ErrNotFound and cancellation are returned unchanged; a conflict that
// outlived its retries surfaces as StoreUnavailableError.
func Classify(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		if types.IsStoreTimeout(err) {
			return err
		}
		return types.NewStoreTimeoutError(op, err)
	case errors.Is(err, context.Canceled),
		errors.Is(err, ErrNotFound),
		types.IsValidation(err),
		types.IsAgentStateNotFound(err),
		types.IsStoreUnavailable(err):
		return err
	case errors.Is(err, ErrInvalidID), errors.Is(err, ErrNilEntity):
		return types.NewValidationError("state", err.Error())
	}
	return types.NewStoreUnavailableError(op, err)
}

// Retry runs fn until it succeeds, fails with an error other than
// ErrConflict, or attempts are exhausted.
func Retry(attempts int, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); !errors.Is(err, ErrConflict) {
			return err
		}
	}
	return err
}
