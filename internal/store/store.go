package store

import (
	"errors"
	"fmt"

	"github.com/casa-vistamar/booking-api/internal/models"
	"github.com/go-redis/redis/v8"
)

var (
	// ErrNotFound means the record does not exist (or a presented token did
	// not match; callers must not be able to tell the two apart).
	ErrNotFound = errors.New("record not found")
	// ErrUnavailable means the backend could not be reached. Kept distinct
	// from ErrNotFound so operators and tests can see the difference.
	ErrUnavailable = errors.New("store backend unavailable")
	// ErrConflict means a compare-and-swap transition lost its race.
	ErrConflict = errors.New("record modified concurrently")
)

// StateError is returned by Transition when the record is not in one of the
// allowed source states, carrying the state it actually was in.
type StateError struct {
	Current models.Status
}

func (e *StateError) Error() string {
	return fmt.Sprintf("invalid state for transition: %s", e.Current)
}

// wrapErr maps driver errors onto the store's sentinel errors.
func wrapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
