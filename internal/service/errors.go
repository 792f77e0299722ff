package service

import (
	"errors"
	"fmt"
)

// Failure taxonomy of the booking core. Handlers translate these into HTTP
// statuses; everything else is a StorageFailure.
var (
	ErrInvalidInput             = errors.New("invalid input")
	ErrNotFound                 = errors.New("not found")
	ErrForbidden                = errors.New("forbidden")
	ErrSeatUnavailable          = errors.New("some seats are unavailable")
	ErrCancellationWindowClosed = errors.New("cancellation window closed")
	ErrAlreadyCancelled         = errors.New("booking already cancelled")
	ErrStorage                  = errors.New("storage failure")
)

// SeatUnavailableError lists exactly which requested seats were already
// claimed. It matches ErrSeatUnavailable with errors.Is.
type SeatUnavailableError struct {
	SeatIDs []uint64
}

func (e *SeatUnavailableError) Error() string {
	return fmt.Sprintf("%s: %v", ErrSeatUnavailable, e.SeatIDs)
}

func (e *SeatUnavailableError) Is(target error) bool { return target == ErrSeatUnavailable }

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func notFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}

// isDomainErr reports whether err already belongs to the taxonomy.
func isDomainErr(err error) bool {
	for _, target := range []error{
		ErrInvalidInput, ErrNotFound, ErrForbidden, ErrSeatUnavailable,
		ErrCancellationWindowClosed, ErrAlreadyCancelled, ErrStorage,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
