// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// booking service to distinguish between different failure scenarios
// without inspecting driver errors themselves.
package repository

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own.
var ErrForbidden = errors.New("forbidden")

// ErrScreenNotFound is returned when a screen has no seats, which is also
// what a deleted screen looks like to the booking core.
var ErrScreenNotFound = errors.New("screen not found")

// ErrShowtimeNotFound is returned when a showtime lookup yields no rows.
var ErrShowtimeNotFound = errors.New("showtime not found")

// ErrBookingNotFound is returned when a booking lookup yields no rows.
var ErrBookingNotFound = errors.New("booking not found")

// ErrDuplicateClaim is returned when the store rejects a seat claim because
// the (showtime, seat) pair is already taken.
var ErrDuplicateClaim = errors.New("seat already claimed")

// ErrLockConflict is returned when MySQL aborts a statement because of a
// deadlock (the server rolls back the whole transaction) or a lock wait
// timeout (only the statement is rolled back). Callers must still roll the
// transaction back themselves, which WithTx does on any error.
var ErrLockConflict = errors.New("lock conflict")

// MySQL server error numbers the repositories care about.
const (
	mysqlDuplicateEntry  = 1062
	mysqlLockWaitTimeout = 1205
	mysqlDeadlock        = 1213
)

// classify turns driver errors that carry a meaning for the booking flow
// into sentinel errors. Everything else is returned unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case mysqlDuplicateEntry:
			return fmt.Errorf("%w: %s", ErrDuplicateClaim, me.Message)
		case mysqlDeadlock, mysqlLockWaitTimeout:
			return fmt.Errorf("%w: %s", ErrLockConflict, me.Message)
		}
	}
	return err
}
