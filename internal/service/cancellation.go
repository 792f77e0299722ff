package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cinema-booking-core/internal/model"
	"github.com/iliyamo/cinema-booking-core/internal/queue"
	"github.com/iliyamo/cinema-booking-core/internal/repository"
)

// CancelBooking releases the seats of the caller's booking and marks it
// cancelled, in one transaction. It is allowed only while the showtime is
// more than the cancellation window away. The payment row is kept.
func (s *BookingService) CancelBooking(ctx context.Context, userID, bookingID uint64) error {
	if userID == 0 || bookingID == 0 {
		return invalidf("user id and booking id are required")
	}

	var (
		booking  *model.Booking
		released int64
	)
	err := s.tx.WithTx(ctx, writeTx, func(ctx context.Context) error {
		b, st, err := s.bookings.GetForUpdate(ctx, bookingID)
		if errors.Is(err, repository.ErrBookingNotFound) {
			return notFoundf("booking %d", bookingID)
		}
		if err != nil {
			return err
		}
		if b.UserID != userID {
			return fmt.Errorf("%w: booking %d belongs to another user", ErrForbidden, bookingID)
		}
		if b.Status == model.BookingCancelled {
			return ErrAlreadyCancelled
		}
		if lead := st.StartTime.Sub(s.now()); lead <= s.cancellationWindow {
			return fmt.Errorf("%w: showtime starts in %s, cancellation needs more than %s",
				ErrCancellationWindowClosed, lead.Truncate(time.Minute), s.cancellationWindow)
		}

		n, err := s.bookings.DeleteClaims(ctx, b.ID)
		if err != nil {
			return err
		}
		ok, err := s.bookings.MarkCancelled(ctx, b.ID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrAlreadyCancelled
		}
		booking, released = b, n
		return nil
	})
	if err != nil {
		if isDomainErr(err) {
			return err
		}
		s.log.WithError(err).WithFields(logrus.Fields{
			"user_id":    userID,
			"booking_id": bookingID,
		}).Error("cancel booking failed")
		return storageErr("cancel booking", err)
	}

	s.log.WithFields(logrus.Fields{
		"booking_id":     booking.ID,
		"user_id":        userID,
		"showtime_id":    booking.ShowtimeID,
		"released_seats": released,
	}).Info("booking cancelled")
	s.publishCancelled(ctx, booking, released)
	return nil
}

func (s *BookingService) publishCancelled(ctx context.Context, b *model.Booking, released int64) {
	if s.events == nil {
		return
	}
	ev := queue.BookingCancelledEvent{
		BookingID:     b.ID,
		UserID:        b.UserID,
		ShowtimeID:    b.ShowtimeID,
		ReleasedSeats: released,
		CancelledAt:   s.now().UTC().Format(time.RFC3339),
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), eventTimeout)
	defer cancel()
	if err := s.events.PublishBookingCancelled(pctx, ev); err != nil {
		s.log.WithError(err).WithField("booking_id", ev.BookingID).Warn("publish booking.cancelled failed")
	}
}
