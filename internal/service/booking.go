package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cinema-booking-core/internal/model"
	"github.com/iliyamo/cinema-booking-core/internal/queue"
	"github.com/iliyamo/cinema-booking-core/internal/repository"
)

// CreateBookingInput is a request to book seats for a showtime. UserID is
// trusted: authentication happens before the core is called.
type CreateBookingInput struct {
	UserID     uint64
	ShowtimeID uint64
	SeatIDs    []uint64
}

// BookingReceipt is what a successful CreateBooking persisted.
type BookingReceipt struct {
	Booking  model.Booking
	Seats    []model.Seat
	Payment  model.Payment
	Showtime model.Showtime
}

// CreateBooking claims the requested seats and records the booking and its
// payment in one transaction. Either every row is written or none is.
//
// A seat claimed by someone else yields a *SeatUnavailableError naming the
// conflicting seats, whether the conflict is seen by the pre-check or only
// by the store's (showtime, seat) uniqueness constraint.
func (s *BookingService) CreateBooking(ctx context.Context, in CreateBookingInput) (*BookingReceipt, error) {
	if in.UserID == 0 {
		return nil, invalidf("user id is required")
	}
	if in.ShowtimeID == 0 {
		return nil, invalidf("showtime id is required")
	}
	seatIDs, err := normalizeSeatIDs(in.SeatIDs)
	if err != nil {
		return nil, err
	}

	var receipt *BookingReceipt
	err = s.tx.WithTx(ctx, writeTx, func(ctx context.Context) error {
		st, err := s.showtimes.GetByID(ctx, in.ShowtimeID)
		if errors.Is(err, repository.ErrShowtimeNotFound) {
			return notFoundf("showtime %d", in.ShowtimeID)
		}
		if err != nil {
			return err
		}

		seats, err := s.seats.GetByIDsForScreen(ctx, st.ScreenID, seatIDs)
		if err != nil {
			return err
		}
		if foreign := missingSeats(seatIDs, seats); len(foreign) > 0 {
			return invalidf("seats %v do not belong to screen %d", foreign, st.ScreenID)
		}
		for _, seat := range seats {
			if !seat.Bookable() {
				return invalidf("seat %d is not a bookable seat", seat.ID)
			}
		}

		taken, err := s.bookings.ClaimedAmong(ctx, st.ID, seatIDs)
		if err != nil {
			return err
		}
		if len(taken) > 0 {
			return &SeatUnavailableError{SeatIDs: taken}
		}

		total := decimal.Zero
		for _, seat := range seats {
			total = total.Add(seat.Price)
		}

		b := &model.Booking{
			UserID:      in.UserID,
			ShowtimeID:  st.ID,
			TotalAmount: total,
			Status:      model.BookingActive,
		}
		if err := s.bookings.Create(ctx, b); err != nil {
			return err
		}

		claims := make([]model.SeatClaim, len(seatIDs))
		for i, id := range seatIDs {
			claims[i] = model.SeatClaim{BookingID: b.ID, ShowtimeID: st.ID, SeatID: id}
		}
		if err := s.bookings.CreateClaims(ctx, claims); err != nil {
			return err
		}

		p := &model.Payment{BookingID: b.ID, Amount: total, Status: model.PaymentSuccess}
		if err := s.payments.Create(ctx, p); err != nil {
			return err
		}

		receipt = &BookingReceipt{Booking: *b, Seats: seats, Payment: *p, Showtime: *st}
		return nil
	})
	if err != nil {
		return nil, s.bookingFailure(ctx, in, seatIDs, err)
	}

	s.log.WithFields(logrus.Fields{
		"booking_id":  receipt.Booking.ID,
		"user_id":     in.UserID,
		"showtime_id": in.ShowtimeID,
		"seats":       len(seatIDs),
		"total":       receipt.Booking.TotalAmount.StringFixed(2),
	}).Info("booking created")
	s.publishConfirmed(ctx, receipt)
	return receipt, nil
}

// bookingFailure maps an aborted booking transaction onto the taxonomy. A
// uniqueness or lock conflict means another booking got there first, so
// the claimed set is read again to report the contested seats.
func (s *BookingService) bookingFailure(ctx context.Context, in CreateBookingInput, seatIDs []uint64, err error) error {
	if isDomainErr(err) {
		return err
	}
	if errors.Is(err, repository.ErrDuplicateClaim) || errors.Is(err, repository.ErrLockConflict) {
		taken, qerr := s.bookings.ClaimedAmong(ctx, in.ShowtimeID, seatIDs)
		if qerr == nil && len(taken) > 0 {
			s.log.WithFields(logrus.Fields{
				"user_id":     in.UserID,
				"showtime_id": in.ShowtimeID,
				"seats":       taken,
			}).Info("booking lost a seat race")
			return &SeatUnavailableError{SeatIDs: taken}
		}
	}
	s.log.WithError(err).WithFields(logrus.Fields{
		"user_id":     in.UserID,
		"showtime_id": in.ShowtimeID,
	}).Error("create booking failed")
	return storageErr("create booking", err)
}

func (s *BookingService) publishConfirmed(ctx context.Context, r *BookingReceipt) {
	if s.events == nil {
		return
	}
	labels := make([]string, len(r.Seats))
	ids := make([]uint64, len(r.Seats))
	for i, seat := range r.Seats {
		labels[i] = seat.Label()
		ids[i] = seat.ID
	}
	ev := queue.BookingConfirmedEvent{
		BookingID:   r.Booking.ID,
		UserID:      r.Booking.UserID,
		ShowtimeID:  r.Booking.ShowtimeID,
		ScreenID:    r.Showtime.ScreenID,
		StartsAt:    r.Showtime.StartTime.UTC().Format(time.RFC3339),
		SeatIDs:     ids,
		SeatLabels:  labels,
		TotalAmount: r.Booking.TotalAmount.StringFixed(2),
		ConfirmedAt: s.now().UTC().Format(time.RFC3339),
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), eventTimeout)
	defer cancel()
	if err := s.events.PublishBookingConfirmed(pctx, ev); err != nil {
		s.log.WithError(err).WithField("booking_id", ev.BookingID).Warn("publish booking.confirmed failed")
	}
}

// ListBookings returns the caller's booking history, newest first.
func (s *BookingService) ListBookings(ctx context.Context, userID uint64) ([]model.BookingHistoryItem, error) {
	if userID == 0 {
		return nil, invalidf("user id is required")
	}
	list, err := s.bookings.ListByUser(ctx, userID)
	if err != nil {
		return nil, storageErr("list bookings", err)
	}
	return list, nil
}

// GetBooking returns one booking of the caller. Bookings of other users
// are reported as not found.
func (s *BookingService) GetBooking(ctx context.Context, userID, bookingID uint64) (*model.BookingHistoryItem, error) {
	if userID == 0 || bookingID == 0 {
		return nil, invalidf("user id and booking id are required")
	}
	item, err := s.bookings.GetByIDForUser(ctx, bookingID, userID)
	if errors.Is(err, repository.ErrBookingNotFound) {
		return nil, notFoundf("booking %d", bookingID)
	}
	if err != nil {
		return nil, storageErr("load booking", err)
	}
	return item, nil
}

// normalizeSeatIDs rejects empty lists and zero ids, and returns the
// distinct ids in ascending order. Claims are always inserted in that
// order so concurrent bookings lock index entries in the same sequence.
func normalizeSeatIDs(ids []uint64) ([]uint64, error) {
	if len(ids) == 0 {
		return nil, invalidf("at least one seat is required")
	}
	seen := make(map[uint64]struct{}, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			return nil, invalidf("seat ids must be positive")
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// missingSeats returns the requested ids that are not in found.
func missingSeats(requested []uint64, found []model.Seat) []uint64 {
	have := make(map[uint64]struct{}, len(found))
	for _, s := range found {
		have[s.ID] = struct{}{}
	}
	var out []uint64
	for _, id := range requested {
		if _, ok := have[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}
