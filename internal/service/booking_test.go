package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-booking-core/internal/model"
	"github.com/iliyamo/cinema-booking-core/internal/repository"
)

// bookingFixture is one screen with rows A (6 seats, 10.00) and B (4 seats,
// 15.50) and one showtime a day away. Screen 2 has its own row.
type bookingFixture struct {
	store *memStore
	rowA  []uint64
	rowB  []uint64
	other []uint64
}

func newBookingFixture() bookingFixture {
	m := newMemStore()
	f := bookingFixture{store: m}
	f.rowA = m.addRow(1, "A", 6, "10.00")
	f.rowB = m.addRow(1, "B", 4, "15.50")
	f.other = m.addRow(2, "A", 2, "8.00")
	m.addShowtime(100, 1, fixedNow.Add(24*time.Hour))
	return f
}

func TestCreateBookingPersistsBookingClaimsAndPayment(t *testing.T) {
	f := newBookingFixture()
	pub := &recordingPublisher{}
	svc := newTestService(f.store, WithPublisher(pub))

	r, err := svc.CreateBooking(context.Background(), CreateBookingInput{
		UserID: 7, ShowtimeID: 100, SeatIDs: []uint64{f.rowB[0], f.rowA[1]},
	})
	require.NoError(t, err)

	assert.NotZero(t, r.Booking.ID)
	assert.Equal(t, model.BookingActive, r.Booking.Status)
	assert.True(t, decimal.RequireFromString("25.50").Equal(r.Booking.TotalAmount))
	assert.True(t, r.Booking.TotalAmount.Equal(r.Payment.Amount))
	assert.Equal(t, model.PaymentSuccess, r.Payment.Status)

	bookings, claims, payments := f.store.counts()
	assert.Equal(t, 1, bookings)
	assert.Equal(t, 2, claims)
	assert.Equal(t, 1, payments)
	assert.ElementsMatch(t, []uint64{f.rowA[1], f.rowB[0]}, f.store.claimsFor(r.Booking.ID))

	require.Len(t, pub.confirmed, 1)
	assert.Equal(t, r.Booking.ID, pub.confirmed[0].BookingID)
	assert.Equal(t, []string{"A2", "B1"}, pub.confirmed[0].SeatLabels)
	assert.Equal(t, "25.50", pub.confirmed[0].TotalAmount)
}

func TestCreateBookingCollapsesDuplicateSeatIDs(t *testing.T) {
	f := newBookingFixture()
	svc := newTestService(f.store)

	r, err := svc.CreateBooking(context.Background(), CreateBookingInput{
		UserID: 7, ShowtimeID: 100, SeatIDs: []uint64{f.rowA[0], f.rowA[0]},
	})
	require.NoError(t, err)
	assert.Len(t, f.store.claimsFor(r.Booking.ID), 1)
	assert.True(t, decimal.RequireFromString("10").Equal(r.Booking.TotalAmount))
}

func TestCreateBookingValidation(t *testing.T) {
	f := newBookingFixture()
	f.store.seats[f.rowA[5]] = model.Seat{ID: f.rowA[5], ScreenID: 1, RowLabel: "A", SeatNumber: model.PlaceholderSeatNumber}
	svc := newTestService(f.store)
	ctx := context.Background()

	cases := []struct {
		name string
		in   CreateBookingInput
		want error
	}{
		{"empty seat list", CreateBookingInput{UserID: 7, ShowtimeID: 100}, ErrInvalidInput},
		{"zero seat id", CreateBookingInput{UserID: 7, ShowtimeID: 100, SeatIDs: []uint64{0}}, ErrInvalidInput},
		{"missing user", CreateBookingInput{ShowtimeID: 100, SeatIDs: []uint64{f.rowA[0]}}, ErrInvalidInput},
		{"seat on another screen", CreateBookingInput{UserID: 7, ShowtimeID: 100, SeatIDs: []uint64{f.rowA[0], f.other[0]}}, ErrInvalidInput},
		{"unknown seat", CreateBookingInput{UserID: 7, ShowtimeID: 100, SeatIDs: []uint64{9999}}, ErrInvalidInput},
		{"placeholder seat", CreateBookingInput{UserID: 7, ShowtimeID: 100, SeatIDs: []uint64{f.rowA[5]}}, ErrInvalidInput},
		{"unknown showtime", CreateBookingInput{UserID: 7, ShowtimeID: 555, SeatIDs: []uint64{f.rowA[0]}}, ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateBooking(ctx, tc.in)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	bookings, claims, payments := f.store.counts()
	assert.Zero(t, bookings+claims+payments)
}

func TestCreateBookingReportsExactlyTheConflictingSeats(t *testing.T) {
	f := newBookingFixture()
	svc := newTestService(f.store)
	ctx := context.Background()

	_, err := svc.CreateBooking(ctx, CreateBookingInput{UserID: 1, ShowtimeID: 100, SeatIDs: []uint64{f.rowA[1], f.rowA[2]}})
	require.NoError(t, err)

	_, err = svc.CreateBooking(ctx, CreateBookingInput{UserID: 2, ShowtimeID: 100, SeatIDs: []uint64{f.rowA[0], f.rowA[2], f.rowA[3]}})
	require.ErrorIs(t, err, ErrSeatUnavailable)

	var unavailable *SeatUnavailableError
	require.True(t, errors.As(err, &unavailable))
	assert.Equal(t, []uint64{f.rowA[2]}, unavailable.SeatIDs)

	bookings, claims, payments := f.store.counts()
	assert.Equal(t, 1, bookings)
	assert.Equal(t, 2, claims)
	assert.Equal(t, 1, payments)
}

func TestCreateBookingUsesOneClaimQuery(t *testing.T) {
	f := newBookingFixture()
	svc := newTestService(f.store)

	_, err := svc.CreateBooking(context.Background(), CreateBookingInput{UserID: 1, ShowtimeID: 100, SeatIDs: f.rowA})
	require.NoError(t, err)
	assert.Equal(t, 1, f.store.claimedAmongN)
}

func TestCreateBookingIsAtomic(t *testing.T) {
	f := newBookingFixture()
	f.store.failPayment = errors.New("payments table is gone")
	pub := &recordingPublisher{}
	svc := newTestService(f.store, WithPublisher(pub))

	_, err := svc.CreateBooking(context.Background(), CreateBookingInput{UserID: 7, ShowtimeID: 100, SeatIDs: f.rowA[:2]})
	require.ErrorIs(t, err, ErrStorage)

	bookings, claims, payments := f.store.counts()
	assert.Zero(t, bookings)
	assert.Zero(t, claims)
	assert.Zero(t, payments)
	assert.Empty(t, pub.confirmed)

	// the seats are still bookable
	f.store.failPayment = nil
	_, err = svc.CreateBooking(context.Background(), CreateBookingInput{UserID: 8, ShowtimeID: 100, SeatIDs: f.rowA[:2]})
	assert.NoError(t, err)
}

func TestCreateBookingConstraintViolationWithoutClaimIsStorageFailure(t *testing.T) {
	f := newBookingFixture()
	f.store.failClaimsErr = repository.ErrLockConflict
	svc := newTestService(f.store)

	_, err := svc.CreateBooking(context.Background(), CreateBookingInput{UserID: 7, ShowtimeID: 100, SeatIDs: f.rowA[:1]})
	assert.ErrorIs(t, err, ErrStorage)
	assert.NotErrorIs(t, err, ErrSeatUnavailable)
}

func TestCreateBookingAmountIsASnapshot(t *testing.T) {
	f := newBookingFixture()
	svc := newTestService(f.store)

	r, err := svc.CreateBooking(context.Background(), CreateBookingInput{UserID: 7, ShowtimeID: 100, SeatIDs: f.rowA[:2]})
	require.NoError(t, err)

	f.store.setPrice(f.rowA[0], "99.00")

	list, err := svc.ListBookings(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, r.Booking.ID, list[0].BookingID)
	assert.True(t, decimal.RequireFromString("20").Equal(list[0].TotalAmount))
}

func TestConcurrentBookingsClaimEachSeatOnce(t *testing.T) {
	f := newBookingFixture()
	svc := newTestService(f.store)

	const n = 8
	contested := f.rowA[0]
	own := append(append([]uint64{}, f.rowA[1:]...), f.rowB...)
	require.GreaterOrEqual(t, len(own), n)

	// every attempt passes the pre-check before any of them commits, so
	// only the store's uniqueness check can pick the winner
	var arrived sync.WaitGroup
	arrived.Add(n)
	f.store.beforeCommit = func() {
		arrived.Done()
		arrived.Wait()
	}

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.CreateBooking(context.Background(), CreateBookingInput{
				UserID:     uint64(i + 1),
				ShowtimeID: 100,
				SeatIDs:    []uint64{contested, own[i]},
			})
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		var unavailable *SeatUnavailableError
		require.True(t, errors.As(err, &unavailable), "unexpected error: %v", err)
		assert.Equal(t, []uint64{contested}, unavailable.SeatIDs)
	}
	assert.Equal(t, 1, wins)

	bookings, claims, payments := f.store.counts()
	assert.Equal(t, 1, bookings)
	assert.Equal(t, 2, claims)
	assert.Equal(t, 1, payments)
}

func TestConcurrentBookingsNeverDoubleClaim(t *testing.T) {
	f := newBookingFixture()
	svc := newTestService(f.store)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			seats := []uint64{f.rowA[i%6], f.rowA[(i+1)%6]}
			_, err := svc.CreateBooking(context.Background(), CreateBookingInput{UserID: uint64(i + 1), ShowtimeID: 100, SeatIDs: seats})
			if err != nil {
				assert.ErrorIs(t, err, ErrSeatUnavailable)
			}
		}(i)
	}
	wg.Wait()

	seen := make(map[uint64]bool)
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	for _, c := range f.store.claims {
		assert.False(t, seen[c.SeatID], "seat %d claimed twice", c.SeatID)
		seen[c.SeatID] = true
	}
	assert.Len(t, f.store.payments, len(f.store.bookings))
}

func TestGetBookingHidesOtherUsersBookings(t *testing.T) {
	f := newBookingFixture()
	svc := newTestService(f.store)
	ctx := context.Background()

	r, err := svc.CreateBooking(ctx, CreateBookingInput{UserID: 7, ShowtimeID: 100, SeatIDs: f.rowA[:1]})
	require.NoError(t, err)

	got, err := svc.GetBooking(ctx, 7, r.Booking.ID)
	require.NoError(t, err)
	assert.Equal(t, r.Booking.ID, got.BookingID)

	_, err = svc.GetBooking(ctx, 8, r.Booking.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
