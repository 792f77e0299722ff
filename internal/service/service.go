// Package service holds the seat-booking core: availability, showtime
// filtering, booking creation and cancellation. It owns no state of its
// own; every coordination between concurrent requests goes through the
// store's transactions and its (showtime, seat) uniqueness constraint.
package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cinema-booking-core/internal/model"
	"github.com/iliyamo/cinema-booking-core/internal/queue"
	"github.com/iliyamo/cinema-booking-core/internal/repository"
)

// DefaultCancellationWindow is the minimum lead time before a showtime
// during which a booking may still be cancelled.
const DefaultCancellationWindow = 2 * time.Hour

// TxRunner runs fn inside one transaction carried by the context.
type TxRunner interface {
	WithTx(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context) error) error
}

// SeatStore reads the seat inventory of screens.
type SeatStore interface {
	GetByScreen(ctx context.Context, screenID uint64) ([]model.Seat, error)
	GetByIDsForScreen(ctx context.Context, screenID uint64, ids []uint64) ([]model.Seat, error)
}

// ShowtimeStore reads showtimes.
type ShowtimeStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Showtime, error)
	SearchByMovie(ctx context.Context, q repository.ShowtimeSearchQuery) ([]model.ShowtimeListing, error)
	AvailableLanguages(ctx context.Context, movieID uint64, city string, from, to time.Time) ([]string, error)
}

// BookingStore persists bookings and seat claims.
type BookingStore interface {
	ClaimedSeatIDs(ctx context.Context, showtimeID uint64) (map[uint64]struct{}, error)
	ClaimedAmong(ctx context.Context, showtimeID uint64, seatIDs []uint64) ([]uint64, error)
	Create(ctx context.Context, b *model.Booking) error
	CreateClaims(ctx context.Context, claims []model.SeatClaim) error
	GetForUpdate(ctx context.Context, id uint64) (*model.Booking, *model.Showtime, error)
	DeleteClaims(ctx context.Context, bookingID uint64) (int64, error)
	MarkCancelled(ctx context.Context, bookingID uint64) (bool, error)
	ListByUser(ctx context.Context, userID uint64) ([]model.BookingHistoryItem, error)
	GetByIDForUser(ctx context.Context, bookingID, userID uint64) (*model.BookingHistoryItem, error)
}

// PaymentStore records payments.
type PaymentStore interface {
	Create(ctx context.Context, p *model.Payment) error
}

// EventPublisher announces committed bookings and cancellations.
type EventPublisher interface {
	PublishBookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) error
	PublishBookingCancelled(ctx context.Context, ev queue.BookingCancelledEvent) error
}

// Stores groups the persistence dependencies of the service.
type Stores struct {
	Tx        TxRunner
	Seats     SeatStore
	Showtimes ShowtimeStore
	Bookings  BookingStore
	Payments  PaymentStore
}

// NewStores wires the MySQL repositories around one pool.
func NewStores(db *sql.DB) Stores {
	return Stores{
		Tx:        repository.NewTxManager(db),
		Seats:     repository.NewSeatRepo(db),
		Showtimes: repository.NewShowtimeRepo(db),
		Bookings:  repository.NewBookingRepo(db),
		Payments:  repository.NewPaymentRepo(db),
	}
}

// Option customises a BookingService.
type Option func(*BookingService)

// WithClock replaces time.Now, mainly for tests of the cancellation window.
func WithClock(now func() time.Time) Option {
	return func(s *BookingService) { s.now = now }
}

// WithCancellationWindow overrides DefaultCancellationWindow.
func WithCancellationWindow(d time.Duration) Option {
	return func(s *BookingService) {
		if d > 0 {
			s.cancellationWindow = d
		}
	}
}

// WithPublisher enables domain events.
func WithPublisher(p EventPublisher) Option {
	return func(s *BookingService) { s.events = p }
}

// WithLogger sets the logger; logrus' standard logger is used otherwise.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *BookingService) { s.log = l }
}

// BookingService implements the booking core on top of Stores.
type BookingService struct {
	tx        TxRunner
	seats     SeatStore
	showtimes ShowtimeStore
	bookings  BookingStore
	payments  PaymentStore

	events             EventPublisher
	log                logrus.FieldLogger
	now                func() time.Time
	cancellationWindow time.Duration
}

// NewBookingService builds a BookingService.
func NewBookingService(st Stores, opts ...Option) *BookingService {
	s := &BookingService{
		tx:                 st.Tx,
		seats:              st.Seats,
		showtimes:          st.Showtimes,
		bookings:           st.Bookings,
		payments:           st.Payments,
		log:                logrus.StandardLogger(),
		now:                time.Now,
		cancellationWindow: DefaultCancellationWindow,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

var (
	readOnlyTx = &sql.TxOptions{ReadOnly: true}
	writeTx    = &sql.TxOptions{Isolation: sql.LevelReadCommitted}
)

// eventTimeout bounds a best-effort publish after commit.
const eventTimeout = 3 * time.Second
