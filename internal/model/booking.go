package model

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Booking statuses. The only transition is active -> cancelled.
const (
	BookingActive    = "active"
	BookingCancelled = "cancelled"
)

// Booking records a user's purchase of one or more seats for a showtime.
// TotalAmount is the sum of the seat prices at the moment of booking and
// is never recomputed.
type Booking struct {
	ID          uint64          // bookings.id
	UserID      uint64          // bookings.user_id
	ShowtimeID  uint64          // bookings.showtime_id
	BookedAt    time.Time       // bookings.booked_at
	TotalAmount decimal.Decimal // bookings.total_amount
	Status      string          // bookings.status
}

// SeatClaim ("booked_seats") binds a seat to a booking for the booking's
// showtime. A claim exists only while its booking is active.
type SeatClaim struct {
	BookingID  uint64 // booked_seats.booking_id
	ShowtimeID uint64 // booked_seats.showtime_id
	SeatID     uint64 // booked_seats.seat_id
}

// BookedSeat is a seat as listed in a user's booking history.
type BookedSeat struct {
	SeatID     uint64 `json:"seat_id"`
	RowLabel   string `json:"row"`
	SeatNumber uint32 `json:"seat_number"`
	Label      string `json:"label"`
}

// BookingHistoryItem is one entry of a user's booking history with the
// display fields of the showtime it belongs to.
type BookingHistoryItem struct {
	BookingID    uint64          `json:"booking_id"`
	ShowtimeID   uint64          `json:"showtime_id"`
	Status       string          `json:"status"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	BookedAt     time.Time       `json:"booked_at"`
	StartTime    time.Time       `json:"start_time"`
	MovieTitle   string          `json:"movie_title"`
	PosterURL    *string         `json:"poster_url"`
	TheaterName  string          `json:"theater_name"`
	ScreenNumber int             `json:"screen_number"`
	SeatNumbers  string          `json:"seat_numbers"`
	Seats        []BookedSeat    `json:"seats"`
}

// SeatLabel joins a row label and seat number, e.g. ("A", 5) -> "A5".
func SeatLabel(row string, number uint32) string {
	return row + strconv.FormatUint(uint64(number), 10)
}
