// Package queue defines message payloads exchanged over the message broker
// and the RabbitMQ publisher and consumer that carry them.
package queue

// Queue names. Messages go through the default exchange with the queue
// name as routing key.
const (
	BookingConfirmedQueue = "booking.confirmed"
	BookingCancelledQueue = "booking.cancelled"
)

// BookingConfirmedEvent is published after a booking has been committed.
// It contains enough information for downstream consumers to log, notify
// or trigger analytics without querying the primary database.
type BookingConfirmedEvent struct {
	BookingID   uint64   `json:"booking_id"`
	UserID      uint64   `json:"user_id"`
	ShowtimeID  uint64   `json:"showtime_id"`
	ScreenID    uint64   `json:"screen_id"`
	StartsAt    string   `json:"starts_at"`
	SeatIDs     []uint64 `json:"seat_ids"`
	SeatLabels  []string `json:"seats"`
	TotalAmount string   `json:"total_amount"`
	ConfirmedAt string   `json:"confirmed_at"`
}

// BookingCancelledEvent is published after a cancellation has been
// committed and the booking's seats are available again.
type BookingCancelledEvent struct {
	BookingID     uint64 `json:"booking_id"`
	UserID        uint64 `json:"user_id"`
	ShowtimeID    uint64 `json:"showtime_id"`
	ReleasedSeats int64  `json:"released_seats"`
	CancelledAt   string `json:"cancelled_at"`
}
