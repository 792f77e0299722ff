package model

import "github.com/shopspring/decimal"

// PlaceholderSeatNumber marks an aisle gap in a row. Placeholder seats are
// part of the layout for spacing only and can never be booked.
const PlaceholderSeatNumber uint32 = 0

// Seat describes a physical seat on a screen. The set of seats of a screen
// is created together with the screen and never changes afterwards.
//
// Fields:
//  ID         – primary key identifier.
//  ScreenID   – screen to which this seat belongs.
//  RowLabel   – letter or string designating the row.
//  SeatNumber – number of the seat within the row (0 for a gap).
//  SeatType   – Regular, Premium, Executive, ...
//  Price      – seat price, never negative.
type Seat struct {
	ID         uint64          `json:"seat_id"`     // seats.id
	ScreenID   uint64          `json:"screen_id"`   // seats.screen_id
	RowLabel   string          `json:"row"`         // seats.row_label
	SeatNumber uint32          `json:"seat_number"` // seats.seat_number
	SeatType   string          `json:"seat_type"`   // seats.seat_type
	Price      decimal.Decimal `json:"price"`       // seats.price
}

// Bookable reports whether the seat is a real seat rather than a gap.
func (s Seat) Bookable() bool { return s.SeatNumber != PlaceholderSeatNumber }

// Label renders the seat as shown on tickets, e.g. "A5".
func (s Seat) Label() string { return SeatLabel(s.RowLabel, s.SeatNumber) }
