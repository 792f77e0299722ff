package service

import (
	"context"
	"errors"
	"sort"

	"github.com/iliyamo/cinema-booking-core/internal/model"
	"github.com/iliyamo/cinema-booking-core/internal/repository"
)

// SeatAvailability is a seat of the layout with its booking state for one
// showtime. Placeholder seats are never booked and never available.
type SeatAvailability struct {
	model.Seat
	IsBooked bool
}

// Available reports whether the seat can be booked right now.
func (s SeatAvailability) Available() bool { return s.Bookable() && !s.IsBooked }

// ComputeAvailability returns the layout of screenID with each seat marked
// booked iff it is claimed for showtimeID. Both reads happen in one
// read-only transaction so they describe the same point in time.
func (s *BookingService) ComputeAvailability(ctx context.Context, screenID, showtimeID uint64) ([]SeatAvailability, error) {
	if screenID == 0 || showtimeID == 0 {
		return nil, invalidf("screen id and showtime id are required")
	}
	var out []SeatAvailability
	err := s.tx.WithTx(ctx, readOnlyTx, func(ctx context.Context) error {
		st, err := s.showtimes.GetByID(ctx, showtimeID)
		if errors.Is(err, repository.ErrShowtimeNotFound) {
			return notFoundf("showtime %d", showtimeID)
		}
		if err != nil {
			return storageErr("load showtime", err)
		}
		if st.ScreenID != screenID {
			return invalidf("showtime %d is not scheduled on screen %d", showtimeID, screenID)
		}

		layout, err := s.seats.GetByScreen(ctx, screenID)
		if errors.Is(err, repository.ErrScreenNotFound) {
			return notFoundf("screen %d", screenID)
		}
		if err != nil {
			return storageErr("load seat layout", err)
		}
		claimed, err := s.bookings.ClaimedSeatIDs(ctx, showtimeID)
		if err != nil {
			return storageErr("load claimed seats", err)
		}
		out = markBooked(layout, claimed)
		return nil
	})
	if err != nil {
		if isDomainErr(err) {
			return nil, err
		}
		return nil, storageErr("compute availability", err)
	}
	return out, nil
}

func markBooked(layout []model.Seat, claimed map[uint64]struct{}) []SeatAvailability {
	out := make([]SeatAvailability, len(layout))
	for i, seat := range layout {
		_, taken := claimed[seat.ID]
		out[i] = SeatAvailability{Seat: seat, IsBooked: taken && seat.Bookable()}
	}
	return out
}

// BookableCount returns how many seats of the layout are real seats.
func BookableCount(seats []SeatAvailability) int {
	n := 0
	for _, s := range seats {
		if s.Bookable() {
			n++
		}
	}
	return n
}

// LongestConsecutiveAvailableRun maps every row label to the length of its
// longest stretch of available seats in seat-number order. Booked and
// placeholder seats break a run.
func LongestConsecutiveAvailableRun(seats []SeatAvailability) map[string]int {
	runs := make(map[string]int)
	for _, row := range groupRows(seats) {
		runs[row.label] = longestRun(row.seats, 0)
	}
	return runs
}

// HasConsecutiveRun reports whether any row has at least n consecutive
// available seats. It stops at the first row that qualifies.
func HasConsecutiveRun(seats []SeatAvailability, n int) bool {
	if n <= 0 {
		return true
	}
	for _, row := range groupRows(seats) {
		if longestRun(row.seats, n) >= n {
			return true
		}
	}
	return false
}

// longestRun scans one row. With stopAt > 0 it returns as soon as a run
// reaches stopAt.
func longestRun(row []SeatAvailability, stopAt int) int {
	best, cur := 0, 0
	for _, s := range row {
		if !s.Available() {
			cur = 0
			continue
		}
		cur++
		if cur > best {
			best = cur
			if stopAt > 0 && best >= stopAt {
				return best
			}
		}
	}
	return best
}

type seatRow struct {
	label string
	seats []SeatAvailability
}

// groupRows splits seats by row label, keeping rows in order of first
// appearance and sorting each row by seat number.
func groupRows(seats []SeatAvailability) []seatRow {
	idx := make(map[string]int)
	var rows []seatRow
	for _, s := range seats {
		i, ok := idx[s.RowLabel]
		if !ok {
			i = len(rows)
			idx[s.RowLabel] = i
			rows = append(rows, seatRow{label: s.RowLabel})
		}
		rows[i].seats = append(rows[i].seats, s)
	}
	for _, r := range rows {
		sort.SliceStable(r.seats, func(a, b int) bool { return r.seats[a].SeatNumber < r.seats[b].SeatNumber })
	}
	return rows
}
