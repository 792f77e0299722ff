package repository // repository defines data access for seats

import (
	"context"      // context allows query cancellation and timeouts
	"database/sql" // sql provides DB primitives

	"github.com/iliyamo/cinema-booking-core/internal/model"
)

// SeatRepo reads the seat inventory of screens. Seats are written once
// when a screen is created (outside this service) and only read here.
type SeatRepo struct {
	db *sql.DB
}

// NewSeatRepo constructs a SeatRepo with the given DB handle.
func NewSeatRepo(db *sql.DB) *SeatRepo {
	return &SeatRepo{db: db}
}

const seatColumns = `id, screen_id, row_label, seat_number, seat_type, price`

// GetByScreen retrieves the full layout of a screen ordered by row_label
// then seat_number, placeholders included. A screen without seats yields
// ErrScreenNotFound.
func (r *SeatRepo) GetByScreen(ctx context.Context, screenID uint64) ([]model.Seat, error) {
	const q = `SELECT ` + seatColumns + `
	           FROM seats
	           WHERE screen_id = ?
	           ORDER BY row_label, seat_number, id`
	seats, err := r.query(ctx, q, screenID)
	if err != nil {
		return nil, err
	}
	if len(seats) == 0 {
		return nil, ErrScreenNotFound
	}
	return seats, nil
}

// GetByIDsForScreen returns the seats among ids that belong to screenID.
// Ids on other screens, or unknown ids, are simply absent from the result.
func (r *SeatRepo) GetByIDsForScreen(ctx context.Context, screenID uint64, ids []uint64) ([]model.Seat, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q := `SELECT ` + seatColumns + `
	      FROM seats
	      WHERE screen_id = ? AND id IN (` + placeholders(len(ids)) + `)
	      ORDER BY id`
	args := append([]any{screenID}, idArgs(ids)...)
	return r.query(ctx, q, args...)
}

func (r *SeatRepo) query(ctx context.Context, q string, args ...any) ([]model.Seat, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Seat
	for rows.Next() {
		var s model.Seat
		if err := rows.Scan(&s.ID, &s.ScreenID, &s.RowLabel, &s.SeatNumber, &s.SeatType, &s.Price); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
