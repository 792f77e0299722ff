package repository

import (
	"context"
	"database/sql"
)

// ScreenRepo maintains the derived columns of screens.
type ScreenRepo struct {
	db *sql.DB
}

// NewScreenRepo returns a ScreenRepo bound to the given database.
func NewScreenRepo(db *sql.DB) *ScreenRepo { return &ScreenRepo{db: db} }

// RecountTotalSeats recomputes screens.total_seats from the bookable seats
// (placeholders excluded) of every screen and returns how many screens
// changed.
func (r *ScreenRepo) RecountTotalSeats(ctx context.Context) (int64, error) {
	const q = `UPDATE screens sc
	           SET sc.total_seats = (
	               SELECT COUNT(*) FROM seats s
	               WHERE s.screen_id = sc.id AND s.seat_number <> 0
	           )`
	res, err := conn(ctx, r.db).ExecContext(ctx, q)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
