package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/cinema-booking-core/internal/model"
)

// BookingRepo provides persistence for bookings and their seat claims.
// Seat claims live in the booked_seats table and are unique per
// (showtime_id, seat_id). All timestamps are stored in UTC.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// ClaimedSeatIDs returns the set of seats held by active bookings of a
// showtime.
func (r *BookingRepo) ClaimedSeatIDs(ctx context.Context, showtimeID uint64) (map[uint64]struct{}, error) {
	const q = `SELECT bs.seat_id
	           FROM booked_seats bs
	           JOIN bookings b ON b.id = bs.booking_id
	           WHERE bs.showtime_id = ? AND b.status = 'active'`
	rows, err := conn(ctx, r.db).QueryContext(ctx, q, showtimeID)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	out := make(map[uint64]struct{})
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return out, nil
}

// ClaimedAmong returns which of seatIDs are already claimed for the
// showtime, in ascending order. It is a single set-membership query.
func (r *BookingRepo) ClaimedAmong(ctx context.Context, showtimeID uint64, seatIDs []uint64) ([]uint64, error) {
	if len(seatIDs) == 0 {
		return nil, nil
	}
	q := `SELECT bs.seat_id
	      FROM booked_seats bs
	      JOIN bookings b ON b.id = bs.booking_id
	      WHERE bs.showtime_id = ? AND b.status = 'active'
	        AND bs.seat_id IN (` + placeholders(len(seatIDs)) + `)
	      ORDER BY bs.seat_id`
	args := append([]any{showtimeID}, idArgs(seatIDs)...)
	rows, err := conn(ctx, r.db).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var out []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return out, nil
}

// Create inserts a new booking and populates its generated ID and
// booked_at timestamp. Status defaults to active when empty.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
	if b.Status == "" {
		b.Status = model.BookingActive
	}
	db := conn(ctx, r.db)
	const q = `INSERT INTO bookings (user_id, showtime_id, total_amount, status) VALUES (?, ?, ?, ?)`
	result, err := db.ExecContext(ctx, q, b.UserID, b.ShowtimeID, b.TotalAmount, b.Status)
	if err != nil {
		return classify(err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	// Query back booked_at, which defaults in the database
	const sel = `SELECT booked_at FROM bookings WHERE id = ?`
	return classify(db.QueryRowContext(ctx, sel, b.ID).Scan(&b.BookedAt))
}

// CreateClaims inserts multiple booked_seats rows in a single statement.
// A (showtime, seat) pair that is already taken yields ErrDuplicateClaim.
// Passing an empty slice has no effect and returns nil.
func (r *BookingRepo) CreateClaims(ctx context.Context, claims []model.SeatClaim) error {
	if len(claims) == 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteString(`INSERT INTO booked_seats (booking_id, showtime_id, seat_id) VALUES `)
	args := make([]any, 0, len(claims)*3)
	for i, c := range claims {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("(?, ?, ?)")
		args = append(args, c.BookingID, c.ShowtimeID, c.SeatID)
	}
	_, err := conn(ctx, r.db).ExecContext(ctx, sb.String(), args...)
	return classify(err)
}

// GetForUpdate loads a booking together with its showtime's start time and
// locks the booking row until the surrounding transaction ends.
func (r *BookingRepo) GetForUpdate(ctx context.Context, id uint64) (*model.Booking, *model.Showtime, error) {
	const q = `SELECT b.id, b.user_id, b.showtime_id, b.booked_at, b.total_amount, b.status,
	                  s.id, s.movie_id, s.screen_id, s.start_time, s.language
	           FROM bookings b
	           JOIN showtimes s ON s.id = b.showtime_id
	           WHERE b.id = ?
	           FOR UPDATE`
	var b model.Booking
	var s model.Showtime
	err := conn(ctx, r.db).QueryRowContext(ctx, q, id).Scan(
		&b.ID, &b.UserID, &b.ShowtimeID, &b.BookedAt, &b.TotalAmount, &b.Status,
		&s.ID, &s.MovieID, &s.ScreenID, &s.StartTime, &s.Language,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, nil, classify(err)
	}
	return &b, &s, nil
}

// DeleteClaims releases every seat claimed by a booking and reports how
// many were released.
func (r *BookingRepo) DeleteClaims(ctx context.Context, bookingID uint64) (int64, error) {
	const q = `DELETE FROM booked_seats WHERE booking_id = ?`
	res, err := conn(ctx, r.db).ExecContext(ctx, q, bookingID)
	if err != nil {
		return 0, classify(err)
	}
	return res.RowsAffected()
}

// MarkCancelled flips an active booking to cancelled. It returns false
// when the booking was not active.
func (r *BookingRepo) MarkCancelled(ctx context.Context, bookingID uint64) (bool, error) {
	const q = `UPDATE bookings SET status = 'cancelled' WHERE id = ? AND status = 'active'`
	res, err := conn(ctx, r.db).ExecContext(ctx, q, bookingID)
	if err != nil {
		return false, classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

const historySelect = `SELECT b.id, b.showtime_id, b.status, b.total_amount, b.booked_at,
	       s.start_time, m.title, m.poster_url, t.name, sc.screen_number
	FROM bookings b
	JOIN showtimes s ON s.id = b.showtime_id
	JOIN movies m    ON m.id = s.movie_id
	JOIN screens sc  ON sc.id = s.screen_id
	JOIN theaters t  ON t.id = sc.theater_id`

// ListByUser returns the booking history of a user, newest first, with
// the seats still claimed by each booking. Cancelled bookings have none.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]model.BookingHistoryItem, error) {
	q := historySelect + `
	WHERE b.user_id = ?
	ORDER BY b.booked_at DESC, b.id DESC`
	rows, err := conn(ctx, r.db).QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]model.BookingHistoryItem, 0)
	for rows.Next() {
		item, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.fillSeats(ctx, list); err != nil {
		return nil, err
	}
	return list, nil
}

// GetByIDForUser returns a single booking of the user, or
// ErrBookingNotFound when it does not exist or belongs to someone else.
func (r *BookingRepo) GetByIDForUser(ctx context.Context, bookingID, userID uint64) (*model.BookingHistoryItem, error) {
	q := historySelect + `
	WHERE b.id = ? AND b.user_id = ?`
	rows, err := conn(ctx, r.db).QueryContext(ctx, q, bookingID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, ErrBookingNotFound
	}
	item, err := scanHistory(rows)
	if err != nil {
		return nil, err
	}
	rows.Close()

	list := []model.BookingHistoryItem{item}
	if err := r.fillSeats(ctx, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

func scanHistory(rows *sql.Rows) (model.BookingHistoryItem, error) {
	var it model.BookingHistoryItem
	var poster sql.NullString
	err := rows.Scan(
		&it.BookingID, &it.ShowtimeID, &it.Status, &it.TotalAmount, &it.BookedAt,
		&it.StartTime, &it.MovieTitle, &poster, &it.TheaterName, &it.ScreenNumber,
	)
	if err != nil {
		return it, err
	}
	if poster.Valid {
		p := poster.String
		it.PosterURL = &p
	}
	it.Seats = []model.BookedSeat{}
	return it, nil
}

// fillSeats loads the claimed seats of every booking in list with one
// query and derives the display labels.
func (r *BookingRepo) fillSeats(ctx context.Context, list []model.BookingHistoryItem) error {
	if len(list) == 0 {
		return nil
	}
	idx := make(map[uint64]int, len(list))
	ids := make([]uint64, 0, len(list))
	for i, it := range list {
		idx[it.BookingID] = i
		ids = append(ids, it.BookingID)
	}
	q := `SELECT bs.booking_id, st.id, st.row_label, st.seat_number
	      FROM booked_seats bs
	      JOIN seats st ON st.id = bs.seat_id
	      WHERE bs.booking_id IN (` + placeholders(len(ids)) + `)
	      ORDER BY bs.booking_id, st.row_label, st.seat_number`
	rows, err := conn(ctx, r.db).QueryContext(ctx, q, idArgs(ids)...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var bookingID uint64
		var s model.BookedSeat
		if err := rows.Scan(&bookingID, &s.SeatID, &s.RowLabel, &s.SeatNumber); err != nil {
			return err
		}
		s.Label = model.SeatLabel(s.RowLabel, s.SeatNumber)
		if i, ok := idx[bookingID]; ok {
			list[i].Seats = append(list[i].Seats, s)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for i := range list {
		labels := make([]string, len(list[i].Seats))
		for j, s := range list[i].Seats {
			labels[j] = s.Label
		}
		list[i].SeatNumbers = strings.Join(labels, ", ")
	}
	return nil
}
