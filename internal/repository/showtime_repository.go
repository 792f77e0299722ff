package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/cinema-booking-core/internal/model"
)

// ShowtimeRepo provides read access to showtimes.
type ShowtimeRepo struct {
	db *sql.DB
}

// NewShowtimeRepo creates a new ShowtimeRepo bound to the given DB handle.
func NewShowtimeRepo(db *sql.DB) *ShowtimeRepo {
	return &ShowtimeRepo{db: db}
}

// GetByID retrieves a showtime by its ID or returns ErrShowtimeNotFound.
func (r *ShowtimeRepo) GetByID(ctx context.Context, id uint64) (*model.Showtime, error) {
	const q = `SELECT id, movie_id, screen_id, start_time, language
	           FROM showtimes WHERE id = ?`
	var s model.Showtime
	err := conn(ctx, r.db).QueryRowContext(ctx, q, id).
		Scan(&s.ID, &s.MovieID, &s.ScreenID, &s.StartTime, &s.Language)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrShowtimeNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ShowtimeSearchQuery defines the filters for listing the showtimes of a
// movie. From and To bound start_time inclusively; Language is optional.
type ShowtimeSearchQuery struct {
	MovieID  uint64
	City     string
	From     time.Time
	To       time.Time
	Language string
}

// SearchByMovie lists the showtimes of a movie in the theaters of a city
// whose start time falls within [From, To], ordered by start time.
func (r *ShowtimeRepo) SearchByMovie(ctx context.Context, q ShowtimeSearchQuery) ([]model.ShowtimeListing, error) {
	where := []string{"s.movie_id = ?", "t.city = ?", "s.start_time BETWEEN ? AND ?"}
	args := []any{q.MovieID, q.City, q.From, q.To}
	if q.Language != "" {
		where = append(where, "s.language = ?")
		args = append(args, q.Language)
	}

	dataSQL := `SELECT
			s.id,
			s.movie_id,
			s.screen_id,
			sc.screen_number,
			t.id   AS theater_id,
			t.name AS theater_name,
			s.start_time,
			s.language
		FROM showtimes s
		JOIN screens sc ON sc.id = s.screen_id
		JOIN theaters t ON t.id = sc.theater_id
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY s.start_time ASC, s.id ASC`

	rows, err := conn(ctx, r.db).QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.ShowtimeListing, 0)
	for rows.Next() {
		var d model.ShowtimeListing
		if err := rows.Scan(
			&d.ShowtimeID,
			&d.MovieID,
			&d.ScreenID,
			&d.ScreenNumber,
			&d.TheaterID,
			&d.TheaterName,
			&d.StartTime,
			&d.Language,
		); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// AvailableLanguages returns the distinct showtime languages of a movie in
// a city within [from, to], sorted alphabetically.
func (r *ShowtimeRepo) AvailableLanguages(ctx context.Context, movieID uint64, city string, from, to time.Time) ([]string, error) {
	const q = `SELECT DISTINCT s.language
	           FROM showtimes s
	           JOIN screens sc ON sc.id = s.screen_id
	           JOIN theaters t ON t.id = sc.theater_id
	           WHERE s.movie_id = ? AND t.city = ? AND s.start_time BETWEEN ? AND ?
	           ORDER BY s.language`
	rows, err := conn(ctx, r.db).QueryContext(ctx, q, movieID, city, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var lang string
		if err := rows.Scan(&lang); err != nil {
			return nil, err
		}
		out = append(out, lang)
	}
	return out, rows.Err()
}
