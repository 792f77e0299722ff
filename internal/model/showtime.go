package model

import "time"

// Showtime is a single screening of a movie on a screen. Seat inventory
// belongs to the screen, booking state belongs to the showtime.
type Showtime struct {
	ID        uint64    // showtimes.id
	MovieID   uint64    // showtimes.movie_id
	ScreenID  uint64    // showtimes.screen_id
	StartTime time.Time // showtimes.start_time
	Language  string    // showtimes.language
}

// ShowtimeListing is a showtime joined with the theater and screen it runs
// in. It is what the showtime search returns to clients.
type ShowtimeListing struct {
	ShowtimeID   uint64    `json:"showtime_id"`
	MovieID      uint64    `json:"movie_id"`
	ScreenID     uint64    `json:"screen_id"`
	ScreenNumber int       `json:"screen_number"`
	TheaterID    uint64    `json:"theater_id"`
	TheaterName  string    `json:"theater_name"`
	StartTime    time.Time `json:"start_time"`
	Language     string    `json:"language"`
}
