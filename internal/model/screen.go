package model

// Screen is an auditorium inside a theater. TotalSeats is a cached count of
// the bookable seats and is kept in sync by the seat recount job.
type Screen struct {
	ID           uint64 // screens.id
	TheaterID    uint64 // screens.theater_id
	ScreenNumber int    // screens.screen_number
	TotalSeats   int    // screens.total_seats
}
