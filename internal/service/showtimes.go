package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/cinema-booking-core/internal/model"
	"github.com/iliyamo/cinema-booking-core/internal/repository"
)

// Show timing buckets accepted by ListShowtimes.
const (
	TimingEarlyMorning = "EarlyMorning"
	TimingMorning      = "Morning"
	TimingAfternoon    = "Afternoon"
	TimingEvening      = "Evening"
	TimingNight        = "Night"
)

// timingBounds holds [from, to] offsets from midnight, both inclusive.
var timingBounds = map[string][2]time.Duration{
	strings.ToLower(TimingEarlyMorning): {0, 9 * time.Hour},
	strings.ToLower(TimingMorning):      {9 * time.Hour, 12 * time.Hour},
	strings.ToLower(TimingAfternoon):    {12 * time.Hour, 16 * time.Hour},
	strings.ToLower(TimingEvening):      {16 * time.Hour, 20 * time.Hour},
	strings.ToLower(TimingNight):        {20 * time.Hour, 24*time.Hour - time.Second},
}

// TimingWindow returns the inclusive start-time window of a bucket on the
// calendar day of day (UTC). An empty bucket covers the whole day.
func TimingWindow(day time.Time, timing string) (time.Time, time.Time, error) {
	y, m, d := day.UTC().Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	if timing == "" {
		return midnight, midnight.Add(24*time.Hour - time.Second), nil
	}
	b, ok := timingBounds[strings.ToLower(timing)]
	if !ok {
		return time.Time{}, time.Time{}, invalidf("unknown showTiming %q", timing)
	}
	return midnight.Add(b[0]), midnight.Add(b[1]), nil
}

// ShowtimeQuery selects the showtimes of a movie in a city on one date.
type ShowtimeQuery struct {
	MovieID         uint64
	City            string
	Date            time.Time
	Language        string
	ShowTiming      string
	NumberOfTickets int
}

// ShowtimeResult is the answer to a ShowtimeQuery. AvailableLanguages
// ignores the optional filters so clients can offer every language of the
// day.
type ShowtimeResult struct {
	Showtimes          []model.ShowtimeListing `json:"showtimes"`
	AvailableLanguages []string                `json:"availableLanguages"`
}

// ListShowtimes lists the showtimes matching q. With NumberOfTickets > 0
// only showtimes that can seat the whole party side by side are kept.
func (s *BookingService) ListShowtimes(ctx context.Context, q ShowtimeQuery) (*ShowtimeResult, error) {
	if q.MovieID == 0 {
		return nil, invalidf("movie id is required")
	}
	if strings.TrimSpace(q.City) == "" {
		return nil, invalidf("city is required")
	}
	if q.Date.IsZero() {
		return nil, invalidf("date is required")
	}
	if q.NumberOfTickets < 0 {
		return nil, invalidf("numberOfTickets must not be negative")
	}
	from, to, err := TimingWindow(q.Date, q.ShowTiming)
	if err != nil {
		return nil, err
	}

	listings, err := s.showtimes.SearchByMovie(ctx, repository.ShowtimeSearchQuery{
		MovieID:  q.MovieID,
		City:     q.City,
		From:     from,
		To:       to,
		Language: q.Language,
	})
	if err != nil {
		return nil, storageErr("search showtimes", err)
	}
	listings, err = s.FilterByPartySize(ctx, listings, q.NumberOfTickets)
	if err != nil {
		return nil, err
	}

	dayFrom, dayTo, _ := TimingWindow(q.Date, "")
	langs, err := s.showtimes.AvailableLanguages(ctx, q.MovieID, q.City, dayFrom, dayTo)
	if err != nil {
		return nil, storageErr("list languages", err)
	}
	return &ShowtimeResult{Showtimes: listings, AvailableLanguages: langs}, nil
}

// FilterByPartySize keeps the showtimes whose screen has a row with at
// least required consecutive available seats. required <= 0 returns the
// input unchanged. A screen without seats never matches.
func (s *BookingService) FilterByPartySize(ctx context.Context, showtimes []model.ShowtimeListing, required int) ([]model.ShowtimeListing, error) {
	if required <= 0 {
		return showtimes, nil
	}
	layouts := make(map[uint64][]model.Seat)
	out := make([]model.ShowtimeListing, 0, len(showtimes))
	for _, st := range showtimes {
		layout, ok := layouts[st.ScreenID]
		if !ok {
			l, err := s.seats.GetByScreen(ctx, st.ScreenID)
			if err != nil && !errors.Is(err, repository.ErrScreenNotFound) {
				return nil, storageErr("load seat layout", err)
			}
			layouts[st.ScreenID] = l
			layout = l
		}
		if len(layout) == 0 {
			continue
		}
		claimed, err := s.bookings.ClaimedSeatIDs(ctx, st.ShowtimeID)
		if err != nil {
			return nil, storageErr("load claimed seats", err)
		}
		if HasConsecutiveRun(markBooked(layout, claimed), required) {
			out = append(out, st)
		}
	}
	return out, nil
}
