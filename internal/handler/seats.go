package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/cinema-booking-core/internal/service"
)

type seatView struct {
	SeatID     uint64          `json:"seat_id"`
	SeatNumber uint32          `json:"seat_number"`
	Row        string          `json:"row"`
	SeatType   string          `json:"seat_type"`
	Price      decimal.Decimal `json:"price"`
	IsBooked   bool            `json:"isBooked"`
}

type seatLayoutResponse struct {
	TotalSeats int            `json:"totalSeats"`
	Seats      []seatView     `json:"seats"`
	RowRuns    map[string]int `json:"rowRuns"`
}

// GetSeatLayout handles GET /v1/screens/:screenId/showtimes/:showtimeId/seats.
// Placeholder seats (seat_number 0) are listed so clients can draw aisles,
// but totalSeats counts bookable seats only. rowRuns maps each row to its
// longest run of adjacent available seats.
func (h *Handler) GetSeatLayout(c echo.Context) error {
	screenID, ok := pathID(c, "screenId")
	if !ok {
		return badRequest(c, "invalid screen id")
	}
	showtimeID, ok := pathID(c, "showtimeId")
	if !ok {
		return badRequest(c, "invalid showtime id")
	}

	seats, err := h.core.ComputeAvailability(c.Request().Context(), screenID, showtimeID)
	if err != nil {
		return h.respondError(c, err)
	}
	resp := seatLayoutResponse{
		TotalSeats: service.BookableCount(seats),
		Seats:      make([]seatView, len(seats)),
		RowRuns:    service.LongestConsecutiveAvailableRun(seats),
	}
	for i, s := range seats {
		resp.Seats[i] = seatView{
			SeatID:     s.ID,
			SeatNumber: s.SeatNumber,
			Row:        s.RowLabel,
			SeatType:   s.SeatType,
			Price:      s.Price,
			IsBooked:   s.IsBooked,
		}
	}
	return c.JSON(http.StatusOK, resp)
}
