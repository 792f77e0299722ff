package handler

import (
	"net/http"

	"github.com/jinzhu/copier"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/cinema-booking-core/internal/model"
	"github.com/iliyamo/cinema-booking-core/internal/service"
	"github.com/iliyamo/cinema-booking-core/internal/ticket"
)

type createBookingRequest struct {
	ShowtimeID uint64   `json:"showtimeId" validate:"required,gt=0"`
	SeatIDs    []uint64 `json:"seatIds" validate:"required,min=1,dive,gt=0"`
}

type createBookingResponse struct {
	BookingID   uint64          `json:"bookingId"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
}

// CreateBooking handles POST /v1/bookings.
func (h *Handler) CreateBooking(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createBookingRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "showtimeId and a non-empty seatIds list of positive ids are required")
	}

	var in service.CreateBookingInput
	if err := copier.Copy(&in, &req); err != nil {
		return h.respondError(c, err)
	}
	in.UserID = userID

	receipt, err := h.core.CreateBooking(c.Request().Context(), in)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusCreated, createBookingResponse{
		BookingID:   receipt.Booking.ID,
		TotalAmount: receipt.Booking.TotalAmount,
	})
}

// MyBookings handles GET /v1/bookings/my-bookings.
func (h *Handler) MyBookings(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	items, err := h.core.ListBookings(c.Request().Context(), userID)
	if err != nil {
		return h.respondError(c, err)
	}
	if items == nil {
		items = []model.BookingHistoryItem{}
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": items})
}

// CancelBooking handles DELETE /v1/bookings/:bookingId.
func (h *Handler) CancelBooking(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, ok := pathID(c, "bookingId")
	if !ok {
		return badRequest(c, "invalid booking id")
	}
	if err := h.core.CancelBooking(c.Request().Context(), userID, bookingID); err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "booking cancelled"})
}

// BookingQR handles GET /v1/bookings/:bookingId/qr. Another user's booking
// is reported as not found.
func (h *Handler) BookingQR(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, ok := pathID(c, "bookingId")
	if !ok {
		return badRequest(c, "invalid booking id")
	}
	b, err := h.core.GetBooking(c.Request().Context(), userID, bookingID)
	if err != nil {
		return h.respondError(c, err)
	}
	png, err := ticket.PNG(b, ticket.DefaultSize)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.Blob(http.StatusOK, "image/png", png)
}
