package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cinema-booking-core/internal/middleware"
	"github.com/iliyamo/cinema-booking-core/internal/model"
	"github.com/iliyamo/cinema-booking-core/internal/service"
)

// BookingCore is the part of service.BookingService the HTTP layer uses.
type BookingCore interface {
	ComputeAvailability(ctx context.Context, screenID, showtimeID uint64) ([]service.SeatAvailability, error)
	ListShowtimes(ctx context.Context, q service.ShowtimeQuery) (*service.ShowtimeResult, error)
	CreateBooking(ctx context.Context, in service.CreateBookingInput) (*service.BookingReceipt, error)
	ListBookings(ctx context.Context, userID uint64) ([]model.BookingHistoryItem, error)
	GetBooking(ctx context.Context, userID, bookingID uint64) (*model.BookingHistoryItem, error)
	CancelBooking(ctx context.Context, userID, bookingID uint64) error
}

// Handler serves the public seat and showtime endpoints and the
// authenticated booking endpoints.
type Handler struct {
	core BookingCore
	log  logrus.FieldLogger
}

// New returns a Handler. It panics on a nil core.
func New(core BookingCore, log logrus.FieldLogger) *Handler {
	if core == nil {
		panic("nil booking core passed to handler.New")
	}
	return &Handler{core: core, log: log}
}

// getUserID returns the caller id stored by middleware.JWTAuth.
func getUserID(c echo.Context) (uint64, error) {
	if uid, ok := c.Get(middleware.UserIDKey).(uint64); ok && uid > 0 {
		return uid, nil
	}
	return 0, errors.New("invalid user_id in context")
}

// pathID parses a positive integer path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
	n, err := strconv.ParseUint(c.Param(name), 10, 64)
	return n, err == nil && n > 0
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

// respondError translates a service error into its HTTP status. Storage
// failures are logged and answered with a generic message.
func (h *Handler) respondError(c echo.Context, err error) error {
	var unavailable *service.SeatUnavailableError
	switch {
	case errors.As(err, &unavailable):
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":            service.ErrSeatUnavailable.Error(),
			"unavailableSeats": unavailable.SeatIDs,
		})
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrCancellationWindowClosed),
		errors.Is(err, service.ErrAlreadyCancelled):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	h.log.WithError(err).WithFields(logrus.Fields{
		"method": c.Request().Method,
		"path":   c.Path(),
	}).Error("request failed")
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
