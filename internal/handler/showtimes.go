package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking-core/internal/service"
)

const dateLayout = "2006-01-02"

// ListShowtimes handles GET /v1/showtimes/movies/:movieId. city and date
// (YYYY-MM-DD) are required; language, showTiming and numberOfTickets
// narrow the result.
func (h *Handler) ListShowtimes(c echo.Context) error {
	movieID, ok := pathID(c, "movieId")
	if !ok {
		return badRequest(c, "invalid movie id")
	}
	q := service.ShowtimeQuery{
		MovieID:    movieID,
		City:       c.QueryParam("city"),
		Language:   c.QueryParam("language"),
		ShowTiming: c.QueryParam("showTiming"),
	}
	if raw := c.QueryParam("date"); raw != "" {
		d, err := time.ParseInLocation(dateLayout, raw, time.UTC)
		if err != nil {
			return badRequest(c, "date must be YYYY-MM-DD")
		}
		q.Date = d
	}
	if raw := c.QueryParam("numberOfTickets"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return badRequest(c, "numberOfTickets must be a non-negative integer")
		}
		q.NumberOfTickets = n
	}

	res, err := h.core.ListShowtimes(c.Request().Context(), q)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
