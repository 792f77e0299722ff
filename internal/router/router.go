// Package router wires handlers and middleware onto an Echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cinema-booking-core/internal/config"
	"github.com/iliyamo/cinema-booking-core/internal/handler"
	"github.com/iliyamo/cinema-booking-core/internal/middleware"
)

// Deps are the collaborators the routes need. Redis may be nil, in which
// case caching and rate limiting are off.
type Deps struct {
	Handler      *handler.Handler
	Redis        *redis.Client
	Log          logrus.FieldLogger
	JWTSecret    string
	BookingRoles []string
	Cache        config.CacheConfig
	BookingLimit config.RateLimitConfig
}

// RegisterRoutes registers the health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterPublic registers the unauthenticated read endpoints. Only the
// showtime listing is cached: the seat layout must reflect claims as soon
// as they commit.
func RegisterPublic(e *echo.Echo, d Deps) {
	h := d.Handler
	e.GET("/v1/screens/:screenId/showtimes/:showtimeId/seats", h.GetSeatLayout)
	e.GET("/v1/showtimes/movies/:movieId", h.ListShowtimes, middleware.NewRedisCache(d.Cache, d.Redis, d.Log))
}

// RegisterBookings registers the booking endpoints. All of them require a
// valid access token, and the writes share a per-user token bucket.
func RegisterBookings(e *echo.Echo, d Deps) {
	h := d.Handler
	g := e.Group("/v1/bookings",
		middleware.JWTAuth(d.JWTSecret),
		middleware.RequireRole(d.BookingRoles...),
	)
	limit := middleware.NewTokenBucket(d.BookingLimit, d.Redis, d.Log)

	g.POST("", h.CreateBooking, limit)
	g.GET("/my-bookings", h.MyBookings)
	g.DELETE("/:bookingId", h.CancelBooking, limit)
	g.GET("/:bookingId/qr", h.BookingQR)
}
