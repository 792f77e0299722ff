package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/cinema-booking-core/internal/config"
	"github.com/iliyamo/cinema-booking-core/internal/database"
	"github.com/iliyamo/cinema-booking-core/internal/handler"
	"github.com/iliyamo/cinema-booking-core/internal/logging"
	"github.com/iliyamo/cinema-booking-core/internal/middleware"
	"github.com/iliyamo/cinema-booking-core/internal/queue"
	"github.com/iliyamo/cinema-booking-core/internal/repository"
	"github.com/iliyamo/cinema-booking-core/internal/router"
	"github.com/iliyamo/cinema-booking-core/internal/scheduler"
	"github.com/iliyamo/cinema-booking-core/internal/service"
)

const shutdownGrace = 10 * time.Second

func main() {
	cfg := config.Load()
	log := logging.New(cfg.Env, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(database.Options{
		User:    cfg.DBUser,
		Pass:    cfg.DBPass,
		Host:    cfg.DBHost,
		Port:    cfg.DBPort,
		Name:    cfg.DBName,
		Timeout: cfg.DBTimeout,
	})
	if err != nil {
		log.WithError(err).Fatal("db connect failed")
	}
	defer db.Close()

	if cfg.DBAutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			log.WithError(err).Fatal("db migrate failed")
		}
		log.Info("schema applied")
	}

	rdb := config.NewRedisClient(log)
	if rdb != nil {
		defer rdb.Close()
	}

	opts := []service.Option{
		service.WithLogger(log),
		service.WithCancellationWindow(cfg.CancellationWindow),
	}
	if cfg.EventsEnabled {
		opts = append(opts, service.WithPublisher(queue.NewPublisher(cfg.RabbitMQURL, log)))
		consumer := queue.NewConsumer(cfg.RabbitMQURL, cfg.BookingLogPath, log)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.WithError(err).Error("booking consumer stopped")
			}
		}()
	}
	svc := service.NewBookingService(service.NewStores(db), opts...)

	jobs, err := scheduler.New(repository.NewScreenRepo(db), cfg.SeatRecountInterval, log)
	if err != nil {
		log.WithError(err).Fatal("scheduler setup failed")
	}
	jobs.Start()

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(logging.RequestLogger(log))
	e.Use(echomw.CORS())
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log))

	deps := router.Deps{
		Handler:      handler.New(svc, log),
		Redis:        rdb,
		Log:          log,
		JWTSecret:    cfg.JWTSecret,
		BookingRoles: cfg.BookingRoles,
		Cache:        config.LoadCacheConfig(),
		BookingLimit: config.LoadBookingRateLimitConfig(),
	}
	router.RegisterRoutes(e)
	router.RegisterPublic(e, deps)
	router.RegisterBookings(e, deps)

	addr := ":" + cfg.Port
	go func() {
		log.WithField("env", cfg.Env).Infof("listening on %s", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("http shutdown")
	}
	if err := jobs.Shutdown(); err != nil {
		log.WithError(err).Error("scheduler shutdown")
	}
}
