// Package scheduler runs the periodic maintenance jobs of the service.
package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/sirupsen/logrus"
)

// SeatRecounter recomputes the cached bookable-seat count of every screen.
type SeatRecounter interface {
	RecountTotalSeats(ctx context.Context) (int64, error)
}

// jobTimeout bounds a single recount run.
const jobTimeout = 30 * time.Second

// Scheduler owns a gocron scheduler and its jobs.
type Scheduler struct {
	s   gocron.Scheduler
	log logrus.FieldLogger
}

// New registers the seat recount job, run once at start and then every
// interval. Runs never overlap: a run still in progress when the next one
// is due makes gocron skip it.
func New(recounter SeatRecounter, interval time.Duration, log logrus.FieldLogger) (*Scheduler, error) {
	s, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, err
	}
	sch := &Scheduler{s: s, log: log}
	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(sch.recount, recounter),
		gocron.WithName("seat-recount"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, err
	}
	return sch, nil
}

func (s *Scheduler) recount(r SeatRecounter) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	start := time.Now()
	n, err := r.RecountTotalSeats(ctx)
	if err != nil {
		s.log.WithError(err).Error("seat recount failed")
		return
	}
	s.log.WithFields(logrus.Fields{
		"screens_updated": n,
		"took":            time.Since(start).String(),
	}).Info("seat recount done")
}

// Start begins running jobs in the background.
func (s *Scheduler) Start() { s.s.Start() }

// Shutdown stops the scheduler and waits for running jobs to finish.
func (s *Scheduler) Shutdown() error { return s.s.Shutdown() }
