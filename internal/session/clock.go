package session

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
)

const defaultSweepInterval = time.Minute

// Clock drives a Service from a gocron scheduler: one tick per second and a periodic sweep.
type Clock struct {
	s *gocron.Scheduler
}

func NewClock(svc *Service, sweepInterval time.Duration) (*Clock, error) {
	if sweepInterval <= 0 {
		sweepInterval = defaultSweepInterval
	}

	s := gocron.NewScheduler(time.UTC)
	// Runs of the same job never overlap.
	s.SingletonModeAll()

	if _, err := s.Every(time.Second).Do(func() {
		svc.TickAll(context.Background())
	}); err != nil {
		return nil, fmt.Errorf("schedule tick: %w", err)
	}

	if _, err := s.Every(sweepInterval).WaitForSchedule().Do(func() {
		svc.Sweep(context.Background())
	}); err != nil {
		return nil, fmt.Errorf("schedule sweep: %w", err)
	}

	return &Clock{s: s}, nil
}

func (c *Clock) Start() {
	c.s.StartAsync()
}

// Stop waits for running jobs and stops scheduling new ones.
func (c *Clock) Stop() {
	c.s.Stop()
}
