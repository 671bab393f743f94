package tasks

import (
	"context"
	"time"

	"skywatch/internal/tracker"
)

// Sweep is the periodic eviction task. Each run drops every aircraft that
// has been silent for at least the tracker's staleness threshold.
type Sweep struct {
	tracker  *tracker.Tracker
	interval time.Duration
}

func NewSweep(trk *tracker.Tracker, interval time.Duration) *Sweep {
	return &Sweep{
		tracker:  trk,
		interval: interval,
	}
}

func (s *Sweep) Run(_ context.Context) error {
	s.tracker.Sweep(time.Now())
	return nil
}

func (s *Sweep) Interval() time.Duration {
	return s.interval
}

func (s *Sweep) Name() string {
	return "sweep"
}
