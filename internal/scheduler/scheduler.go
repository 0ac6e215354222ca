package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"device-monitor-backend/internal/recon"
)

// Scheduler runs the full status check on a fixed interval.
type Scheduler struct {
	svc      *recon.Service
	interval time.Duration
	log      *logrus.Entry

	// running guards against overlapping ticks: if a check is still in
	// flight when the next tick fires, that tick is skipped.
	running sync.Mutex
}

// New creates a scheduler driving the given reconciliation service.
func New(svc *recon.Service, interval time.Duration, logger *logrus.Entry) *Scheduler {
	return &Scheduler{
		svc:      svc,
		interval: interval,
		log:      logger,
	}
}

// Run ticks until the context is cancelled. The first check runs
// immediately. A tick never lets a failure escape; it logs and waits for
// the next interval.
func (s *Scheduler) Run(ctx context.Context) {
	s.log.Infof("device status scheduler started (interval %s)", s.interval)

	s.Tick(ctx)

	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("device status scheduler shutting down")
			return
		case <-timer.C:
			s.Tick(ctx)
			timer.Reset(s.interval)
		}
	}
}

// Tick runs one status check. Exposed so the API's manual trigger and
// tests can reuse the same guard.
func (s *Scheduler) Tick(ctx context.Context) {
	if !s.running.TryLock() {
		s.log.Warn("previous status check still running, skipping this tick")
		return
	}
	defer s.running.Unlock()

	checked, changes, err := s.svc.CheckAllStatuses(ctx)
	switch {
	case errors.Is(err, recon.ErrNoCredentials):
		s.log.Debug("no credentials configured, skipping status check")
	case err != nil:
		s.log.WithError(err).Error("scheduled status check failed")
	default:
		s.log.Infof("checked %d devices, %d status changes", checked, changes)
	}
}
