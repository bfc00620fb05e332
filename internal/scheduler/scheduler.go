// Package scheduler drives periodic reconciliation. A cron entry and manual
// notifications both funnel into one runner loop, so batches never overlap.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Runner is the batch the scheduler drives; implemented by
// reconcile.Reconciler.
type Runner interface {
	Run(ctx context.Context) error
}

type Scheduler struct {
	runner   Runner
	spec     string
	notifyCh chan struct{}
}

func New(runner Runner, spec string) *Scheduler {
	return &Scheduler{
		runner:   runner,
		spec:     spec,
		notifyCh: make(chan struct{}, 1),
	}
}

// Notify triggers an immediate run. Non-blocking if one is already pending.
func (s *Scheduler) Notify() {
	select {
	case s.notifyCh <- struct{}{}:
	default:
		// A run is already queued, skip
	}
}

// Start blocks until ctx is cancelled, running one batch per cron tick or
// notification.
func (s *Scheduler) Start(ctx context.Context) error {
	c := cron.New()
	if _, err := c.AddFunc(s.spec, s.Notify); err != nil {
		return fmt.Errorf("invalid cron spec %q: %w", s.spec, err)
	}
	c.Start()
	defer c.Stop()
	log.Printf("scheduler started (spec %q)", s.spec)

	// Give migrations a moment to settle before the first pass.
	select {
	case <-ctx.Done():
		return nil
	case <-time.After(2 * time.Second):
	}
	s.run(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Println("scheduler stopped")
			return nil
		case <-s.notifyCh:
			s.run(ctx)
		}
	}
}

func (s *Scheduler) run(ctx context.Context) {
	if err := s.runner.Run(ctx); err != nil {
		log.Printf("reconciliation run: %v", err)
	}
}
