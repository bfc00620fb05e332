// Package reconcile turns recurrence templates into materialized event
// instances without duplication. Each pass is idempotent: re-running it
// immediately creates nothing new.
package reconcile

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"plannerd/internal/models"
	"plannerd/internal/recurrence"
)

// Policy holds the reconciliation knobs.
type Policy struct {
	// Lookahead is how far past now candidates are generated.
	Lookahead time.Duration

	// Tolerance is the symmetric window around a candidate start within
	// which an existing instance counts as a match. It absorbs clock and
	// rounding drift between runs; exact-timestamp equality is not required.
	Tolerance time.Duration

	// MaxParallel bounds how many templates reconcile concurrently.
	MaxParallel int
}

// DefaultPolicy returns the reference policy: 14-day horizon, ±5 minute
// match window, four templates in flight.
func DefaultPolicy() Policy {
	return Policy{
		Lookahead:   14 * 24 * time.Hour,
		Tolerance:   5 * time.Minute,
		MaxParallel: 4,
	}
}

type Reconciler struct {
	templates TemplateSource
	events    EventSink
	policy    Policy
	now       func() time.Time
	locks     *lockTable
}

// New builds a reconciler. A nil clock means wall time; zero policy fields
// fall back to the defaults.
func New(templates TemplateSource, events EventSink, policy Policy, clock func() time.Time) *Reconciler {
	def := DefaultPolicy()
	if policy.Lookahead <= 0 {
		policy.Lookahead = def.Lookahead
	}
	if policy.Tolerance <= 0 {
		policy.Tolerance = def.Tolerance
	}
	if policy.MaxParallel <= 0 {
		policy.MaxParallel = def.MaxParallel
	}
	if clock == nil {
		clock = time.Now
	}
	return &Reconciler{
		templates: templates,
		events:    events,
		policy:    policy,
		now:       clock,
		locks:     newLockTable(),
	}
}

// Run reconciles every active template. A failure on one template is logged
// and never aborts its siblings; templates not reached before cancellation
// are picked up on the next tick.
func (r *Reconciler) Run(ctx context.Context) error {
	now := r.now()
	tpls, err := r.templates.FindActive(ctx, now)
	if err != nil {
		return fmt.Errorf("list active templates: %w", err)
	}

	var failed atomic.Int64
	var g errgroup.Group
	g.SetLimit(r.policy.MaxParallel)
	for _, tpl := range tpls {
		tpl := tpl
		g.Go(func() error {
			if err := r.Reconcile(ctx, tpl); err != nil {
				failed.Add(1)
				log.Printf("reconcile template %d: %v", tpl.TemplateID, err)
			}
			return nil
		})
	}
	g.Wait()

	log.Printf("reconciled %d templates (%d failed)", len(tpls), failed.Load())
	return nil
}

// Reconcile materializes the template's missing occurrences up to the
// lookahead horizon and appends the bookkeeping entries in one write.
// Concurrent calls for the same template are serialized.
func (r *Reconciler) Reconcile(ctx context.Context, tpl *models.RecurringTemplate) error {
	unlock := r.locks.lock(tpl.TemplateID)
	defer unlock()

	if !tpl.IsActive {
		return nil
	}

	now := r.now()
	horizon := now.Add(r.policy.Lookahead)
	candidates, truncated := recurrence.Generate(tpl.Rule, tpl.Base.DurationMinutes, horizon, now)
	if truncated {
		log.Printf("template %d: candidate ceiling reached, output truncated", tpl.TemplateID)
	}

	var created []models.CreatedEvent
	var runErr error
	for _, c := range candidates {
		existing, err := r.events.FindScheduled(ctx, tpl.OwnerID, tpl.TemplateID,
			c.Start.Add(-r.policy.Tolerance), c.Start.Add(r.policy.Tolerance))
		if err != nil {
			runErr = fmt.Errorf("check instance at %s: %w", c.Start.Format(time.RFC3339), err)
			break
		}
		if existing != nil {
			continue
		}

		ev := materialize(tpl, c)
		if err := r.events.Create(ctx, ev); err != nil {
			runErr = fmt.Errorf("create instance at %s: %w", c.Start.Format(time.RFC3339), err)
			break
		}
		created = append(created, models.CreatedEvent{
			EventID:     ev.EventID,
			CreatedAt:   now,
			ScheduledAt: c.Start,
		})
	}

	// One bookkeeping write per pass. Instances persisted before a failure
	// are still recorded; anything missed heals on the next idempotent run.
	if len(created) > 0 {
		if err := r.templates.AppendCreated(ctx, tpl.TemplateID, created); err != nil {
			if runErr == nil {
				runErr = fmt.Errorf("record created events: %w", err)
			} else {
				log.Printf("template %d: record created events: %v", tpl.TemplateID, err)
			}
		} else {
			tpl.CreatedEvents = append(tpl.CreatedEvents, created...)
		}
	}
	return runErr
}

func materialize(tpl *models.RecurringTemplate, c recurrence.Candidate) *models.EventInstance {
	templateID := tpl.TemplateID
	return &models.EventInstance{
		OwnerID:     tpl.OwnerID,
		Title:       tpl.Base.Title,
		Description: tpl.Base.Description,
		Location:    tpl.Base.Location,
		Category:    tpl.Base.Category,
		Priority:    tpl.Base.Priority,
		StartTime:   c.Start,
		EndTime:     c.End,
		RecurringID: &templateID,
		IsRecurring: true,
		SourceType:  models.SourceRecurring,
	}
}
