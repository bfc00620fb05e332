package reconcile

import (
	"context"
	"time"

	"plannerd/internal/models"
)

// TemplateSource is the template-store surface the reconciler depends on.
// Satisfied by repository.TemplateRepository.
type TemplateSource interface {
	// FindActive returns the templates eligible for expansion: active, and
	// not ended before asOf.
	FindActive(ctx context.Context, asOf time.Time) ([]*models.RecurringTemplate, error)

	// AppendCreated records bookkeeping entries for one pass in a single
	// write against the template.
	AppendCreated(ctx context.Context, templateID int64, entries []models.CreatedEvent) error
}

// EventSink is the event-store surface the reconciler depends on.
// Satisfied by repository.EventRepository.
type EventSink interface {
	// FindScheduled returns an instance generated from the template whose
	// start time falls within [from, to], or nil when none exists.
	FindScheduled(ctx context.Context, ownerID, recurringID int64, from, to time.Time) (*models.EventInstance, error)

	Create(ctx context.Context, ev *models.EventInstance) error
}
