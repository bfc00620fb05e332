// Package service implements the template lifecycle operations: create,
// update, delete with or without cascade, and read-only listings.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"plannerd/internal/models"
)

// ErrNotFound is returned when the owner has no template with the given id.
var ErrNotFound = errors.New("template not found")

// TemplateStore is the persistence surface for templates. Satisfied by
// repository.TemplateRepository.
type TemplateStore interface {
	Create(ctx context.Context, tpl *models.RecurringTemplate) error
	GetByID(ctx context.Context, templateID, ownerID int64) (*models.RecurringTemplate, error)
	Update(ctx context.Context, tpl *models.RecurringTemplate) error
	Delete(ctx context.Context, templateID, ownerID int64) error
	ListByOwner(ctx context.Context, ownerID int64) ([]*models.RecurringTemplate, error)
}

// EventStore is the event surface needed for deletion cascade and listings.
// Satisfied by repository.EventRepository.
type EventStore interface {
	DeleteByTemplate(ctx context.Context, ownerID, recurringID int64) (int64, error)
	DetachByTemplate(ctx context.Context, ownerID, recurringID int64) (int64, error)
	ListByTemplate(ctx context.Context, ownerID, recurringID int64) ([]*models.EventInstance, error)
}

type Templates struct {
	templates TemplateStore
	events    EventStore
}

func NewTemplates(templates TemplateStore, events EventStore) *Templates {
	return &Templates{templates: templates, events: events}
}

// Create validates the template and persists it active. The reconciler picks
// it up on the driver's next tick; nothing is materialized here.
func (s *Templates) Create(ctx context.Context, tpl *models.RecurringTemplate) error {
	if tpl.OwnerID == 0 {
		return &models.ValidationError{Field: "owner_id", Reason: "is required"}
	}
	if tpl.Base.Title == "" {
		return &models.ValidationError{Field: "title", Reason: "is required"}
	}
	if err := tpl.Rule.Validate(); err != nil {
		return err
	}
	if tpl.AutoCreateDaysBefore <= 0 {
		tpl.AutoCreateDaysBefore = models.DefaultAutoCreateDaysBefore
	}
	tpl.IsActive = true
	tpl.CreatedEvents = nil
	if err := s.templates.Create(ctx, tpl); err != nil {
		return fmt.Errorf("create template: %w", err)
	}
	return nil
}

// TemplateUpdate is a partial patch; nil fields keep their stored value.
type TemplateUpdate struct {
	Title                *string
	Description          *string
	Location             *string
	Category             *string
	Priority             *int
	DurationMinutes      *int
	Rule                 *models.RecurrenceRule
	AutoCreateDaysBefore *int
	IsActive             *bool
}

// Update merges the patch into the stored template and re-validates. It does
// not re-run reconciliation; the driver's next tick picks up the change.
func (s *Templates) Update(ctx context.Context, ownerID, templateID int64, patch TemplateUpdate) (*models.RecurringTemplate, error) {
	tpl, err := s.get(ctx, templateID, ownerID)
	if err != nil {
		return nil, err
	}

	if patch.Title != nil {
		tpl.Base.Title = *patch.Title
	}
	if patch.Description != nil {
		tpl.Base.Description = *patch.Description
	}
	if patch.Location != nil {
		tpl.Base.Location = *patch.Location
	}
	if patch.Category != nil {
		tpl.Base.Category = *patch.Category
	}
	if patch.Priority != nil {
		tpl.Base.Priority = *patch.Priority
	}
	if patch.DurationMinutes != nil {
		tpl.Base.DurationMinutes = *patch.DurationMinutes
	}
	if patch.Rule != nil {
		tpl.Rule = *patch.Rule
	}
	if patch.AutoCreateDaysBefore != nil {
		tpl.AutoCreateDaysBefore = *patch.AutoCreateDaysBefore
	}
	if patch.IsActive != nil {
		tpl.IsActive = *patch.IsActive
	}

	if tpl.Base.Title == "" {
		return nil, &models.ValidationError{Field: "title", Reason: "is required"}
	}
	if err := tpl.Rule.Validate(); err != nil {
		return nil, err
	}
	if err := s.templates.Update(ctx, tpl); err != nil {
		return nil, fmt.Errorf("update template %d: %w", templateID, err)
	}
	return tpl, nil
}

// Delete removes the template. With cascade, every instance it generated is
// removed too; without, the instances are detached (reference cleared, rows
// kept) before the template goes away.
func (s *Templates) Delete(ctx context.Context, ownerID, templateID int64, cascade bool) error {
	if _, err := s.get(ctx, templateID, ownerID); err != nil {
		return err
	}

	if cascade {
		n, err := s.events.DeleteByTemplate(ctx, ownerID, templateID)
		if err != nil {
			return fmt.Errorf("cascade delete events of template %d: %w", templateID, err)
		}
		log.Printf("template %d: removed %d generated events", templateID, n)
	} else {
		n, err := s.events.DetachByTemplate(ctx, ownerID, templateID)
		if err != nil {
			return fmt.Errorf("detach events of template %d: %w", templateID, err)
		}
		log.Printf("template %d: detached %d generated events", templateID, n)
	}

	if err := s.templates.Delete(ctx, templateID, ownerID); err != nil {
		return fmt.Errorf("delete template %d: %w", templateID, err)
	}
	return nil
}

// Deactivate soft-disables the template without touching its instances.
func (s *Templates) Deactivate(ctx context.Context, ownerID, templateID int64) error {
	inactive := false
	_, err := s.Update(ctx, ownerID, templateID, TemplateUpdate{IsActive: &inactive})
	return err
}

// List returns the owner's templates, newest first.
func (s *Templates) List(ctx context.Context, ownerID int64) ([]*models.RecurringTemplate, error) {
	tpls, err := s.templates.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	return tpls, nil
}

// ListEvents returns the instances a template generated, earliest first.
func (s *Templates) ListEvents(ctx context.Context, ownerID, templateID int64) ([]*models.EventInstance, error) {
	if _, err := s.get(ctx, templateID, ownerID); err != nil {
		return nil, err
	}
	evs, err := s.events.ListByTemplate(ctx, ownerID, templateID)
	if err != nil {
		return nil, fmt.Errorf("list events of template %d: %w", templateID, err)
	}
	return evs, nil
}

// Get returns one owner-scoped template.
func (s *Templates) Get(ctx context.Context, ownerID, templateID int64) (*models.RecurringTemplate, error) {
	return s.get(ctx, templateID, ownerID)
}

func (s *Templates) get(ctx context.Context, templateID, ownerID int64) (*models.RecurringTemplate, error) {
	tpl, err := s.templates.GetByID(ctx, templateID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("load template %d: %w", templateID, err)
	}
	if tpl == nil {
		return nil, ErrNotFound
	}
	return tpl, nil
}
