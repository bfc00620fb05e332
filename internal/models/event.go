package models

import "time"

// SourceRecurring marks instances materialized from a template.
const SourceRecurring = "recurring"

type EventInstance struct {
	EventID     int64      `json:"event_id"`
	OwnerID     int64      `json:"owner_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Location    string     `json:"location"`
	Category    string     `json:"category"`
	Priority    int        `json:"priority"`
	StartTime   time.Time  `json:"start_time"`
	EndTime     *time.Time `json:"end_time,omitempty"`
	RecurringID *int64     `json:"recurring_id,omitempty"` // weak reference to the owning template
	IsRecurring bool       `json:"is_recurring"`
	SourceType  string     `json:"source_type,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// FromTemplate reports whether the instance still references the given template.
func (e *EventInstance) FromTemplate(templateID int64) bool {
	return e.RecurringID != nil && *e.RecurringID == templateID
}
