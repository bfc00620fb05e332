package models

import (
	"fmt"
	"time"
)

type RecurrencePattern string

const (
	PatternWeekly   RecurrencePattern = "weekly"
	PatternBiweekly RecurrencePattern = "biweekly"
	PatternMonthly  RecurrencePattern = "monthly"
	PatternCustom   RecurrencePattern = "custom"
)

const (
	// DefaultCustomIntervalDays is used when a custom rule has no interval set.
	DefaultCustomIntervalDays = 7

	// DefaultAutoCreateDaysBefore is the default lead time for new templates.
	DefaultAutoCreateDaysBefore = 7
)

// RecurrenceRule describes how a template repeats. All dates are naive
// calendar dates; skip-date matching ignores time of day.
type RecurrenceRule struct {
	Pattern            RecurrencePattern `json:"pattern"`
	CustomIntervalDays int               `json:"custom_interval_days,omitempty"` // only for pattern "custom"
	StartDate          time.Time         `json:"start_date"`
	EndDate            *time.Time        `json:"end_date,omitempty"`
	SkipDates          []time.Time       `json:"skip_dates,omitempty"`
}

func (r *RecurrenceRule) Validate() error {
	switch r.Pattern {
	case PatternWeekly, PatternBiweekly, PatternMonthly, PatternCustom:
	default:
		return &ValidationError{Field: "pattern", Reason: fmt.Sprintf("unknown pattern %q", r.Pattern)}
	}
	if r.StartDate.IsZero() {
		return &ValidationError{Field: "start_date", Reason: "is required"}
	}
	if r.EndDate != nil && r.StartDate.After(*r.EndDate) {
		return &ValidationError{Field: "end_date", Reason: "is before start_date"}
	}
	if r.CustomIntervalDays < 0 {
		return &ValidationError{Field: "custom_interval_days", Reason: "must be positive"}
	}
	return nil
}

// IntervalDays returns the custom step, falling back to the default when unset.
func (r *RecurrenceRule) IntervalDays() int {
	if r.CustomIntervalDays > 0 {
		return r.CustomIntervalDays
	}
	return DefaultCustomIntervalDays
}

// Skips reports whether the given day is excluded, comparing calendar dates only.
func (r *RecurrenceRule) Skips(day time.Time) bool {
	for _, d := range r.SkipDates {
		if SameDate(d, day) {
			return true
		}
	}
	return false
}

// SameDate reports whether two instants fall on the same calendar date.
func SameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// BaseEvent is the prototype payload stamped onto every generated instance.
type BaseEvent struct {
	Title           string `json:"title"`
	Description     string `json:"description"`
	Location        string `json:"location"`
	Category        string `json:"category"`
	Priority        int    `json:"priority"`
	DurationMinutes int    `json:"duration_minutes,omitempty"`
}

// CreatedEvent is one entry of a template's append-only bookkeeping log.
type CreatedEvent struct {
	EventID     int64     `json:"event_id"`
	CreatedAt   time.Time `json:"created_at"`
	ScheduledAt time.Time `json:"scheduled_at"`
}

type RecurringTemplate struct {
	TemplateID           int64          `json:"template_id"`
	OwnerID              int64          `json:"owner_id"`
	Base                 BaseEvent      `json:"base"`
	Rule                 RecurrenceRule `json:"rule"`
	AutoCreateDaysBefore int            `json:"auto_create_days_before"`
	IsActive             bool           `json:"is_active"`
	CreatedEvents        []CreatedEvent `json:"created_events,omitempty"`
	CreatedAt            time.Time      `json:"created_at"`
}
