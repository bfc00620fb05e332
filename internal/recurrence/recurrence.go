// Package recurrence computes concrete occurrence candidates from a
// template's recurrence rule. It is pure computation: the clock is an
// explicit parameter and no storage is touched.
package recurrence

import (
	"time"

	"plannerd/internal/models"
)

// MaxCandidates bounds one generation pass regardless of horizon width, so a
// malformed or unterminated rule cannot produce unbounded output.
const MaxCandidates = 50

// Candidate is a computed occurrence before existence-checking.
type Candidate struct {
	Start time.Time
	End   *time.Time
}

// Generate walks the rule's grid from its start date up to min(end date,
// horizon) and returns the occurrences that are not in the past and not
// skipped, in non-decreasing order. The second result is true when the
// candidate ceiling cut the output short.
//
// "Past" is judged at date granularity against now: an occurrence later
// today is still emitted.
func Generate(rule models.RecurrenceRule, durationMinutes int, horizon, now time.Time) ([]Candidate, bool) {
	limit := horizon
	if rule.EndDate != nil && rule.EndDate.Before(limit) {
		limit = *rule.EndDate
	}

	today := dateOf(now)
	var out []Candidate
	for cur := rule.StartDate; !cur.After(limit); cur = nextAfter(rule, cur) {
		if dateOf(cur).Before(today) {
			continue
		}
		if rule.Skips(cur) {
			continue
		}
		if len(out) >= MaxCandidates {
			return out, true
		}
		out = append(out, Candidate{Start: cur, End: endOf(cur, durationMinutes)})
	}
	return out, false
}

// nextAfter advances one pattern step. Monthly stepping uses AddDate, which
// rolls a day-31 start into the next month (Jan 31 -> Mar 2/3) instead of
// clamping to the last day.
func nextAfter(rule models.RecurrenceRule, cur time.Time) time.Time {
	switch rule.Pattern {
	case models.PatternWeekly:
		return cur.AddDate(0, 0, 7)
	case models.PatternBiweekly:
		return cur.AddDate(0, 0, 14)
	case models.PatternMonthly:
		return cur.AddDate(0, 1, 0)
	default:
		return cur.AddDate(0, 0, rule.IntervalDays())
	}
}

func endOf(start time.Time, durationMinutes int) *time.Time {
	if durationMinutes <= 0 {
		return nil
	}
	end := start.Add(time.Duration(durationMinutes) * time.Minute)
	return &end
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
