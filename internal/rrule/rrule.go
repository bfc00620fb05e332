// Package rrule maps recurrence rules onto RFC 5545 RRULE strings for the
// calendar feed. The scheduling engine itself does not depend on RRULE
// semantics; this bridge exists only for interoperability.
package rrule

import (
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"plannerd/internal/models"
)

// FromRule builds an rrule.RRule equivalent to the given recurrence rule.
// Skip dates are not represented here; they map onto EXDATE properties at
// the calendar layer.
func FromRule(rule models.RecurrenceRule) (*rrule.RRule, error) {
	freq, interval, err := frequency(rule)
	if err != nil {
		return nil, err
	}

	opt := rrule.ROption{
		Freq:     freq,
		Interval: interval,
		Dtstart:  rule.StartDate,
	}
	if rule.EndDate != nil {
		opt.Until = *rule.EndDate
	}
	r, err := rrule.NewRRule(opt)
	if err != nil {
		return nil, fmt.Errorf("build rrule for pattern %q: %w", rule.Pattern, err)
	}
	return r, nil
}

// String renders the rule as an RRULE property value, e.g.
// "FREQ=WEEKLY;INTERVAL=2;UNTIL=20240131T000000Z".
func String(rule models.RecurrenceRule) (string, error) {
	freq, interval, err := frequency(rule)
	if err != nil {
		return "", err
	}

	freqName := map[rrule.Frequency]string{
		rrule.DAILY:   "DAILY",
		rrule.WEEKLY:  "WEEKLY",
		rrule.MONTHLY: "MONTHLY",
	}

	parts := []string{"FREQ=" + freqName[freq]}
	if interval > 1 {
		parts = append(parts, fmt.Sprintf("INTERVAL=%d", interval))
	}
	if rule.EndDate != nil {
		parts = append(parts, "UNTIL="+rule.EndDate.UTC().Format("20060102T150405Z"))
	}
	return strings.Join(parts, ";"), nil
}

func frequency(rule models.RecurrenceRule) (rrule.Frequency, int, error) {
	switch rule.Pattern {
	case models.PatternWeekly:
		return rrule.WEEKLY, 1, nil
	case models.PatternBiweekly:
		return rrule.WEEKLY, 2, nil
	case models.PatternMonthly:
		return rrule.MONTHLY, 1, nil
	case models.PatternCustom:
		return rrule.DAILY, rule.IntervalDays(), nil
	default:
		return 0, 0, fmt.Errorf("no RRULE mapping for pattern %q", rule.Pattern)
	}
}

// Occurrences expands the rule between two instants, inclusive. Used to
// cross-check the scheduling grid and to preview a rule.
func Occurrences(rule models.RecurrenceRule, from, to time.Time) ([]time.Time, error) {
	r, err := FromRule(rule)
	if err != nil {
		return nil, err
	}
	return r.Between(from, to, true), nil
}
