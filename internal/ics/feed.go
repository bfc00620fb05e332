// Package ics renders recurring templates as an iCalendar feed so external
// calendar clients can subscribe to the schedule.
package ics

import (
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"

	"plannerd/internal/models"
	"plannerd/internal/rrule"
)

const icsTimeLayout = "20060102T150405Z"

// Feed serializes the active templates as VEVENTs carrying RRULE and EXDATE
// properties. Inactive templates are left out, matching what the
// reconciler would materialize.
func Feed(templates []*models.RecurringTemplate, now time.Time) (string, error) {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)

	for _, tpl := range templates {
		if !tpl.IsActive {
			continue
		}
		if err := addTemplate(cal, tpl, now); err != nil {
			return "", fmt.Errorf("template %d: %w", tpl.TemplateID, err)
		}
	}
	return cal.Serialize(), nil
}

func addTemplate(cal *ical.Calendar, tpl *models.RecurringTemplate, now time.Time) error {
	rstr, err := rrule.String(tpl.Rule)
	if err != nil {
		return err
	}

	ev := cal.AddEvent(fmt.Sprintf("template-%d@plannerd", tpl.TemplateID))
	ev.SetDtStampTime(now)
	ev.SetSummary(tpl.Base.Title)
	if tpl.Base.Description != "" {
		ev.SetDescription(tpl.Base.Description)
	}
	if tpl.Base.Location != "" {
		ev.SetLocation(tpl.Base.Location)
	}

	ev.SetStartAt(tpl.Rule.StartDate)
	if tpl.Base.DurationMinutes > 0 {
		ev.SetEndAt(tpl.Rule.StartDate.Add(time.Duration(tpl.Base.DurationMinutes) * time.Minute))
	}

	ev.SetProperty(ical.ComponentPropertyRrule, rstr)
	for _, skip := range tpl.Rule.SkipDates {
		// EXDATE instants must line up with the occurrence clock time.
		ex := time.Date(skip.Year(), skip.Month(), skip.Day(),
			tpl.Rule.StartDate.Hour(), tpl.Rule.StartDate.Minute(), tpl.Rule.StartDate.Second(), 0,
			tpl.Rule.StartDate.Location())
		ev.AddProperty(ical.ComponentPropertyExdate, ex.UTC().Format(icsTimeLayout))
	}
	return nil
}
