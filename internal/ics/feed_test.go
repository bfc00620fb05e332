package ics

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plannerd/internal/models"
)

func sampleTemplate() *models.RecurringTemplate {
	end := time.Date(2024, time.March, 31, 18, 0, 0, 0, time.UTC)
	return &models.RecurringTemplate{
		TemplateID: 42,
		OwnerID:    7,
		Base: models.BaseEvent{
			Title:           "Algorithms lecture",
			Location:        "Room 204",
			DurationMinutes: 90,
		},
		Rule: models.RecurrenceRule{
			Pattern:   models.PatternWeekly,
			StartDate: time.Date(2024, time.January, 8, 18, 0, 0, 0, time.UTC),
			EndDate:   &end,
			SkipDates: []time.Time{time.Date(2024, time.February, 12, 0, 0, 0, 0, time.UTC)},
		},
		IsActive: true,
	}
}

func TestFeed(t *testing.T) {
	now := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	out, err := Feed([]*models.RecurringTemplate{sampleTemplate()}, now)
	require.NoError(t, err)

	assert.Contains(t, out, "BEGIN:VCALENDAR")
	assert.Contains(t, out, "UID:template-42@plannerd")
	assert.Contains(t, out, "SUMMARY:Algorithms lecture")
	assert.Contains(t, out, "LOCATION:Room 204")
	assert.Contains(t, out, "RRULE:FREQ=WEEKLY;UNTIL=20240331T180000Z")
	assert.Contains(t, out, "EXDATE:20240212T180000Z")
	assert.Contains(t, out, "END:VCALENDAR")
}

func TestFeed_SkipsInactiveTemplates(t *testing.T) {
	tpl := sampleTemplate()
	tpl.IsActive = false

	out, err := Feed([]*models.RecurringTemplate{tpl}, time.Now())
	require.NoError(t, err)
	assert.NotContains(t, out, "BEGIN:VEVENT")
}

func TestFeed_UnmappablePatternFails(t *testing.T) {
	tpl := sampleTemplate()
	tpl.Rule.Pattern = "yearly"

	_, err := Feed([]*models.RecurringTemplate{tpl}, time.Now())
	assert.Error(t, err)
}

func TestFeed_OneEventPerTemplate(t *testing.T) {
	a := sampleTemplate()
	b := sampleTemplate()
	b.TemplateID = 43
	b.Base.Title = "Study group"

	out, err := Feed([]*models.RecurringTemplate{a, b}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "BEGIN:VEVENT"))
}
