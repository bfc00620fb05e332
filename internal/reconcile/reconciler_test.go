package reconcile

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plannerd/internal/models"
)

type fakeTemplates struct {
	mu        sync.Mutex
	active    []*models.RecurringTemplate
	appended  map[int64][]models.CreatedEvent
	findErr   error
	appendErr error
}

func newFakeTemplates(tpls ...*models.RecurringTemplate) *fakeTemplates {
	return &fakeTemplates{active: tpls, appended: make(map[int64][]models.CreatedEvent)}
}

func (f *fakeTemplates) FindActive(ctx context.Context, asOf time.Time) ([]*models.RecurringTemplate, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.active, nil
}

func (f *fakeTemplates) AppendCreated(ctx context.Context, templateID int64, entries []models.CreatedEvent) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appended[templateID] = append(f.appended[templateID], entries...)
	return nil
}

type fakeEvents struct {
	mu        sync.Mutex
	events    []*models.EventInstance
	nextID    int64
	createErr map[int64]error // keyed by recurring id
	findDelay time.Duration
}

func newFakeEvents() *fakeEvents {
	return &fakeEvents{createErr: make(map[int64]error)}
}

func (f *fakeEvents) FindScheduled(ctx context.Context, ownerID, recurringID int64, from, to time.Time) (*models.EventInstance, error) {
	if f.findDelay > 0 {
		time.Sleep(f.findDelay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ev := range f.events {
		if ev.OwnerID != ownerID || !ev.FromTemplate(recurringID) {
			continue
		}
		if !ev.StartTime.Before(from) && !ev.StartTime.After(to) {
			return ev, nil
		}
	}
	return nil, nil
}

func (f *fakeEvents) Create(ctx context.Context, ev *models.EventInstance) error {
	if ev.RecurringID != nil {
		if err := f.createErr[*ev.RecurringID]; err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	ev.EventID = f.nextID
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeEvents) byTemplate(templateID int64) []*models.EventInstance {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.EventInstance
	for _, ev := range f.events {
		if ev.FromTemplate(templateID) {
			out = append(out, ev)
		}
	}
	return out
}

var testNow = time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func weeklyTemplate(id int64) *models.RecurringTemplate {
	return &models.RecurringTemplate{
		TemplateID: id,
		OwnerID:    100,
		Base: models.BaseEvent{
			Title:           "Standup",
			Category:        "work",
			Priority:        3,
			DurationMinutes: 30,
		},
		Rule: models.RecurrenceRule{
			Pattern:   models.PatternWeekly,
			StartDate: testNow,
		},
		IsActive: true,
	}
}

func TestReconcile_MaterializesCandidates(t *testing.T) {
	tpl := weeklyTemplate(1)
	templates := newFakeTemplates(tpl)
	events := newFakeEvents()
	r := New(templates, events, Policy{}, fixedClock)

	require.NoError(t, r.Reconcile(context.Background(), tpl))

	// 14-day lookahead from Jan 1 covers Jan 1, 8, 15.
	got := events.byTemplate(1)
	require.Len(t, got, 3)
	for _, ev := range got {
		assert.Equal(t, int64(100), ev.OwnerID)
		assert.Equal(t, "Standup", ev.Title)
		assert.True(t, ev.IsRecurring)
		assert.Equal(t, models.SourceRecurring, ev.SourceType)
		require.NotNil(t, ev.EndTime)
		assert.Equal(t, 30*time.Minute, ev.EndTime.Sub(ev.StartTime))
	}

	entries := templates.appended[1]
	require.Len(t, entries, 3)
	for i, e := range entries {
		assert.Equal(t, got[i].EventID, e.EventID)
		assert.True(t, e.ScheduledAt.Equal(got[i].StartTime))
		assert.True(t, e.CreatedAt.Equal(testNow))
	}
	assert.Len(t, tpl.CreatedEvents, 3)
}

func TestReconcile_Idempotent(t *testing.T) {
	tpl := weeklyTemplate(1)
	templates := newFakeTemplates(tpl)
	events := newFakeEvents()
	r := New(templates, events, Policy{}, fixedClock)

	require.NoError(t, r.Reconcile(context.Background(), tpl))
	first := len(events.byTemplate(1))
	logged := len(tpl.CreatedEvents)

	require.NoError(t, r.Reconcile(context.Background(), tpl))
	assert.Equal(t, first, len(events.byTemplate(1)), "second pass created duplicates")
	assert.Equal(t, logged, len(tpl.CreatedEvents), "second pass appended bookkeeping")
}

func TestReconcile_SkipDatesNeverMaterialized(t *testing.T) {
	tpl := weeklyTemplate(1)
	skip := time.Date(2024, time.January, 8, 0, 0, 0, 0, time.UTC)
	tpl.Rule.SkipDates = []time.Time{skip}
	events := newFakeEvents()
	r := New(newFakeTemplates(tpl), events, Policy{}, fixedClock)

	require.NoError(t, r.Reconcile(context.Background(), tpl))

	got := events.byTemplate(1)
	require.Len(t, got, 2)
	for _, ev := range got {
		assert.False(t, models.SameDate(ev.StartTime, skip))
	}
}

func TestReconcile_ToleranceAbsorbsDrift(t *testing.T) {
	tpl := weeklyTemplate(1)
	templates := newFakeTemplates(tpl)
	events := newFakeEvents()

	// Pre-existing instance 3 minutes off the Jan 8 occurrence.
	id := tpl.TemplateID
	require.NoError(t, events.Create(context.Background(), &models.EventInstance{
		OwnerID:     tpl.OwnerID,
		StartTime:   time.Date(2024, time.January, 8, 9, 3, 0, 0, time.UTC),
		RecurringID: &id,
		IsRecurring: true,
	}))

	r := New(templates, events, Policy{}, fixedClock)
	require.NoError(t, r.Reconcile(context.Background(), tpl))

	// Jan 8 matched the drifted instance; only Jan 1 and Jan 15 are new.
	assert.Len(t, events.byTemplate(1), 3)
	assert.Len(t, templates.appended[1], 2)
}

func TestReconcile_OutsideToleranceCreates(t *testing.T) {
	tpl := weeklyTemplate(1)
	events := newFakeEvents()

	id := tpl.TemplateID
	require.NoError(t, events.Create(context.Background(), &models.EventInstance{
		OwnerID:     tpl.OwnerID,
		StartTime:   time.Date(2024, time.January, 8, 9, 20, 0, 0, time.UTC),
		RecurringID: &id,
		IsRecurring: true,
	}))

	r := New(newFakeTemplates(tpl), events, Policy{}, fixedClock)
	require.NoError(t, r.Reconcile(context.Background(), tpl))

	// 20 minutes is outside the ±5 minute window, so Jan 8 is created anew.
	assert.Len(t, events.byTemplate(1), 4)
}

func TestReconcile_InactiveTemplateUntouched(t *testing.T) {
	tpl := weeklyTemplate(1)
	tpl.IsActive = false
	events := newFakeEvents()
	r := New(newFakeTemplates(tpl), events, Policy{}, fixedClock)

	require.NoError(t, r.Reconcile(context.Background(), tpl))
	assert.Empty(t, events.byTemplate(1))
}

func TestReconcile_SerializesSameTemplate(t *testing.T) {
	tpl := weeklyTemplate(1)
	templates := newFakeTemplates(tpl)
	events := newFakeEvents()
	events.findDelay = 5 * time.Millisecond
	r := New(templates, events, Policy{}, fixedClock)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = r.Reconcile(context.Background(), tpl)
		}()
	}
	wg.Wait()

	// Both passes ran, but the keyed lock kept them from racing the
	// duplicate check.
	assert.Len(t, events.byTemplate(1), 3)
}

func TestRun_IsolatesTemplateFailures(t *testing.T) {
	good := weeklyTemplate(1)
	bad := weeklyTemplate(2)
	templates := newFakeTemplates(good, bad)
	events := newFakeEvents()
	events.createErr[2] = errors.New("store down")

	r := New(templates, events, Policy{MaxParallel: 1}, fixedClock)
	require.NoError(t, r.Run(context.Background()))

	assert.Len(t, events.byTemplate(1), 3, "sibling template should still reconcile")
	assert.Empty(t, events.byTemplate(2))
	assert.Empty(t, templates.appended[2])
}

func TestRun_ListFailurePropagates(t *testing.T) {
	templates := newFakeTemplates()
	templates.findErr = errors.New("connection refused")
	r := New(templates, newFakeEvents(), Policy{}, fixedClock)

	assert.Error(t, r.Run(context.Background()))
}

func TestReconcile_AppendFailureSurfaces(t *testing.T) {
	tpl := weeklyTemplate(1)
	templates := newFakeTemplates(tpl)
	templates.appendErr = errors.New("write failed")
	events := newFakeEvents()
	r := New(templates, events, Policy{}, fixedClock)

	err := r.Reconcile(context.Background(), tpl)
	require.Error(t, err)
	// Instances were persisted; the in-memory log was not extended.
	assert.Len(t, events.byTemplate(1), 3)
	assert.Empty(t, tpl.CreatedEvents)
}

func TestReconcile_CustomPolicy(t *testing.T) {
	tpl := weeklyTemplate(1)
	events := newFakeEvents()
	r := New(newFakeTemplates(tpl), events, Policy{Lookahead: 7 * 24 * time.Hour}, fixedClock)

	require.NoError(t, r.Reconcile(context.Background(), tpl))
	// 7-day lookahead covers Jan 1 and Jan 8 only.
	assert.Len(t, events.byTemplate(1), 2)
}
