package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"plannerd/internal/database"
	"plannerd/internal/models"
)

const templateColumns = `template_id, owner_id, title, description, location, category, priority,
	 duration_minutes, pattern, custom_interval_days, start_date, end_date, skip_dates,
	 auto_create_days_before, is_active, created_at`

type TemplateRepository struct {
	db *database.DB
}

func NewTemplateRepository(db *database.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

func (r *TemplateRepository) Create(ctx context.Context, tpl *models.RecurringTemplate) error {
	return r.db.Pool.QueryRow(ctx,
		`INSERT INTO recurring_template (owner_id, title, description, location, category, priority,
		 duration_minutes, pattern, custom_interval_days, start_date, end_date, skip_dates,
		 auto_create_days_before, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12::date[], $13, $14)
		 RETURNING template_id, created_at`,
		tpl.OwnerID, tpl.Base.Title, tpl.Base.Description, tpl.Base.Location, tpl.Base.Category,
		tpl.Base.Priority, tpl.Base.DurationMinutes, string(tpl.Rule.Pattern),
		tpl.Rule.CustomIntervalDays, tpl.Rule.StartDate, tpl.Rule.EndDate,
		encodeSkipDates(tpl.Rule.SkipDates), tpl.AutoCreateDaysBefore, tpl.IsActive,
	).Scan(&tpl.TemplateID, &tpl.CreatedAt)
}

// GetByID returns the owner's template with its bookkeeping log, or nil when
// no such row exists.
func (r *TemplateRepository) GetByID(ctx context.Context, templateID, ownerID int64) (*models.RecurringTemplate, error) {
	row := r.db.Pool.QueryRow(ctx,
		`SELECT `+templateColumns+`
		 FROM recurring_template WHERE template_id = $1 AND owner_id = $2`,
		templateID, ownerID,
	)
	tpl, err := scanTemplate(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	entries, err := r.listCreated(ctx, templateID)
	if err != nil {
		return nil, err
	}
	tpl.CreatedEvents = entries
	return tpl, nil
}

func (r *TemplateRepository) Update(ctx context.Context, tpl *models.RecurringTemplate) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE recurring_template SET title = $1, description = $2, location = $3, category = $4,
		 priority = $5, duration_minutes = $6, pattern = $7, custom_interval_days = $8,
		 start_date = $9, end_date = $10, skip_dates = $11::date[], auto_create_days_before = $12,
		 is_active = $13
		 WHERE template_id = $14 AND owner_id = $15`,
		tpl.Base.Title, tpl.Base.Description, tpl.Base.Location, tpl.Base.Category,
		tpl.Base.Priority, tpl.Base.DurationMinutes, string(tpl.Rule.Pattern),
		tpl.Rule.CustomIntervalDays, tpl.Rule.StartDate, tpl.Rule.EndDate,
		encodeSkipDates(tpl.Rule.SkipDates), tpl.AutoCreateDaysBefore, tpl.IsActive,
		tpl.TemplateID, tpl.OwnerID,
	)
	return err
}

func (r *TemplateRepository) Delete(ctx context.Context, templateID, ownerID int64) error {
	_, err := r.db.Pool.Exec(ctx,
		`DELETE FROM recurring_template WHERE template_id = $1 AND owner_id = $2`,
		templateID, ownerID,
	)
	return err
}

func (r *TemplateRepository) ListByOwner(ctx context.Context, ownerID int64) ([]*models.RecurringTemplate, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+templateColumns+`
		 FROM recurring_template WHERE owner_id = $1
		 ORDER BY created_at DESC`,
		ownerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTemplates(rows)
}

// FindActive returns the templates eligible for expansion across all owners:
// active and not ended before asOf.
func (r *TemplateRepository) FindActive(ctx context.Context, asOf time.Time) ([]*models.RecurringTemplate, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+templateColumns+`
		 FROM recurring_template
		 WHERE is_active AND (end_date IS NULL OR end_date >= $1)
		 ORDER BY template_id ASC`,
		asOf,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTemplates(rows)
}

// AppendCreated inserts one pass's bookkeeping entries in a single batch.
func (r *TemplateRepository) AppendCreated(ctx context.Context, templateID int64, entries []models.CreatedEvent) error {
	if len(entries) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(
			`INSERT INTO template_created_event (template_id, event_id, scheduled_at, created_at)
			 VALUES ($1, $2, $3, $4)`,
			templateID, e.EventID, e.ScheduledAt, e.CreatedAt,
		)
	}
	br := r.db.Pool.SendBatch(ctx, batch)
	for range entries {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return err
		}
	}
	return br.Close()
}

func (r *TemplateRepository) listCreated(ctx context.Context, templateID int64) ([]models.CreatedEvent, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT event_id, created_at, scheduled_at
		 FROM template_created_event WHERE template_id = $1
		 ORDER BY entry_id ASC`,
		templateID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.CreatedEvent
	for rows.Next() {
		var e models.CreatedEvent
		if err := rows.Scan(&e.EventID, &e.CreatedAt, &e.ScheduledAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanTemplates(rows pgx.Rows) ([]*models.RecurringTemplate, error) {
	var tpls []*models.RecurringTemplate
	for rows.Next() {
		tpl, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		tpls = append(tpls, tpl)
	}
	return tpls, rows.Err()
}

func scanTemplate(row pgx.Row) (*models.RecurringTemplate, error) {
	tpl := &models.RecurringTemplate{}
	var pattern string
	err := row.Scan(&tpl.TemplateID, &tpl.OwnerID, &tpl.Base.Title, &tpl.Base.Description,
		&tpl.Base.Location, &tpl.Base.Category, &tpl.Base.Priority, &tpl.Base.DurationMinutes,
		&pattern, &tpl.Rule.CustomIntervalDays, &tpl.Rule.StartDate, &tpl.Rule.EndDate,
		&tpl.Rule.SkipDates, &tpl.AutoCreateDaysBefore, &tpl.IsActive, &tpl.CreatedAt)
	if err != nil {
		return nil, err
	}
	tpl.Rule.Pattern = models.RecurrencePattern(pattern)
	return tpl, nil
}

func encodeSkipDates(dates []time.Time) []string {
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = d.Format("2006-01-02")
	}
	return out
}
