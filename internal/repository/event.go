package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"plannerd/internal/database"
	"plannerd/internal/models"
)

const eventColumns = `event_id, owner_id, title, description, location, category, priority,
	 start_time, end_time, recurring_id, is_recurring, source_type, created_at`

type EventRepository struct {
	db *database.DB
}

func NewEventRepository(db *database.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) Create(ctx context.Context, ev *models.EventInstance) error {
	return r.db.Pool.QueryRow(ctx,
		`INSERT INTO event (owner_id, title, description, location, category, priority,
		 start_time, end_time, recurring_id, is_recurring, source_type)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING event_id, created_at`,
		ev.OwnerID, ev.Title, ev.Description, ev.Location, ev.Category, ev.Priority,
		ev.StartTime, ev.EndTime, ev.RecurringID, ev.IsRecurring, ev.SourceType,
	).Scan(&ev.EventID, &ev.CreatedAt)
}

// FindScheduled returns one instance generated from the template whose start
// time falls within [from, to], or nil when none exists.
func (r *EventRepository) FindScheduled(ctx context.Context, ownerID, recurringID int64, from, to time.Time) (*models.EventInstance, error) {
	row := r.db.Pool.QueryRow(ctx,
		`SELECT `+eventColumns+`
		 FROM event
		 WHERE owner_id = $1 AND recurring_id = $2 AND start_time BETWEEN $3 AND $4
		 ORDER BY start_time ASC
		 LIMIT 1`,
		ownerID, recurringID, from, to,
	)
	ev, err := scanEvent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return ev, err
}

func (r *EventRepository) GetByID(ctx context.Context, eventID, ownerID int64) (*models.EventInstance, error) {
	row := r.db.Pool.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM event WHERE event_id = $1 AND owner_id = $2`,
		eventID, ownerID,
	)
	ev, err := scanEvent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return ev, err
}

func (r *EventRepository) ListByTemplate(ctx context.Context, ownerID, recurringID int64) ([]*models.EventInstance, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+eventColumns+`
		 FROM event WHERE owner_id = $1 AND recurring_id = $2
		 ORDER BY start_time ASC`,
		ownerID, recurringID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*models.EventInstance
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func (r *EventRepository) Delete(ctx context.Context, eventID, ownerID int64) error {
	_, err := r.db.Pool.Exec(ctx,
		`DELETE FROM event WHERE event_id = $1 AND owner_id = $2`,
		eventID, ownerID,
	)
	return err
}

// DeleteByTemplate removes every instance the template generated and reports
// how many rows went away.
func (r *EventRepository) DeleteByTemplate(ctx context.Context, ownerID, recurringID int64) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`DELETE FROM event WHERE owner_id = $1 AND recurring_id = $2`,
		ownerID, recurringID,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// DetachByTemplate clears the template reference on every generated instance
// but keeps the rows.
func (r *EventRepository) DetachByTemplate(ctx context.Context, ownerID, recurringID int64) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE event SET recurring_id = NULL, is_recurring = FALSE
		 WHERE owner_id = $1 AND recurring_id = $2`,
		ownerID, recurringID,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanEvent(row pgx.Row) (*models.EventInstance, error) {
	ev := &models.EventInstance{}
	err := row.Scan(&ev.EventID, &ev.OwnerID, &ev.Title, &ev.Description, &ev.Location,
		&ev.Category, &ev.Priority, &ev.StartTime, &ev.EndTime, &ev.RecurringID,
		&ev.IsRecurring, &ev.SourceType, &ev.CreatedAt)
	if err != nil {
		return nil, err
	}
	return ev, nil
}
