package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sqlbuilder "github.com/huandu/go-sqlbuilder"
	log "github.com/sirupsen/logrus"

	"instaplan/models"
)

// Journal stores every date change sent upstream. It is an audit trail,
// posts themselves are always read from the source.
type Journal struct {
	db  *sql.DB
	now func() time.Time
}

// OpenJournal opens the journal database. Run Migrate first.
func OpenJournal(database string) (*Journal, error) {
	db, err := connection(database)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	return &Journal{db: db, now: time.Now}, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

// Record inserts one date change
func (j *Journal) Record(ctx context.Context, change models.DateChange) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	createdAt := change.CreatedAt
	if createdAt.IsZero() {
		createdAt = j.now()
	}

	ib := sqlbuilder.SQLite.NewInsertBuilder()
	ib.InsertInto("date_changes").
		Cols("id", "post_id", "source_id", "container_id", "property", "new_date", "status", "error", "created_at").
		Values(change.Id, change.PostId, change.SourceId, change.ContainerId, change.Property,
			change.NewDate.String(), change.Status, change.Error, createdAt.UnixMilli())
	query, args := ib.Build()

	if _, err := j.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to record date change: %w", err)
	}

	log.WithFields(log.Fields{
		"id":     change.Id,
		"post":   change.PostId,
		"status": change.Status,
	}).Debug("Recorded date change")
	return nil
}

// ListOptions narrows a journal listing. Zero values match everything.
type ListOptions struct {
	PostId   string
	SourceId string
	Limit    int
}

const defaultListLimit = 50

// List returns journal entries, newest first
func (j *Journal) List(ctx context.Context, opts ListOptions) ([]models.DateChange, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select("id", "post_id", "source_id", "container_id", "property", "new_date", "status", "error", "created_at").
		From("date_changes")
	if opts.PostId != "" {
		sb.Where(sb.Equal("post_id", opts.PostId))
	}
	if opts.SourceId != "" {
		sb.Where(sb.Equal("source_id", opts.SourceId))
	}
	sb.OrderBy("created_at").Desc().Limit(limit)
	query, args := sb.Build()

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list date changes: %w", err)
	}
	defer rows.Close()

	changes := make([]models.DateChange, 0)
	for rows.Next() {
		var (
			change    models.DateChange
			newDate   string
			createdAt int64
		)
		if err := rows.Scan(&change.Id, &change.PostId, &change.SourceId, &change.ContainerId,
			&change.Property, &newDate, &change.Status, &change.Error, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan date change: %w", err)
		}
		if change.NewDate, err = models.ParseDate(newDate); err != nil {
			return nil, fmt.Errorf("corrupt date change %s: %w", change.Id, err)
		}
		change.CreatedAt = time.UnixMilli(createdAt).UTC()
		changes = append(changes, change)
	}
	return changes, rows.Err()
}
