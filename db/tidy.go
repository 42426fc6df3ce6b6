package db

import (
	"context"
	"fmt"
	"time"

	sqlbuilder "github.com/huandu/go-sqlbuilder"
	log "github.com/sirupsen/logrus"
)

// Retention is how long journal entries are kept by Tidy
const Retention = 90 * 24 * time.Hour

// Tidy removes journal entries older than Retention
func (j *Journal) Tidy(ctx context.Context) (int64, error) {
	return j.TidyBefore(ctx, j.now().Add(-Retention))
}

// TidyBefore removes entries created before cutoff and returns how many went
func (j *Journal) TidyBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	del := sqlbuilder.SQLite.NewDeleteBuilder()
	query, args := del.DeleteFrom("date_changes").Where(del.LessThan("created_at", cutoff.UnixMilli())).Build()

	log.WithFields(log.Fields{
		"cutoff": cutoff.Format(time.RFC3339),
	}).Info("Tidying journal")

	res, err := j.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to tidy journal: %w", err)
	}
	return res.RowsAffected()
}
