package repository

import (
	"context"
	"database/sql"
	"feeder_control"
	"strings"
	"time"

	"github.com/google/uuid"
)

type HistorySQLite struct {
	db *sql.DB
}

func NewHistorySQLite(db *sql.DB) *HistorySQLite { return &HistorySQLite{db: db} }

// Append inserts a finished feeding cycle. If ID or OccurredAt are empty,
// they're set.
func (r *HistorySQLite) Append(ctx context.Context, rec feeder_control.FeedRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.OccurredAt.IsZero() {
		rec.OccurredAt = time.Now().UTC()
	} else {
		rec.OccurredAt = rec.OccurredAt.UTC()
	}

	var reasonPtr *string
	if rec.AlarmReason != "" {
		reasonPtr = &rec.AlarmReason
	}

	// Insert with SQLite TIMESTAMP format "YYYY-MM-DD HH:MM:SS"
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO feed_history (id, occurred_at, feed_cycle, target_weight, actual_weight, duration_s, alarm, alarm_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID,
		rec.OccurredAt.Format("2006-01-02 15:04:05"),
		rec.FeedCycle,
		rec.TargetWeight,
		rec.ActualWeight,
		rec.DurationSec,
		rec.Alarm,
		reasonPtr,
	)

	return err
}

// List returns records filtered by [from, to] (inclusive) and optionally
// only cycles that ended in an alarm, ordered ASC.
func (r *HistorySQLite) List(ctx context.Context, from, to time.Time, alarmsOnly bool) ([]feeder_control.FeedRecord, error) {
	var (
		conds []string
		args  []any
	)

	if !from.IsZero() {
		conds = append(conds, "occurred_at >= ?")
		args = append(args, from.UTC())
	}
	if !to.IsZero() {
		conds = append(conds, "occurred_at <= ?")
		args = append(args, to.UTC())
	}
	if alarmsOnly {
		conds = append(conds, "alarm = 1")
	}

	q := `SELECT id, occurred_at, feed_cycle, target_weight, actual_weight, duration_s, alarm, alarm_reason FROM feed_history`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY occurred_at ASC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]feeder_control.FeedRecord, 0, 64)
	for rows.Next() {
		var rec feeder_control.FeedRecord
		var reason sql.NullString
		if err := rows.Scan(
			&rec.ID,
			&rec.OccurredAt,
			&rec.FeedCycle,
			&rec.TargetWeight,
			&rec.ActualWeight,
			&rec.DurationSec,
			&rec.Alarm,
			&reason,
		); err != nil {
			return nil, err
		}
		rec.OccurredAt = rec.OccurredAt.UTC()
		if reason.Valid {
			rec.AlarmReason = reason.String
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Clear deletes all history rows.
func (r *HistorySQLite) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM feed_history`)
	return err
}
