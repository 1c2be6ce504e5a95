package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"feeder_control"
	"time"
)

type SettingsSQLite struct {
	db *sql.DB
}

func NewSettingsSQLite(db *sql.DB) *SettingsSQLite {
	return &SettingsSQLite{db: db}
}

const (
	feedSettingsRowID = 1

	insertOrUpdateSettingsSQL = `
		INSERT INTO feed_settings (id, target_weight, chain_pre_run_s, max_runtime_s, fill_threshold, fill_settling_s, rate_threshold, feed_times, auto_feed, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			target_weight=excluded.target_weight,
			chain_pre_run_s=excluded.chain_pre_run_s,
			max_runtime_s=excluded.max_runtime_s,
			fill_threshold=excluded.fill_threshold,
			fill_settling_s=excluded.fill_settling_s,
			rate_threshold=excluded.rate_threshold,
			feed_times=excluded.feed_times,
			auto_feed=excluded.auto_feed,
			updated_at=excluded.updated_at
	`

	selectSettingsSQL = `
		SELECT id, target_weight, chain_pre_run_s, max_runtime_s, fill_threshold, fill_settling_s, rate_threshold, feed_times, auto_feed, updated_at
		FROM feed_settings WHERE id=?
	`
)

// marshalFeedTimes converts the minutes-from-midnight slice to a JSON string.
func marshalFeedTimes(times []int) (string, error) {
	b, err := json.Marshal(times)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// unmarshalFeedTimes parses a JSON string into a slice.
func unmarshalFeedTimes(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	var times []int
	if err := json.Unmarshal([]byte(s), &times); err != nil {
		return nil, err
	}
	return times, nil
}

// Save updates or inserts the feed_settings row (id always 1).
func (r *SettingsSQLite) Save(ctx context.Context, s feeder_control.FeedSettings) error {
	timesJSONStr, err := marshalFeedTimes(s.FeedTimes)
	if err != nil {
		return err
	}

	// ensure UpdatedAt is always persisted as UTC; set if zero
	tsUTC := s.UpdatedAt
	if tsUTC.IsZero() {
		tsUTC = time.Now().UTC()
	} else {
		tsUTC = tsUTC.UTC()
	}

	_, err = r.db.ExecContext(ctx, insertOrUpdateSettingsSQL,
		feedSettingsRowID,
		s.TargetWeight,
		s.ChainPreRunSec,
		s.MaxRuntimeSec,
		s.FillThreshold,
		s.FillSettlingSec,
		s.RateThreshold,
		timesJSONStr,
		s.AutoFeed,
		tsUTC,
	)
	return err
}

// Load fetches the single feed_settings row (id=1).
func (r *SettingsSQLite) Load(ctx context.Context) (feeder_control.FeedSettings, error) {
	row := r.db.QueryRowContext(ctx, selectSettingsSQL, feedSettingsRowID)

	var s feeder_control.FeedSettings
	var timesJSONStr string
	if err := row.Scan(
		&s.ID,
		&s.TargetWeight,
		&s.ChainPreRunSec,
		&s.MaxRuntimeSec,
		&s.FillThreshold,
		&s.FillSettlingSec,
		&s.RateThreshold,
		&timesJSONStr,
		&s.AutoFeed,
		&s.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return feeder_control.FeedSettings{}, nil // no settings saved yet
		}
		return feeder_control.FeedSettings{}, err
	}

	times, err := unmarshalFeedTimes(timesJSONStr)
	if err != nil {
		return feeder_control.FeedSettings{}, err
	}
	s.FeedTimes = times
	s.UpdatedAt = s.UpdatedAt.UTC()

	return s, nil
}
