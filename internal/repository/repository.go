package repository

import (
	"context"
	"database/sql"
	"feeder_control"
	"time"
)

type Authorization interface {
	Create(username, hash string) (int, error)
	GetByUsername(username string) (*feeder_control.User, error)
}

type SettingsRepo interface {
	Save(ctx context.Context, s feeder_control.FeedSettings) error
	Load(ctx context.Context) (feeder_control.FeedSettings, error)
}

type HistoryRepo interface {
	Append(ctx context.Context, rec feeder_control.FeedRecord) error
	List(ctx context.Context, from, to time.Time, alarmsOnly bool) ([]feeder_control.FeedRecord, error)
	Clear(ctx context.Context) error
}

type Repository struct {
	Settings SettingsRepo
	History  HistoryRepo
	Auth     Authorization
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		Settings: NewSettingsSQLite(db),
		History:  NewHistorySQLite(db),
		Auth:     NewUserRepository(db),
	}
}
