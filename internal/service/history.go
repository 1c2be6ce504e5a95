package service

import (
	"context"
	"errors"
	"time"

	"feeder_control"
	"feeder_control/internal/repository"
)

// HistoryFilter narrows a history query by time range and alarm outcome.
type HistoryFilter struct {
	From       time.Time // inclusive; zero means no lower bound
	To         time.Time // inclusive; zero means no upper bound
	AlarmsOnly bool
}

var errInvalidTimeRange = errors.New("invalid time range: From must be <= To")

type HistoryService struct {
	historyRepo repository.HistoryRepo
}

func NewHistoryService(historyRepo repository.HistoryRepo) *HistoryService {
	return &HistoryService{historyRepo: historyRepo}
}

// normalizeToUTC returns t in UTC, preserving zero time values.
func normalizeToUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

func (s *HistoryService) List(ctx context.Context, f HistoryFilter) ([]feeder_control.FeedRecord, error) {
	from := normalizeToUTC(f.From)
	to := normalizeToUTC(f.To)

	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return nil, errInvalidTimeRange
	}

	return s.historyRepo.List(ctx, from, to, f.AlarmsOnly)
}

func (s *HistoryService) Clear(ctx context.Context) error {
	return s.historyRepo.Clear(ctx)
}
