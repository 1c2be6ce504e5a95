package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"feeder_control"
)

func validSettings() feeder_control.FeedSettings {
	return feeder_control.FeedSettings{
		TargetWeight:    2000,
		ChainPreRunSec:  10,
		MaxRuntimeSec:   1800,
		FillThreshold:   50,
		FillSettlingSec: 120,
		RateThreshold:   10,
		FeedTimes:       []int{360, 1080},
		AutoFeed:        true,
	}
}

func TestSettingsService_Get_DefaultsWhenEmpty(t *testing.T) {
	svc := NewSettingsService(&fakeSettingsRepo{}, NewScheduler())

	got, err := svc.Get(context.Background())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	want := defaultSettings()
	if got.TargetWeight != want.TargetWeight || got.MaxRuntimeSec != want.MaxRuntimeSec {
		t.Fatalf("expected defaults, got %+v", got)
	}
}

func TestSettingsService_Update_PersistsAndConfiguresScheduler(t *testing.T) {
	repo := &fakeSettingsRepo{}
	sched := NewScheduler()
	svc := NewSettingsService(repo, sched)

	if err := svc.Update(context.Background(), validSettings()); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if len(repo.saved) != 1 {
		t.Fatalf("expected 1 save, got %d", len(repo.saved))
	}
	saved := repo.saved[0]
	if saved.ID != 1 {
		t.Fatalf("settings row id must be forced to 1, got %d", saved.ID)
	}
	if saved.UpdatedAt.IsZero() {
		t.Fatalf("UpdatedAt must be set")
	}

	// The scheduler picked up the new times and auto-feed flag.
	now := time.Date(2025, 6, 1, 6, 0, 0, 0, time.UTC)
	if cycle, due := sched.ShouldFeed(now); !due || cycle != 0 {
		t.Fatalf("scheduler not configured: cycle=%d due=%v", cycle, due)
	}
}

func TestSettingsService_Update_Validation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*feeder_control.FeedSettings)
	}{
		{"zero target", func(s *feeder_control.FeedSettings) { s.TargetWeight = 0 }},
		{"zero runtime", func(s *feeder_control.FeedSettings) { s.MaxRuntimeSec = 0 }},
		{"negative pre-run", func(s *feeder_control.FeedSettings) { s.ChainPreRunSec = -1 }},
		{"zero fill threshold", func(s *feeder_control.FeedSettings) { s.FillThreshold = 0 }},
		{"zero rate threshold", func(s *feeder_control.FeedSettings) { s.RateThreshold = 0 }},
		{"too many feed times", func(s *feeder_control.FeedSettings) { s.FeedTimes = []int{0, 1, 2, 3, 4} }},
		{"feed time out of range", func(s *feeder_control.FeedSettings) { s.FeedTimes = []int{1440} }},
		{"negative feed time", func(s *feeder_control.FeedSettings) { s.FeedTimes = []int{-1} }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &fakeSettingsRepo{}
			svc := NewSettingsService(repo, NewScheduler())

			s := validSettings()
			tc.mutate(&s)

			if err := svc.Update(context.Background(), s); err == nil {
				t.Fatalf("expected validation error")
			}
			if len(repo.saved) != 0 {
				t.Fatalf("invalid settings must not be saved")
			}
		})
	}
}

func TestSettingsService_Update_SaveErrorIsPropagated(t *testing.T) {
	repo := &fakeSettingsRepo{saveErr: errors.New("db down")}
	svc := NewSettingsService(repo, NewScheduler())

	if err := svc.Update(context.Background(), validSettings()); err == nil {
		t.Fatalf("expected error, got nil")
	}
}

func TestHistoryService_List_RejectsInvertedRange(t *testing.T) {
	svc := NewHistoryService(&fakeHistoryRepo{})

	_, err := svc.List(context.Background(), HistoryFilter{
		From: time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	if !errors.Is(err, errInvalidTimeRange) {
		t.Fatalf("expected errInvalidTimeRange, got %v", err)
	}
}

func TestHistoryService_ClearDelegates(t *testing.T) {
	repo := &fakeHistoryRepo{}
	svc := NewHistoryService(repo)

	if err := svc.Clear(context.Background()); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if repo.cleared != 1 {
		t.Fatalf("expected 1 clear call, got %d", repo.cleared)
	}
}
