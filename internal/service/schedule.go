package service

import (
	"sync"
	"time"
)

const (
	// maxFeedTimes caps the daily automatic cycles.
	maxFeedTimes = 4

	// feedWindowMinutes is how long after its scheduled minute a feed time
	// still fires. Keeps a missed tick from skipping a whole cycle.
	feedWindowMinutes = 1
)

// Scheduler decides when automatic feed cycles fire: up to four daily feed
// times in minutes from midnight, each firing at most once per day. Safe
// for concurrent use.
type Scheduler struct {
	mu    sync.Mutex
	times []int
	auto  bool
	fired [maxFeedTimes]bool
	day   int // year*1000 + yearday the latches belong to
}

func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Configure replaces the feed times and the auto-feed flag. Latches reset,
// so a reconfigured time earlier today may fire again.
func (s *Scheduler) Configure(times []int, auto bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(times) > maxFeedTimes {
		times = times[:maxFeedTimes]
	}
	s.times = append([]int(nil), times...)
	s.auto = auto
	s.fired = [maxFeedTimes]bool{}
}

// ShouldFeed reports whether a feed cycle is due at now, and which one.
// A due cycle keeps reporting true until marked complete or its window
// passes; latches roll over at midnight.
func (s *Scheduler) ShouldFeed(now time.Time) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rollover(now)

	if !s.auto {
		return 0, false
	}

	minutes := now.Hour()*60 + now.Minute()
	for i, ft := range s.times {
		if s.fired[i] {
			continue
		}
		if minutes >= ft && minutes < ft+feedWindowMinutes {
			return i, true
		}
	}
	return 0, false
}

// MarkComplete latches the cycle so it cannot fire again today.
func (s *Scheduler) MarkComplete(cycle int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cycle >= 0 && cycle < maxFeedTimes {
		s.fired[cycle] = true
	}
}

func (s *Scheduler) rollover(now time.Time) {
	day := now.Year()*1000 + now.YearDay()
	if day != s.day {
		s.day = day
		s.fired = [maxFeedTimes]bool{}
	}
}
