package service

import (
	"sync"
	"time"

	"feeder_control/internal/bintrac"
	"feeder_control/internal/feeder"
)

// Scale is the weight-instrument surface the services need. Implemented by
// *bintrac.Client; tests substitute a fake.
type Scale interface {
	ReadAllBins() ([bintrac.NumBins]float64, error)
	Reconnect() bool
	IsConnected() bool
	LastError() string
}

// feedCore is the feeding state shared between the control loop and the
// HTTP surface: one controller, one scale, the latest bin weights. The
// controller itself is not synchronized, so every touch goes through mu.
type feedCore struct {
	mu         sync.Mutex
	controller *feeder.Controller
	scale      Scale

	binWeights  [bintrac.NumBins]float64
	totalWeight float64
	lastUpdate  time.Time
	feedCycle   int // cycle index of the session in progress
}

func newFeedCore(ctrl *feeder.Controller, scale Scale) *feedCore {
	return &feedCore{controller: ctrl, scale: scale}
}
