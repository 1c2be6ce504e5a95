package service

import (
	"context"
	"time"

	"feeder_control"
	"feeder_control/internal/feeder"
	"feeder_control/internal/logger"
	"feeder_control/internal/mqtt"
	"feeder_control/internal/notify"
	"feeder_control/internal/repository"
)

type Authorization interface {
	SignUp(username, password string) (int, error)
	GenerateToken(username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Feeding exposes control operations: start/stop a cycle and manual relay
// control while stopped.
type Feeding interface {
	Start(ctx context.Context, cycle int) error
	Stop(ctx context.Context) error
	SetAuger(on bool) error
	SetChain(on bool) error
}

// Monitoring exposes the live status snapshot.
type Monitoring interface {
	Status() feeder_control.Status
}

// History exposes the append-only feed log with filtering access.
type History interface {
	List(ctx context.Context, f HistoryFilter) ([]feeder_control.FeedRecord, error)
	Clear(ctx context.Context) error
}

// Settings exposes the runtime-editable feeding parameters.
type Settings interface {
	Get(ctx context.Context) (feeder_control.FeedSettings, error)
	Update(ctx context.Context, s feeder_control.FeedSettings) error
}

// Loop runs the background control loop polling the scale and advancing
// the feeding state machine. Stop via context cancellation in main().
type Loop interface {
	Run(ctx context.Context, tick time.Duration)
}

//
// Root Service aggregates all sub-services.
//

type Service struct {
	Feeding
	Monitoring
	History
	Settings
	Loop
	Authorization
}

// Deps carries the collaborators NewService wires into the sub-services.
type Deps struct {
	Repos      *repository.Repository
	Controller *feeder.Controller
	Scale      Scale
	Notifier   notify.Notifier
	Telemetry  mqtt.Publisher
	SigningKey string
	Log        *logger.Logger
}

// NewService wires the repository layer, the controller and the instrument
// client into concrete services sharing one feedCore.
func NewService(d Deps) *Service {
	core := newFeedCore(d.Controller, d.Scale)
	sched := NewScheduler()

	feeding := NewFeedingService(core, d.Repos.Settings, d.Log)
	monitoring := NewMonitoringService(core)

	return &Service{
		Feeding:       feeding,
		Monitoring:    monitoring,
		History:       NewHistoryService(d.Repos.History),
		Settings:      NewSettingsService(d.Repos.Settings, sched),
		Loop:          NewLoopService(core, sched, feeding, monitoring, d.Repos.History, d.Repos.Settings, d.Notifier, d.Telemetry, d.Log),
		Authorization: NewAuthService(d.Repos.Auth, d.SigningKey),
	}
}
