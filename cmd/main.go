package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"feeder_control"
	"feeder_control/internal/bintrac"
	"feeder_control/internal/feeder"
	"feeder_control/internal/handlers"
	"feeder_control/internal/logger"
	"feeder_control/internal/mqtt"
	"feeder_control/internal/notify"
	"feeder_control/internal/relay"
	"feeder_control/internal/repository"
	"feeder_control/internal/repository/db"
	"feeder_control/internal/server"
	"feeder_control/internal/service"

	"github.com/spf13/viper"
)

const defaultLoopTick = 1 * time.Second

// serviceBridge lets the Telegram bot reach services that are wired after
// the notifier. Set before any goroutine starts.
type serviceBridge struct {
	s *service.Service
}

func (b *serviceBridge) Status() feeder_control.Status  { return b.s.Monitoring.Status() }
func (b *serviceBridge) Stop(ctx context.Context) error { return b.s.Feeding.Stop(ctx) }

func main() {
	// init logger
	log := logger.Get(logger.InfoLevel)

	// load config.yml
	if err := loadConfig(); err != nil {
		log.Fatalw("error reading config", "err", err)
	}

	signingKey := viper.GetString("auth.signing_key")
	if signingKey == "" {
		log.Fatalw("auth.signing_key must be set in config")
	}

	// open DB
	database, err := openDB(log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := database.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	// wire hardware: relays and the weight instrument
	augerSwitch := newSwitch(relay.OffsetAuger, log)
	chainSwitch := newSwitch(relay.OffsetChain, log)
	scale := bintrac.NewClient(
		viper.GetString("bintrac.addr"),
		byte(viper.GetInt("bintrac.device_id")),
		log.Named("bintrac"),
	)

	controller := feeder.NewController(chainSwitch, augerSwitch, log.Named("feeder"))

	// notifications and telemetry
	bridge := &serviceBridge{}
	notifier, telegram := newNotifier(bridge, log)
	telemetry := newTelemetry(log)
	defer func() { _ = telemetry.Close() }()

	// wire dependencies
	repos := repository.NewRepository(database)
	services := service.NewService(service.Deps{
		Repos:      repos,
		Controller: controller,
		Scale:      scale,
		Notifier:   notifier,
		Telemetry:  telemetry,
		SigningKey: signingKey,
		Log:        log,
	})
	bridge.s = services
	apiHandler := handlers.NewHandler(services, log)

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// start the control loop
	go services.Loop.Run(ctx, loopTick())

	// start the bot listener, if configured
	if telegram != nil {
		go telegram.Listen(ctx)
	}

	// start HTTP server
	srv := &server.Server{}
	runHTTPServer(srv, viper.GetString("port"), apiHandler, log)

	// graceful shutdown
	waitForShutdown(cancel, srv, log)
}

func loadConfig() error {
	viper.AddConfigPath("configs") // configs/config.yml
	viper.SetConfigName("config")
	return viper.ReadInConfig()
}

// openDB initializes the SQLite database using configuration.
func openDB(log *logger.Logger) (*sql.DB, error) {
	dbPath := viper.GetString("db.path")
	if dbPath == "" {
		log.Infow("db.path not set in config; using default file", "default", "feeder.db")
		dbPath = "feeder.db"
	}
	return db.InitDB(dbPath)
}

func loopTick() time.Duration {
	if d := viper.GetDuration("loop.tick"); d > 0 {
		return d
	}
	return defaultLoopTick
}

// newSwitch opens a GPIO line, falling back to a no-op switch when GPIO is
// disabled or unavailable (development machines, tests).
func newSwitch(offset int, log *logger.Logger) relay.Switch {
	if !viper.GetBool("gpio.enabled") {
		log.Infow("gpio disabled; using fake switch", "offset", offset)
		return relay.NewFakeSwitch()
	}
	chip := viper.GetString("gpio.chip")
	if chip == "" {
		chip = "gpiochip0"
	}
	sw, err := relay.NewRealSwitch(chip, offset)
	if err != nil {
		log.Warnw("gpio open failed; using fake switch", "chip", chip, "offset", offset, "err", err)
		return relay.NewFakeSwitch()
	}
	return sw
}

// newNotifier builds the Telegram notifier when a bot token is configured,
// otherwise a no-op. The *Telegram is returned separately so main can start
// its command listener.
func newNotifier(bridge *serviceBridge, log *logger.Logger) (notify.Notifier, *notify.Telegram) {
	token := viper.GetString("telegram.token")
	if token == "" {
		log.Infow("telegram.token not set; notifications disabled")
		return notify.Nop{}, nil
	}
	tg, err := notify.NewTelegram(
		token,
		viper.GetInt64("telegram.chat_id"),
		viper.GetStringSlice("telegram.allowed_users"),
		bridge,
		bridge,
		log.Named("telegram"),
	)
	if err != nil {
		log.Warnw("telegram init failed; notifications disabled", "err", err)
		return notify.Nop{}, nil
	}
	return tg, tg
}

// newTelemetry connects to the MQTT broker when one is configured,
// otherwise publishes into a discard sink.
func newTelemetry(log *logger.Logger) mqtt.Publisher {
	broker := viper.GetString("mqtt.broker")
	if broker == "" {
		log.Infow("mqtt.broker not set; telemetry disabled")
		return mqtt.NopPublisher{}
	}
	pub, err := mqtt.NewRealPublisher(broker)
	if err != nil {
		log.Warnw("mqtt connect failed; telemetry disabled", "broker", broker, "err", err)
		return mqtt.NopPublisher{}
	}
	return pub
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if port == "" {
			port = "8080"
		}
		if err := srv.Run(port, handler.InitRoutes()); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// stop background goroutines
	cancel()

	// allow in-flight requests to complete
	ctx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalw("server forced to shutdown", "err", err)
	}
}
