// relayshell - remote relay control shell
//
// relayshell drives a controller's relay outputs (an indicator LED and a
// bank of fans) and exposes them over a plain-text TCP shell on port 23.
// A built-in weekday schedule switches the fans, and the schedule switch
// persists across restarts in a local SQLite database.
//
// For the full command list connect with any telnet client and type "?".
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	_ "github.com/nerrad567/relayshell/migrations"

	"github.com/nerrad567/relayshell/internal/audit"
	"github.com/nerrad567/relayshell/internal/clock"
	"github.com/nerrad567/relayshell/internal/command"
	"github.com/nerrad567/relayshell/internal/device"
	"github.com/nerrad567/relayshell/internal/hardware"
	"github.com/nerrad567/relayshell/internal/infrastructure/config"
	"github.com/nerrad567/relayshell/internal/infrastructure/database"
	"github.com/nerrad567/relayshell/internal/infrastructure/influxdb"
	"github.com/nerrad567/relayshell/internal/infrastructure/logging"
	"github.com/nerrad567/relayshell/internal/infrastructure/mqtt"
	"github.com/nerrad567/relayshell/internal/netcheck"
	"github.com/nerrad567/relayshell/internal/process"
	"github.com/nerrad567/relayshell/internal/schedule"
	"github.com/nerrad567/relayshell/internal/server"
	"github.com/nerrad567/relayshell/internal/settings"
	"github.com/nerrad567/relayshell/internal/shell"
	"github.com/nerrad567/relayshell/internal/telemetry"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default file locations.
const (
	defaultConfigPath = "configs/config.yaml"
	defaultEnvPath    = ".env"
)

// Periodic task intervals.
const (
	// auditPruneInterval is how often expired audit entries are removed.
	auditPruneInterval = 24 * time.Hour

	// healthCheckInterval is how often the database and telemetry sinks are checked.
	healthCheckInterval = 15 * time.Minute
)

// component is a dependency checked by the health task.
type component struct {
	name  string
	check func(ctx context.Context) error
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := run(ctx)
	cancel()

	if errors.Is(err, server.ErrRebootRequested) {
		err = process.Reexec()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, server.ErrRebootRequested when a
//     session asked for a restart, or an error describing the failure
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting relayshell",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	envPath := getEnvPath()
	if err := godotenv.Load(envPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("loading env file %s: %w", envPath, err)
	}

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version).With("site", cfg.Site.ID)
	log.Info("configuration loaded", "path", configPath)

	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database ready", "path", cfg.Database.Path)

	gpio, closeGPIO, err := openGPIO(cfg)
	if err != nil {
		return fmt.Errorf("opening gpio: %w", err)
	}
	defer closeGPIO()
	log.Info("gpio ready", "driver", cfg.GPIO.Driver)

	location, err := time.LoadLocation(cfg.Site.Timezone)
	if err != nil {
		return fmt.Errorf("loading timezone: %w", err)
	}
	sysClock := clock.NewSystem(cfg.Clock.NTPServer, location)
	if cfg.Clock.NTPServer != "" {
		if syncErr := sysClock.Resync(ctx); syncErr != nil {
			log.Warn("initial clock resync failed, using host time", "error", syncErr)
		} else {
			log.Info("clock synchronised", "server", cfg.Clock.NTPServer, "offset", sysClock.Offset())
		}
	}

	state := device.NewState(gpio, device.DefaultOutputs)
	state.SetLogger(log.With("component", "device"))

	registry := command.NewRegistry(device.DefaultOutputs)
	dispatcher := command.NewDispatcher(registry, state, sysClock)
	dispatcher.SetLogger(log.With("component", "command"))
	dispatcher.SetSiteName(cfg.Site.Name)

	store := settings.NewStore(db.DB)
	dispatcher.SetSettings(store)
	scheduleEnabled, loadErr := store.LoadBool(ctx, settings.KeyScheduleEnabled, cfg.Schedule.Enabled)
	if loadErr != nil {
		log.Warn("reading schedule setting failed, using config default", "error", loadErr)
		dispatcher.AddNotice(fmt.Sprintf("Warning: schedule setting could not be read: %v", loadErr))
	}
	state.SetScheduleEnabled(scheduleEnabled, device.SourceStartup)

	var tasks []server.Task
	var sessions server.SessionRecorder
	if cfg.Audit.Enabled {
		trail := audit.NewTrail(audit.NewSQLiteRepository(db.DB), sysClock, cfg.GetAuditRetention())
		trail.SetLogger(log.With("component", "audit"))
		state.AddObserver(trail)
		sessions = trail
		if last, lastErr := trail.LastSession(ctx); lastErr != nil {
			log.Warn("reading last session failed", "error", lastErr)
		} else if last != nil {
			log.Info("previous session",
				"remote", last.Remote,
				"reason", last.Details["reason"],
				"closed_at", last.CreatedAt,
			)
		}
		tasks = append(tasks, clock.NewTask("audit_prune", auditPruneInterval, sysClock.Now(), trail.Prune))
		log.Info("audit trail enabled", "retention_days", cfg.Audit.RetentionDays)
	}

	recorder, sinks, closeTelemetry := startTelemetry(ctx, cfg, sysClock, log)
	defer closeTelemetry()
	if recorder != nil {
		state.AddObserver(recorder)
	}

	// Observers are registered, so the retained flags and the audit trail
	// start from the values in effect.
	state.Announce(device.SourceStartup)

	components := append([]component{{name: "database", check: db.HealthCheck}}, sinks...)
	tasks = append(tasks, clock.NewTask("health_check", healthCheckInterval, sysClock.Now(), healthCheck(components)))

	if cfg.Sensor.Enabled {
		w1 := hardware.NewW1Sensor(cfg.Sensor.DeviceGlob)
		if recorder != nil {
			dispatcher.SetSensor(telemetry.NewSensor(w1, recorder))
		} else {
			dispatcher.SetSensor(w1)
		}
		log.Info("temperature sensor enabled", "glob", cfg.Sensor.DeviceGlob)
	}

	scheduler := schedule.New(state, cfg.Schedule.Output, schedule.DefaultMarks)
	scheduler.SetLogger(log.With("component", "schedule"))

	checker := netcheck.New(netcheck.Config{
		ProbeAddress:     cfg.Network.ProbeAddress,
		ProbeTimeout:     cfg.GetProbeTimeout(),
		ReconnectCommand: cfg.Network.ReconnectCommand,
		ReconnectTimeout: cfg.GetReconnectTimeout(),
	})
	checker.SetLogger(log.With("component", "netcheck"))

	if cfg.Clock.NTPServer != "" {
		tasks = append(tasks, clock.NewTask("clock_resync", cfg.GetResyncInterval(), sysClock.Now(), sysClock.Resync))
	}

	srv, err := server.New(server.Deps{
		Config: server.Config{
			Address:       cfg.ListenAddress(),
			AcceptTimeout: cfg.GetAcceptTimeout(),
			Session: shell.Config{
				Prompt:       cfg.Shell.Prompt,
				IdleTimeout:  cfg.GetIdleTimeout(),
				PollInterval: cfg.GetPollInterval(),
			},
		},
		Logger:     log,
		Dispatcher: dispatcher,
		Completer:  registry,
		Scheduler:  scheduler,
		Clock:      sysClock,
		Network:    checker,
		Tasks:      tasks,
		Sessions:   sessions,
	})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	log.Info("initialisation complete")
	err = srv.Run(ctx)
	switch {
	case errors.Is(err, server.ErrRebootRequested):
		log.Info("reboot requested, restarting")
		return err
	case err != nil:
		return fmt.Errorf("running server: %w", err)
	}

	log.Info("relayshell stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses RELAYSHELL_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("RELAYSHELL_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// getEnvPath returns the optional dotenv file path.
// Uses RELAYSHELL_ENV_FILE environment variable if set, otherwise default.
func getEnvPath() string {
	if path := os.Getenv("RELAYSHELL_ENV_FILE"); path != "" {
		return path
	}
	return defaultEnvPath
}

// openGPIO returns the relay driver selected by cfg and a function that
// releases it.
func openGPIO(cfg *config.Config) (device.GPIO, func(), error) {
	switch cfg.GPIO.Driver {
	case config.GPIODriverGPIOCDev:
		lines, err := hardware.OpenGPIO(cfg.GPIO.Chip, cfg.GPIO.Lines)
		if err != nil {
			return nil, nil, err
		}
		release := func() {
			lines.Close() //nolint:errcheck // Shutdown path
		}
		return lines, release, nil
	default:
		return device.NewMemoryGPIO(device.DefaultOutputs), func() {}, nil
	}
}

// healthCheck returns a task function that checks every component and
// reports the failures joined, each prefixed with the component name.
func healthCheck(components []component) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		var errs []error
		for _, c := range components {
			if err := c.check(ctx); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
			}
		}
		return errors.Join(errs...)
	}
}

// startTelemetry connects the enabled telemetry sinks. A sink that fails
// to connect is logged and skipped. It returns a nil Recorder when no sink
// is available.
//
// Parameters:
//   - ctx: Context for connection attempts
//   - cfg: Application configuration
//   - clk: Timestamp source for recorded changes
//   - log: Logger instance
//
// Returns:
//   - *telemetry.Recorder: Recorder to register as a state observer, or nil
//   - []component: Health checks for the connected sinks
//   - func(): Closes every connected sink
func startTelemetry(ctx context.Context, cfg *config.Config, clk telemetry.Clock, log *logging.Logger) (*telemetry.Recorder, []component, func()) {
	var (
		publisher telemetry.Publisher
		history   telemetry.History
		checks    []component
		closers   []func()
	)

	if cfg.MQTT.Enabled {
		mqttClient, err := mqtt.Connect(ctx, cfg.MQTT, cfg.Site.ID)
		if err != nil {
			log.Warn("MQTT unavailable, state will not be published", "error", err)
		} else {
			mqttClient.SetLogger(log.With("component", "mqtt"))
			publisher = mqttClient
			checks = append(checks, component{name: "mqtt", check: mqttClient.HealthCheck})
			closers = append(closers, func() {
				log.Info("disconnecting from MQTT")
				if closeErr := mqttClient.Close(); closeErr != nil {
					log.Error("error closing MQTT", "error", closeErr)
				}
			})
			log.Info("MQTT connected",
				"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
				"client_id", cfg.MQTT.Broker.ClientID,
			)
		}
	}

	if cfg.InfluxDB.Enabled {
		influxClient, err := influxdb.Connect(ctx, cfg.InfluxDB, cfg.Site.ID)
		if err != nil {
			log.Warn("InfluxDB unavailable, history will not be written", "error", err)
		} else {
			influxClient.SetOnError(func(err error) {
				log.Error("InfluxDB write error", "error", err)
			})
			history = influxClient
			checks = append(checks, component{name: "influxdb", check: influxClient.HealthCheck})
			closers = append(closers, func() {
				log.Info("closing InfluxDB connection")
				if closeErr := influxClient.Close(); closeErr != nil {
					log.Error("error closing InfluxDB", "error", closeErr)
				}
			})
			log.Info("InfluxDB connected",
				"url", cfg.InfluxDB.URL,
				"org", cfg.InfluxDB.Org,
				"bucket", cfg.InfluxDB.Bucket,
			)
		}
	}

	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if publisher == nil && history == nil {
		return nil, nil, closeAll
	}

	recorder := telemetry.NewRecorder(publisher, history, clk)
	recorder.SetLogger(log.With("component", "telemetry"))
	return recorder, checks, closeAll
}
