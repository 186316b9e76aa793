// sqlbridge hosts a single SQLite connection on a dedicated worker thread
// and reports the worker's health over MQTT and InfluxDB.
//
// The process opens the configured database, applies pending migrations,
// publishes bridge statistics on an interval and shuts down cleanly on
// SIGINT or SIGTERM, running every queued operation before the connection
// is closed.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/sqlbridge/internal/infrastructure/config"
	"github.com/nerrad567/sqlbridge/internal/infrastructure/database"
	"github.com/nerrad567/sqlbridge/internal/infrastructure/influxdb"
	"github.com/nerrad567/sqlbridge/internal/infrastructure/logging"
	"github.com/nerrad567/sqlbridge/internal/infrastructure/mqtt"
	"github.com/nerrad567/sqlbridge/internal/monitor"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const (
	defaultConfigPath = "configs/config.yaml"
	configEnv         = "SQLBRIDGE_CONFIG"

	// instanceIDLength is how much of the generated UUID names this process.
	instanceIDLength = 8
)

// errShutdownTimeout is returned when queued work outlives the shutdown budget.
var errShutdownTimeout = errors.New("database shutdown timed out")

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the application logic, separated from main for testability.
func run(ctx context.Context) error {
	log := logging.Default()

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	defer log.Close() //nolint:errcheck // Nothing left to report to

	instance := newInstanceID()
	log = log.With("instance", instance)
	log.Info("starting sqlbridge",
		"version", version,
		"commit", commit,
		"build_date", date,
		"config", configPath,
	)

	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		Driver:      cfg.Database.Driver,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	}, database.Options{
		Name:   cfg.Bridge.Name,
		Logger: log,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database", "queued", db.Stats().Queued)
		if closeErr := closeDatabase(db, cfg.GetShutdownTimeout()); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database opened", "path", db.Path(), "driver", cfg.Database.Driver)

	if cfg.Database.MigrationsDir != "" {
		applied, migrateErr := db.Migrate(ctx, os.DirFS(cfg.Database.MigrationsDir), ".")
		if migrateErr != nil {
			return fmt.Errorf("running migrations: %w", migrateErr)
		}
		log.Info("database migrations complete", "applied", applied)
	}

	reporter := monitor.New(db, monitor.Config{
		Interval: cfg.GetMonitorInterval(),
		Logger:   log,
	})

	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT, instance)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		reporter.AddSink("mqtt", monitor.SinkFunc(mqttClient.PublishStats))
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		)
	} else {
		log.Info("MQTT disabled")
	}

	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB, instance)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		reporter.AddSink("influxdb", monitor.SinkFunc(influxClient.WriteStats))
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	if cfg.Monitor.Interval > 0 {
		if err := reporter.Start(ctx); err != nil {
			return fmt.Errorf("starting stats reporter: %w", err)
		}
		defer reporter.Stop()
		log.Info("stats reporter started", "interval", cfg.GetMonitorInterval())
	}

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse: reporter, InfluxDB, MQTT, database.
	return nil
}

// getConfigPath returns SQLBRIDGE_CONFIG if set, otherwise the default path.
func getConfigPath() string {
	if path := os.Getenv(configEnv); path != "" {
		return path
	}
	return defaultConfigPath
}

func newInstanceID() string {
	return uuid.New().String()[:instanceIDLength]
}

// healthCheck verifies the database and every enabled sink. Nil clients
// are skipped.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}

// closeDatabase closes db, giving queued operations up to timeout to run.
// The worker keeps draining in the background if the timeout expires. A
// zero timeout waits indefinitely.
func closeDatabase(db *database.DB, timeout time.Duration) error {
	if timeout <= 0 {
		return db.Close()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- db.Close()
	}()

	select {
	case err := <-errCh:
		return err
	case <-time.After(timeout):
		return fmt.Errorf("%w after %v", errShutdownTimeout, timeout)
	}
}
