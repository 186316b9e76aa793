package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/sqlbridge/internal/infrastructure/database"
)

// writeConfig writes a minimal config with MQTT and InfluxDB disabled.
func writeConfig(t *testing.T, dir, dbPath, extra string) string {
	t.Helper()

	configPath := filepath.Join(dir, "test-config.yaml")
	content := `
database:
  path: "` + dbPath + `"
  driver: sqlite3
  wal_mode: true
  busy_timeout: 5
` + extra + `
bridge:
  name: "test"
  shutdown_timeout: 5

mqtt:
  enabled: false

influxdb:
  enabled: false

monitor:
  interval: 1

logging:
  level: debug
  format: text
  output: stderr
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv(configEnv, "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_MissingDatabasePath verifies run fails when database path is empty.
func TestRun_MissingDatabasePath(t *testing.T) {
	t.Setenv(configEnv, writeConfig(t, t.TempDir(), "", ""))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with empty database path")
	}
}

// TestRun_StartupAndShutdown runs the full lifecycle with only the database.
func TestRun_StartupAndShutdown(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "data", "test.db")
	t.Setenv(configEnv, writeConfig(t, dir, dbPath, ""))

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	if err := run(ctx); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("database file not created: %v", err)
	}
}

// TestRun_AppliesMigrations verifies migrations_dir is applied on startup.
func TestRun_AppliesMigrations(t *testing.T) {
	dir := t.TempDir()
	migrationsDir := filepath.Join(dir, "migrations")
	if err := os.MkdirAll(migrationsDir, 0750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	up := "CREATE TABLE widgets (id INTEGER PRIMARY KEY);"
	if err := os.WriteFile(filepath.Join(migrationsDir, "20260301_000000_widgets.up.sql"), []byte(up), 0600); err != nil {
		t.Fatalf("write migration: %v", err)
	}

	dbPath := filepath.Join(dir, "test.db")
	t.Setenv(configEnv, writeConfig(t, dir, dbPath, `  migrations_dir: "`+migrationsDir+`"`))

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	if err := run(ctx); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	db, err := database.Open(database.Config{Path: dbPath}, database.Options{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close() //nolint:errcheck // Test cleanup

	n, err := database.Delegate(context.Background(), db, func(r database.Reader) (int, error) {
		var n int
		err := r.QueryRowContext(context.Background(),
			"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'widgets'").Scan(&n)
		return n, err
	})
	if err != nil {
		t.Fatalf("query error = %v", err)
	}
	if n != 1 {
		t.Error("widgets table was not created by startup migrations")
	}
}

// TestGetConfigPath_Default verifies default config path.
func TestGetConfigPath_Default(t *testing.T) {
	t.Setenv(configEnv, "")

	if path := getConfigPath(); path != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", path, defaultConfigPath)
	}
}

// TestGetConfigPath_EnvOverride verifies environment variable override.
func TestGetConfigPath_EnvOverride(t *testing.T) {
	expected := "/custom/path/config.yaml"
	t.Setenv(configEnv, expected)

	if path := getConfigPath(); path != expected {
		t.Errorf("getConfigPath() = %q, want %q", path, expected)
	}
}

func TestNewInstanceID(t *testing.T) {
	a, b := newInstanceID(), newInstanceID()
	if len(a) != instanceIDLength {
		t.Errorf("len(newInstanceID()) = %d, want %d", len(a), instanceIDLength)
	}
	if a == b {
		t.Errorf("two instance IDs collided: %q", a)
	}
}

// TestHealthCheck_NilSinks verifies disabled sinks are skipped.
func TestHealthCheck_NilSinks(t *testing.T) {
	db, err := database.OpenMemory(database.Options{})
	if err != nil {
		t.Fatalf("OpenMemory() error = %v", err)
	}
	defer db.Close() //nolint:errcheck // Test cleanup

	if err := healthCheck(context.Background(), db, nil, nil); err != nil {
		t.Errorf("healthCheck() error = %v", err)
	}
}

func TestCloseDatabase(t *testing.T) {
	for _, timeout := range []time.Duration{0, 5 * time.Second} {
		db, err := database.OpenMemory(database.Options{})
		if err != nil {
			t.Fatalf("OpenMemory() error = %v", err)
		}
		if err := closeDatabase(db, timeout); err != nil {
			t.Errorf("closeDatabase(timeout=%v) error = %v", timeout, err)
		}
	}
}
