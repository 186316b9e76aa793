package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver (cgo)
	_ "modernc.org/sqlite"          // SQLite driver (pure Go)

	"github.com/nerrad567/sqlbridge/internal/bridge"
)

// Driver names accepted in Config.Driver.
const (
	// DriverCGO is github.com/mattn/go-sqlite3. Supports custom functions.
	DriverCGO = "sqlite3"

	// DriverPure is modernc.org/sqlite, which needs no C toolchain.
	DriverPure = "sqlite"
)

// MemoryPath opens a private in-memory database instead of a file.
const MemoryPath = ":memory:"

// Database configuration constants.
const (
	// dirPermissions is the permission mode for the database directory.
	dirPermissions = 0750

	// filePermissions is the permission mode for the database file.
	filePermissions = 0600

	// msPerSecond converts seconds to milliseconds.
	msPerSecond = 1000

	// connectionTimeout is the timeout for verifying database connectivity.
	connectionTimeout = 5 * time.Second
)

// Config contains database configuration options.
// These map to the database section of config.yaml.
type Config struct {
	// Path is the filesystem path to the SQLite database file, or MemoryPath.
	// The directory will be created if it doesn't exist.
	Path string

	// Driver is DriverCGO (default) or DriverPure.
	Driver string

	// WALMode enables Write-Ahead Logging. Ignored for in-memory databases.
	WALMode bool

	// BusyTimeout is the maximum time to wait for a database lock (seconds).
	BusyTimeout int
}

// Options configures the worker that owns the connection.
type Options struct {
	// Name identifies the database in logs and stats. Defaults to "database".
	Name string

	// Logger receives worker lifecycle events. Nil disables logging.
	Logger bridge.Logger
}

// Reader is the read-only view of a connection given to shared operations.
// Rows must be closed before the operation returns.
type Reader interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Conn is a single SQLite connection. It is not safe for concurrent use and
// only ever lives on a DB's worker thread; operations receive it as their
// argument and must not keep it.
type Conn struct {
	db     *sql.DB
	conn   *sql.Conn
	driver string
}

// OpenConn opens one SQLite connection with the configured pragmas.
// It is the factory Open runs on the worker thread.
//
// It performs the following setup:
//  1. Creates the database directory if it doesn't exist
//  2. Opens the database and pins a single connection
//  3. Applies busy timeout, foreign keys, and WAL mode
//  4. Sets file permissions (0600)
func OpenConn(cfg Config) (*Conn, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverCGO
	}
	if driver != DriverCGO && driver != DriverPure {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}

	memory := cfg.Path == MemoryPath
	if !memory {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), dirPermissions); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	sqlDB, err := sql.Open(driver, cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	c, err := NewConn(sqlDB, driver)
	if err != nil {
		sqlDB.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
	defer cancel()

	if err := c.applyPragmas(ctx, cfg, memory); err != nil {
		c.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, err
	}

	if !memory {
		_ = os.Chmod(cfg.Path, filePermissions) //nolint:errcheck // File may be created lazily
	}

	return c, nil
}

// NewConn pins a single connection from sqlDB. Use it in factories that
// open the database themselves. The Conn takes ownership of sqlDB.
func NewConn(sqlDB *sql.DB, driver string) (*Conn, error) {
	// Exactly one connection, held for the lifetime of the Conn. An
	// in-memory database lives and dies with it.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)
	sqlDB.SetConnMaxIdleTime(0)

	ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
	defer cancel()

	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring connection: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("verifying database connection: %w", err)
	}

	return &Conn{db: sqlDB, conn: conn, driver: driver}, nil
}

func (c *Conn) applyPragmas(ctx context.Context, cfg Config, memory bool) error {
	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout*msPerSecond),
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := c.conn.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("applying %q: %w", p, err)
		}
	}

	if cfg.WALMode && !memory {
		var mode string
		if err := c.conn.QueryRowContext(ctx, "PRAGMA journal_mode = WAL").Scan(&mode); err != nil {
			return fmt.Errorf("enabling WAL mode: %w", err)
		}
		if _, err := c.conn.ExecContext(ctx, "PRAGMA synchronous = NORMAL"); err != nil {
			return fmt.Errorf("setting synchronous mode: %w", err)
		}
	}
	return nil
}

// Driver returns the driver name the connection was opened with.
func (c *Conn) Driver() string {
	return c.driver
}

// ExecContext executes a query that doesn't return rows (INSERT, UPDATE, DELETE).
func (c *Conn) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return c.conn.ExecContext(ctx, query, args...)
}

// QueryContext executes a query that returns rows.
func (c *Conn) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return c.conn.QueryContext(ctx, query, args...)
}

// QueryRowContext executes a query that returns at most one row.
func (c *Conn) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return c.conn.QueryRowContext(ctx, query, args...)
}

// BeginTx starts a transaction on the connection.
//
// Example:
//
//	tx, err := c.BeginTx(ctx, nil)
//	if err != nil {
//	    return err
//	}
//	defer tx.Rollback() // No-op if committed
//
//	// ... execute queries on tx ...
//
//	return tx.Commit()
func (c *Conn) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	return c.conn.BeginTx(ctx, opts)
}

// Raw exposes the underlying driver connection.
func (c *Conn) Raw(fn func(driverConn any) error) error {
	return c.conn.Raw(fn)
}

// Close releases the connection and the database handle.
func (c *Conn) Close() error {
	return errors.Join(c.conn.Close(), c.db.Close())
}

// DB is a SQLite database confined to a single worker thread.
//
// The connection is created, used and closed on that thread. Callers reach
// it only through Delegate and DelegateMut, which are safe for concurrent
// use from any number of goroutines.
type DB struct {
	b    *bridge.Bridge[*Conn]
	path string
}

// Open opens the database at cfg.Path on a fresh worker.
//
// Open waits for the worker to report the connection healthy, so a bad
// path or driver is returned here rather than from the first operation.
func Open(cfg Config, opts Options) (*DB, error) {
	db := &DB{
		b:    bridge.Start(func() (*Conn, error) { return OpenConn(cfg) }, bridgeConfig(opts)),
		path: cfg.Path,
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
	defer cancel()

	if err := db.HealthCheck(ctx); err != nil {
		if closeErr := db.b.Close(); closeErr != nil {
			return nil, closeErr
		}
		return nil, err
	}
	return db, nil
}

// OpenMemory opens a private in-memory database. Its contents disappear
// when the DB is closed.
func OpenMemory(opts Options) (*DB, error) {
	return Open(Config{Path: MemoryPath, Driver: DriverCGO}, opts)
}

// OpenWith starts a worker that builds its connection with factory. It
// returns immediately; if factory fails, every operation resolves as closed
// and Close returns the factory error.
func OpenWith(factory func() (*Conn, error), opts Options) *DB {
	return &DB{b: bridge.Start(factory, bridgeConfig(opts))}
}

func bridgeConfig(opts Options) bridge.Config {
	name := opts.Name
	if name == "" {
		name = "database"
	}
	return bridge.Config{
		Name:            name,
		Logger:          opts.Logger,
		IsResourceError: IsResourceError,
	}
}

// Delegate runs fn on the worker with read-only access and returns its result.
//
// SQLite errors come back as *bridge.Error of kind KindResource, errors made
// by fn itself as KindCaller, and a closed database as bridge.ErrClosed.
// fn should use ctx for its own queries: if ctx ends while fn is still
// queued, Delegate returns early and fn runs with a cancelled context.
func Delegate[T any](ctx context.Context, db *DB, fn func(Reader) (T, error)) (T, error) {
	return bridge.Delegate(ctx, db.b, func(c *Conn) (T, error) {
		return fn(c)
	})
}

// DelegateMut runs fn on the worker with full access to the connection.
// Semantics are otherwise identical to Delegate.
func DelegateMut[T any](ctx context.Context, db *DB, fn func(*Conn) (T, error)) (T, error) {
	return bridge.DelegateMut(ctx, db.b, fn)
}

// Close shuts down the worker after all queued operations have run, and
// closes the connection. Safe to call more than once.
func (db *DB) Close() error {
	if err := db.b.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}

// Path returns the database location, or "" for a factory-opened database.
func (db *DB) Path() string {
	return db.path
}

// Name returns the worker name.
func (db *DB) Name() string {
	return db.b.Name()
}

// HealthCheck verifies the database is accessible and functioning.
// It performs a simple query round trip through the worker.
func (db *DB) HealthCheck(ctx context.Context) error {
	_, err := Delegate(ctx, db, func(r Reader) (int, error) {
		var result int
		err := r.QueryRowContext(ctx, "SELECT 1").Scan(&result)
		return result, err
	})
	if err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

// Stats returns the worker's counters.
func (db *DB) Stats() bridge.Stats {
	return db.b.Stats()
}

// Bridge returns the underlying bridge, for callers that want Submit and
// Pending directly.
func (db *DB) Bridge() *bridge.Bridge[*Conn] {
	return db.b
}
