// Package database confines a SQLite connection to a single worker thread
// and exposes it to concurrent callers.
//
// SQLite connections must not be shared between threads. Instead of a
// connection pool, DB owns exactly one connection, opened and closed on its
// worker (see package bridge). Callers send closures that run against the
// connection and receive their results:
//
//	db, err := database.Open(database.Config{Path: "data/app.db", WALMode: true}, database.Options{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	_, err = database.DelegateMut(ctx, db, func(c *database.Conn) (sql.Result, error) {
//	    return c.ExecContext(ctx, "INSERT INTO person (name) VALUES (?)", "Ada")
//	})
//
//	n, err := database.Delegate(ctx, db, func(r database.Reader) (int, error) {
//	    var n int
//	    err := r.QueryRowContext(ctx, "SELECT COUNT(*) FROM person").Scan(&n)
//	    return n, err
//	})
//
// Two drivers are available: DriverCGO (github.com/mattn/go-sqlite3, the
// default, with custom SQL functions) and DriverPure (modernc.org/sqlite).
//
// Errors:
//   - SQLite and database/sql failures: bridge.KindResource (see ErrorCode)
//   - Errors made by the closure: bridge.KindCaller, original reachable via errors.As
//   - Database closed or worker gone: bridge.ErrClosed
//
// Migrations are YYYYMMDD_HHMMSS_description.{up,down}.sql files read from
// any fs.FS, each applied in its own transaction and recorded in
// schema_migrations.
//
// Security Considerations:
//   - Use parameterised statements
//   - Database file permissions are set to 0600 (owner read/write only)
package database
