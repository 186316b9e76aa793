package database

import (
	"context"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

// RegisterFunc makes a Go function callable from SQL on this connection.
//
// impl is any function whose arguments and results map to SQLite values
// (int64, float64, string, []byte, bool, any); an optional trailing error
// result is reported as an SQL error. pure marks the function as
// deterministic so SQLite may cache or reorder calls.
//
// Only DriverCGO connections support this; others return
// ErrFunctionsUnsupported.
func (c *Conn) RegisterFunc(name string, impl any, pure bool) error {
	return c.withSQLiteConn(func(sc *sqlite3.SQLiteConn) error {
		return sc.RegisterFunc(name, impl, pure)
	})
}

// RegisterAggregator makes a Go aggregate callable from SQL on this
// connection.
//
// impl is a constructor returning a pointer to a type with a Step method
// (called per row) and a Done method (called once, returning the result).
func (c *Conn) RegisterAggregator(name string, impl any, pure bool) error {
	return c.withSQLiteConn(func(sc *sqlite3.SQLiteConn) error {
		return sc.RegisterAggregator(name, impl, pure)
	})
}

func (c *Conn) withSQLiteConn(fn func(*sqlite3.SQLiteConn) error) error {
	return c.Raw(func(driverConn any) error {
		sc, ok := driverConn.(*sqlite3.SQLiteConn)
		if !ok {
			return ErrFunctionsUnsupported
		}
		return fn(sc)
	})
}

// RegisterFunc registers a scalar SQL function on the worker's connection.
// See Conn.RegisterFunc.
func (db *DB) RegisterFunc(ctx context.Context, name string, impl any, pure bool) error {
	_, err := DelegateMut(ctx, db, func(c *Conn) (struct{}, error) {
		return struct{}{}, c.RegisterFunc(name, impl, pure)
	})
	if err != nil {
		return fmt.Errorf("registering function %s: %w", name, err)
	}
	return nil
}

// RegisterAggregator registers an aggregate SQL function on the worker's
// connection. See Conn.RegisterAggregator.
func (db *DB) RegisterAggregator(ctx context.Context, name string, impl any, pure bool) error {
	_, err := DelegateMut(ctx, db, func(c *Conn) (struct{}, error) {
		return struct{}{}, c.RegisterAggregator(name, impl, pure)
	})
	if err != nil {
		return fmt.Errorf("registering aggregator %s: %w", name, err)
	}
	return nil
}
