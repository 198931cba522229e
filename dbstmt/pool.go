// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package dbstmt is a thin SQL statement wrapper collaborator: it hosts a
// *sql.DB over any driver.Connector and retries a statement against a
// freshly reconnected connection when the driver reports the connection
// is no longer usable, following the normative SkylakeLibDB/Private
// reconnect-and-retry design rather than the original's prototype
// variant. It is not a full MySQL client — query construction, result
// scanning, and transaction management are the caller's responsibility
// via the standard database/sql API this package exposes unwrapped.
package dbstmt

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"

	"code.hybscloud.com/iox"
	"github.com/skylakelib/skylake/dclog"
)

// Config configures a Pool.
type Config struct {
	// MaxRetries bounds how many times a statement is retried against a
	// reconnected connection after a connection-level failure. Zero
	// means "no retry": the first error is returned as-is.
	MaxRetries int
	Logger     *dclog.Logger
}

// Pool wraps a *sql.DB with reconnect-and-retry around Exec/Query:
// database/sql already reconnects transparently for a fresh query against
// its internal connection pool, but a statement that fails mid-flight
// with driver.ErrBadConn is retried here explicitly up to MaxRetries
// times rather than surfacing the first transient failure to the caller.
type Pool struct {
	db  *sql.DB
	cfg Config
}

// Open constructs a Pool over connector (typically a
// go-sql-driver/mysql connector, though this package accepts any
// driver.Connector and is exercised in tests with database/sql/driver's
// own fakes, so it never imports a concrete driver package directly).
func Open(connector driver.Connector, cfg Config) *Pool {
	if cfg.Logger == nil {
		cfg.Logger = dclog.Discard
	}
	return &Pool{db: sql.OpenDB(connector), cfg: cfg}
}

// DB returns the underlying *sql.DB for callers that need the full
// database/sql surface (transactions, prepared statement caching, pool
// tuning) this package does not wrap.
func (p *Pool) DB() *sql.DB { return p.db }

// Close releases the pool's connections.
func (p *Pool) Close() error { return p.db.Close() }

// ExecContext runs query with args, retrying up to Config.MaxRetries
// times if the attempt fails with driver.ErrBadConn or sql.ErrConnDone
// (the connection is no longer usable). No retry is made once ctx is done,
// since cancellation and deadlines are caller-directed, not connection
// failures.
func (p *Pool) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var result sql.Result
	err := p.retry(ctx, func() error {
		var execErr error
		result, execErr = p.db.ExecContext(ctx, query, args...)
		return execErr
	})
	return result, err
}

// QueryContext runs query with args, with the same retry policy as
// ExecContext.
func (p *Pool) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	var rows *sql.Rows
	err := p.retry(ctx, func() error {
		var queryErr error
		rows, queryErr = p.db.QueryContext(ctx, query, args...)
		return queryErr
	})
	return rows, err
}

// retry runs fn, retrying while it reports a reconnectable failure
// (shouldRetry) and the retry budget is not exhausted. The backoff
// between attempts is code.hybscloud.com/iox's bounded spin/yield
// helper, the same one the teacher's own stress tests use for retry
// loops, rather than a hand-rolled sleep ramp.
func (p *Pool) retry(ctx context.Context, fn func() error) error {
	backoff := iox.Backoff{}
	var lastErr error
	for attempt := 0; attempt <= p.cfg.MaxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !shouldRetry(lastErr) || ctx.Err() != nil {
			return lastErr
		}
		p.cfg.Logger.Warning().Int("attempt", attempt).Err(lastErr).Log("dbstmt: retrying statement after connection error")
		backoff.Wait()
	}
	return lastErr
}

// shouldRetry reports whether err indicates the connection itself failed
// (reconnectable) rather than a query-level or caller-directed failure.
func shouldRetry(err error) bool {
	return errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone)
}
