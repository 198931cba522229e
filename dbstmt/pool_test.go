// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package dbstmt

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeResult is the minimal driver.Result the fake exec path returns.
type fakeResult struct{}

func (fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (fakeResult) RowsAffected() (int64, error) { return 1, nil }

// fakeRows is an empty driver.Rows, enough for QueryContext to succeed.
type fakeRows struct{}

func (fakeRows) Columns() []string              { return nil }
func (fakeRows) Close() error                   { return nil }
func (fakeRows) Next(dest []driver.Value) error { return driver.ErrSkip }

// scriptedConn fails its first len(errs) Exec/Query calls with the scripted
// errors, then succeeds. Shared across Connect calls so the test can drive
// behavior independent of whether database/sql reuses or re-dials the
// connection.
type scriptedConn struct {
	mu    sync.Mutex
	errs  []error
	calls int
}

func (c *scriptedConn) next() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.calls < len(c.errs) {
		err := c.errs[c.calls]
		c.calls++
		return err
	}
	c.calls++
	return nil
}

func (c *scriptedConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("prepare unsupported") }
func (c *scriptedConn) Close() error                        { return nil }
func (c *scriptedConn) Begin() (driver.Tx, error)            { return nil, errors.New("tx unsupported") }

func (c *scriptedConn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	if err := c.next(); err != nil {
		return nil, err
	}
	return fakeResult{}, nil
}

func (c *scriptedConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	if err := c.next(); err != nil {
		return nil, err
	}
	return fakeRows{}, nil
}

type fakeDriver struct{}

func (fakeDriver) Open(string) (driver.Conn, error) { return nil, errors.New("dial via Connector only") }

// scriptedConnector hands out the same scriptedConn on every Connect, so a
// "bad connection" is really the same fake conn reporting a transient
// failure rather than a distinct dial attempt.
type scriptedConnector struct {
	conn *scriptedConn
}

func (c *scriptedConnector) Connect(context.Context) (driver.Conn, error) { return c.conn, nil }
func (c *scriptedConnector) Driver() driver.Driver                       { return fakeDriver{} }

func newPool(t *testing.T, maxRetries int, errs ...error) (*Pool, *scriptedConn) {
	t.Helper()
	conn := &scriptedConn{errs: errs}
	p := Open(&scriptedConnector{conn: conn}, Config{MaxRetries: maxRetries})
	t.Cleanup(func() { p.Close() })
	return p, conn
}

func TestExecContextSucceedsWithoutRetry(t *testing.T) {
	p, conn := newPool(t, 3)
	_, err := p.ExecContext(context.Background(), "INSERT INTO t VALUES (?)", 1)
	require.NoError(t, err)
	require.Equal(t, 1, conn.calls)
}

// These use sql.ErrConnDone rather than driver.ErrBadConn for the
// retry-count-sensitive assertions: database/sql itself transparently
// retries a driver.ErrBadConn against a fresh connection before the error
// ever reaches our retry wrapper, which would make the call counts below
// depend on database/sql's internal retry budget rather than ours.
// sql.ErrConnDone carries no such special handling, so it exercises
// Pool.retry's own loop deterministically while still satisfying
// shouldRetry's reconnectable-error classification.

func TestExecContextRetriesThenSucceedsOnConnDone(t *testing.T) {
	p, conn := newPool(t, 3, sql.ErrConnDone, sql.ErrConnDone)
	_, err := p.ExecContext(context.Background(), "INSERT INTO t VALUES (?)", 1)
	require.NoError(t, err)
	require.Equal(t, 3, conn.calls)
}

func TestExecContextExhaustsRetriesAndReturnsLastError(t *testing.T) {
	p, conn := newPool(t, 2, sql.ErrConnDone, sql.ErrConnDone, sql.ErrConnDone)
	_, err := p.ExecContext(context.Background(), "INSERT INTO t VALUES (?)", 1)
	require.ErrorIs(t, err, sql.ErrConnDone)
	require.Equal(t, 3, conn.calls)
}

func TestExecContextWithZeroMaxRetriesDoesNotRetry(t *testing.T) {
	p, conn := newPool(t, 0, sql.ErrConnDone)
	_, err := p.ExecContext(context.Background(), "INSERT INTO t VALUES (?)", 1)
	require.ErrorIs(t, err, sql.ErrConnDone)
	require.Equal(t, 1, conn.calls)
}

func TestExecContextDoesNotRetryNonConnectionError(t *testing.T) {
	syntaxErr := errors.New("syntax error near VALUES")
	p, conn := newPool(t, 3, syntaxErr)
	_, err := p.ExecContext(context.Background(), "INSERT INTO t VALUES (?)", 1)
	require.ErrorIs(t, err, syntaxErr)
	require.Equal(t, 1, conn.calls)
}

func TestQueryContextRetriesOnConnDone(t *testing.T) {
	p, conn := newPool(t, 2, sql.ErrConnDone)
	rows, err := p.QueryContext(context.Background(), "SELECT 1")
	require.NoError(t, err)
	rows.Close()
	require.Equal(t, 2, conn.calls)
}

func TestShouldRetryClassifiesConnectionFailuresOnly(t *testing.T) {
	require.True(t, shouldRetry(driver.ErrBadConn))
	require.True(t, shouldRetry(sql.ErrConnDone))
	require.False(t, shouldRetry(errors.New("duplicate key")))
}
