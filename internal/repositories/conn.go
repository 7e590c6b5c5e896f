package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/desertthunder/spx/internal/shared"
)

// Querier is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Conn runs ?-placeholder queries against q in the given dialect.
type Conn struct {
	q       Querier
	dialect shared.Dialect
}

// NewConn binds q to dialect.
func NewConn(q Querier, dialect shared.Dialect) *Conn {
	return &Conn{q: q, dialect: dialect}
}

// Exists reports whether query (a SELECT EXISTS(...)) is true.
func (c *Conn) Exists(ctx context.Context, query string, args ...any) (bool, error) {
	var exists bool
	if err := c.q.QueryRowContext(ctx, c.dialect.Rebind(query), args...).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// LookupID runs a single-column key query and reports whether a row matched.
func (c *Conn) LookupID(ctx context.Context, query string, args ...any) (int64, bool, error) {
	var id int64
	err := c.q.QueryRowContext(ctx, c.dialect.Rebind(query), args...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

// InsertID runs an INSERT ... RETURNING <key> and returns the generated key.
func (c *Conn) InsertID(ctx context.Context, query string, args ...any) (int64, error) {
	var id int64
	if err := c.q.QueryRowContext(ctx, c.dialect.Rebind(query), args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// Exec runs a statement without results.
func (c *Conn) Exec(ctx context.Context, query string, args ...any) error {
	_, err := c.q.ExecContext(ctx, c.dialect.Rebind(query), args...)
	return err
}

// Count returns the number of rows in table.
func (c *Conn) Count(ctx context.Context, table string) (int, error) {
	var n int
	if err := c.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return n, nil
}
