// Package pgxutil bridges database/sql pools opened with the pgx stdlib driver
// back to native pgx connections.
package pgxutil

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
)

// ErrNotPgx is returned when the pool was not opened with the pgx driver.
var ErrNotPgx = errors.New("pgxutil: driver connection is not *stdlib.Conn")

// WithPgxConn pins one pooled connection for the duration of fn and hands it over as *pgx.Conn.
// The connection goes back to the pool when fn returns.
func WithPgxConn(ctx context.Context, db *sql.DB, fn func(*pgx.Conn) error) error {
	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("pin pooled conn: %w", err)
	}
	defer conn.Close() //nolint:errcheck // returning a conn to the pool has nothing to report

	return conn.Raw(func(driverConn any) error {
		pc, ok := driverConn.(*stdlib.Conn)
		if !ok {
			return ErrNotPgx
		}
		return fn(pc.Conn())
	})
}

// QueryRowBytes reads a single bytea/jsonb column. pgx.ErrNoRows is passed through unwrapped.
func QueryRowBytes(ctx context.Context, db *sql.DB, query string, args ...any) ([]byte, error) {
	var out []byte
	err := WithPgxConn(ctx, db, func(conn *pgx.Conn) error {
		return conn.QueryRow(ctx, query, args...).Scan(&out)
	})
	return out, err
}
