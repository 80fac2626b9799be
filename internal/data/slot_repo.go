package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/assignpro/assignpro-web/internal/data/pgxutil"
	apperrors "github.com/assignpro/assignpro-web/internal/errors"
	"github.com/assignpro/assignpro-web/internal/ports"
)

var _ ports.SlotStore = (*SlotRepo)(nil)

// ErrSlotNotJSON is returned when a write is attempted with a payload that is not a JSON document.
var ErrSlotNotJSON = errors.New("slot value must be a JSON document")

// SlotRepo keeps the remembered identity record as one row of session_slot.
type SlotRepo struct {
	DB  *sql.DB
	Key string
}

// NewSlotRepo creates a new SlotRepo. An empty key selects "user".
func NewSlotRepo(db *sql.DB, key string) *SlotRepo {
	key = strings.TrimSpace(key)
	if key == "" {
		key = "user"
	}
	return &SlotRepo{DB: db, Key: key}
}

func (r *SlotRepo) Read(ctx context.Context) ([]byte, error) {
	value, err := pgxutil.QueryRowBytes(ctx, r.DB, `SELECT value FROM session_slot WHERE key = $1`, r.Key)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ports.ErrSlotEmpty
		}
		return nil, fmt.Errorf("read slot %s: %w", r.Key, apperrors.MapDBError(err))
	}
	return value, nil
}

func (r *SlotRepo) Write(ctx context.Context, data []byte) error {
	if !json.Valid(data) {
		return ErrSlotNotJSON
	}
	const q = `
		INSERT INTO session_slot (key, value, updated_at)
		VALUES ($1, $2::jsonb, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`
	if _, err := r.DB.ExecContext(ctx, q, r.Key, string(data)); err != nil {
		return fmt.Errorf("write slot %s: %w", r.Key, apperrors.MapDBError(err))
	}
	return nil
}

func (r *SlotRepo) Clear(ctx context.Context) error {
	if _, err := r.DB.ExecContext(ctx, `DELETE FROM session_slot WHERE key = $1`, r.Key); err != nil {
		return fmt.Errorf("clear slot %s: %w", r.Key, apperrors.MapDBError(err))
	}
	return nil
}

// UpdatedAt reports when the slot was last written.
func (r *SlotRepo) UpdatedAt(ctx context.Context) (time.Time, error) {
	var at time.Time
	err := r.DB.QueryRowContext(ctx, `SELECT updated_at FROM session_slot WHERE key = $1`, r.Key).Scan(&at)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, ports.ErrSlotEmpty
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("slot %s updated_at: %w", r.Key, apperrors.MapDBError(err))
	}
	return at, nil
}
