package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

type SlotRepository struct {
	db *sql.DB
}

// Open opens (creating if needed) the database file with WAL journaling and
// a busy timeout. ":memory:" opens a private in-memory database.
func Open(path string) (*sql.DB, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, err
			}
		}
	}
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout=5000&_pragma=journal_mode=WAL")
	if err != nil {
		return nil, err
	}
	// a single connection keeps ":memory:" databases from splitting per connection
	db.SetMaxOpenConns(1)
	return db, nil
}

func NewSlotRepository(db *sql.DB) *SlotRepository {
	return &SlotRepository{db: db}
}

func (r *SlotRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS cart_slots (
			slot_key   TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}

func (r *SlotRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM cart_slots WHERE slot_key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (r *SlotRepository) Set(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO cart_slots (slot_key, value)
		VALUES (?, ?)
		ON CONFLICT(slot_key)
		DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, key, value)
	return err
}

func (r *SlotRepository) Delete(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM cart_slots WHERE slot_key = ?`, key)
	return err
}

func (r *SlotRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
