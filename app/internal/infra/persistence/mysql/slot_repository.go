package mysql

import (
	"context"
	"database/sql"
	"errors"

	_ "github.com/go-sql-driver/mysql"
)

type SlotRepository struct {
	db *sql.DB
}

func Open(dsn string) (*sql.DB, error) {
	return sql.Open("mysql", dsn)
}

func NewSlotRepository(db *sql.DB) *SlotRepository {
	return &SlotRepository{db: db}
}

func (r *SlotRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
        CREATE TABLE IF NOT EXISTS cart_slots (
            slot_key   VARCHAR(191) NOT NULL PRIMARY KEY,
            value      LONGTEXT     NOT NULL,
            updated_at TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
        )
    `)
	return err
}

func (r *SlotRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `
        SELECT value
        FROM cart_slots
        WHERE slot_key = ?
    `, key).Scan(&value)
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
        ON DUPLICATE KEY UPDATE value = VALUES(value)
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
