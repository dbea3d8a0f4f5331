package bunt

import (
	"context"
	"errors"

	"github.com/tidwall/buntdb"
)

// SlotRepository stores slots in a BuntDB file. Pass ":memory:" for a
// database that lives only as long as the process.
type SlotRepository struct {
	db *buntdb.DB
}

func Open(path string) (*SlotRepository, error) {
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, err
	}
	return &SlotRepository{db: db}, nil
}

func NewSlotRepository(db *buntdb.DB) *SlotRepository {
	return &SlotRepository{db: db}
}

func (r *SlotRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.View(func(tx *buntdb.Tx) error {
		v, err := tx.Get(key)
		if err != nil {
			return err
		}
		value = v
		return nil
	})
	if errors.Is(err, buntdb.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (r *SlotRepository) Set(ctx context.Context, key, value string) error {
	return r.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(key, value, nil)
		return err
	})
}

func (r *SlotRepository) Delete(ctx context.Context, key string) error {
	err := r.db.Update(func(tx *buntdb.Tx) error {
		_, err := tx.Delete(key)
		return err
	})
	if errors.Is(err, buntdb.ErrNotFound) {
		return nil
	}
	return err
}

func (r *SlotRepository) Ping(ctx context.Context) error {
	return r.db.View(func(tx *buntdb.Tx) error {
		_, err := tx.Len()
		return err
	})
}

func (r *SlotRepository) Close() error {
	return r.db.Close()
}
