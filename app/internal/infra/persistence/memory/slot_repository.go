package memory

import (
	"context"
	"sync"
)

// SlotRepository keeps slots in process memory. It is safe for concurrent
// use but offers no ordering between callers.
type SlotRepository struct {
	mu    sync.RWMutex
	slots map[string]string
}

func NewSlotRepository() *SlotRepository {
	return &SlotRepository{
		slots: make(map[string]string),
	}
}

func (r *SlotRepository) Get(ctx context.Context, key string) (string, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	value, ok := r.slots[key]
	return value, ok, nil
}

func (r *SlotRepository) Set(ctx context.Context, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.slots[key] = value
	return nil
}

func (r *SlotRepository) Delete(ctx context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.slots, key)
	return nil
}

func (r *SlotRepository) Ping(ctx context.Context) error {
	return nil
}
