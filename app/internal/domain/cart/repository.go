package cart

import "context"

// SlotRepository is the key-value store holding serialized carts.
// Get reports found=false for a missing key; Delete of a missing key is not
// an error.
type SlotRepository interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Pinger is implemented by repositories that can report liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}
