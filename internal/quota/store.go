// Package quota implements per-identity daily admission control.
package quota

import (
	"context"
	"time"
)

// Record is the stored counter for one identity within a window.
type Record struct {
	Identity        string
	Count           int
	WindowExpiresAt time.Time
}

// Store is an external key-count-expiry store.
//
// IncrementIfUnder atomically increments the counter for identity when its
// current value is below limit. An absent or expired counter counts as zero
// and starts a new window that expires window after this first increment;
// later increments within the window do not extend it. On success it returns
// the new count and true. When the limit is reached it returns the stored
// count and false without mutating state.
type Store interface {
	IncrementIfUnder(ctx context.Context, identity string, limit int, window time.Duration) (count int, allowed bool, err error)
}
