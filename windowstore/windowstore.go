package windowstore

import (
	"context"
)

// WindowStore tracks per-key event timestamps over a trailing time window.
//
// Keys are arbitrary strings, typically composite identifiers like
// "community/user/channel". Entries older than the window are evicted lazily
// on access, not by a background timer. Counts are best-effort: the in-memory
// implementation starts empty on restart.
type WindowStore interface {
	// Record appends an event for key at the current time, and returns the
	// number of events still inside the window (including this one).
	Record(ctx context.Context, key string) (int, error)
	// Count returns the number of in-window events for key without recording.
	Count(ctx context.Context, key string) (int, error)
}
