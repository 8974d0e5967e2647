package session

import "github.com/openduel/sync-server-go/internal/state"

// snapshotRing retains a bounded window of past state snapshots keyed by
// version. Oldest entries are evicted once capacity is exceeded; lookups
// below the window fail so callers fall back to a full-state resync.
type snapshotRing struct {
	capacity int
	entries  []ringEntry // ascending by version
}

type ringEntry struct {
	version int64
	snap    *state.TCGGameState
}

func newSnapshotRing(capacity int) *snapshotRing {
	if capacity < 1 {
		capacity = 1
	}
	return &snapshotRing{
		capacity: capacity,
		entries:  make([]ringEntry, 0, capacity),
	}
}

// Push records a snapshot. A snapshot at an existing version replaces it
// and drops everything above, which is how a post-undo acceptance
// invalidates the stale redo tail.
func (r *snapshotRing) Push(version int64, snap *state.TCGGameState) {
	for i := range r.entries {
		if r.entries[i].version >= version {
			r.entries = r.entries[:i]
			break
		}
	}
	r.entries = append(r.entries, ringEntry{version: version, snap: snap})
	if len(r.entries) > r.capacity {
		r.entries = r.entries[len(r.entries)-r.capacity:]
	}
}

// Get returns the snapshot at the given version, if retained.
func (r *snapshotRing) Get(version int64) (*state.TCGGameState, bool) {
	for i := range r.entries {
		if r.entries[i].version == version {
			return r.entries[i].snap, true
		}
	}
	return nil, false
}

// Oldest returns the lowest retained version, or -1 when empty.
func (r *snapshotRing) Oldest() int64 {
	if len(r.entries) == 0 {
		return -1
	}
	return r.entries[0].version
}

// Newest returns the highest retained version, or -1 when empty.
func (r *snapshotRing) Newest() int64 {
	if len(r.entries) == 0 {
		return -1
	}
	return r.entries[len(r.entries)-1].version
}

// Len returns the number of retained snapshots.
func (r *snapshotRing) Len() int {
	return len(r.entries)
}
