package store

import (
	"fmt"

	"fermata/types"
)

// ConflictError is returned by Insert when an active download already
// exists for the same (user, song) pair
type ConflictError struct {
	Existing *types.Download
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("active download %s already exists for song %s", e.Existing.ID, e.Existing.SongID)
}

// Store is the authoritative repository for download records. The
// in-memory implementation is the default; a durable backing store can be
// substituted without changing the state-machine logic.
//
// Insert and Update bundle their validity checks with the write so callers
// never need a separate check-then-act sequence.
type Store interface {
	// Insert adds a new download. It fails with *ConflictError when the
	// user already has an active (PENDING, DOWNLOADING or COMPLETED)
	// download for the same song.
	Insert(userID string, d *types.Download) error

	// List returns copies of all downloads for the user, ordered by
	// CreatedAt descending with the id as a stable tiebreak.
	List(userID string) []*types.Download

	// Get returns a copy of a single download.
	Get(userID, id string) (*types.Download, bool)

	// Update applies mutate to the download inside the store's critical
	// section. It reports false, without calling mutate, when the
	// download no longer exists.
	Update(userID, id string, mutate func(*types.Download)) bool

	// Delete removes a download regardless of status and reports whether
	// it existed.
	Delete(userID, id string) bool

	// Close releases any resources held by the store.
	Close() error
}

// findActive returns the active download for (user, song) among the given
// records, if any
func findActive(downloads []*types.Download, songID string) *types.Download {
	for _, d := range downloads {
		if d.SongID == songID && d.Status.IsActive() {
			return d
		}
	}
	return nil
}
