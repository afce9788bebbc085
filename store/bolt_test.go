package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"

	"fermata/types"
)

func newBoltTestStore(t *testing.T) *BoltStore {
	t.Helper()
	s, err := NewBoltStore(filepath.Join(t.TempDir(), "fermata.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBoltStoreRoundTrip(t *testing.T) {
	s := newBoltTestStore(t)

	now := time.Now().Truncate(time.Millisecond)
	d := newDownload("d1", "user-1", "song-1", types.StatusPending, now)
	d.SongDetails = types.SongDetails{ID: "song-1", Title: "Song 1", Artist: "Artist Name"}
	require.NoError(t, s.Insert("user-1", d))

	got, ok := s.Get("user-1", "d1")
	require.True(t, ok)
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, "Song 1", got.SongDetails.Title)
	assert.Equal(t, types.StatusPending, got.Status)

	_, ok = s.Get("user-2", "d1")
	assert.False(t, ok)
}

func TestBoltStoreActiveConflict(t *testing.T) {
	s := newBoltTestStore(t)

	first := newDownload("d1", "user-1", "song-1", types.StatusDownloading, time.Now())
	require.NoError(t, s.Insert("user-1", first))

	err := s.Insert("user-1", newDownload("d2", "user-1", "song-1", types.StatusPending, time.Now()))
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "d1", conflict.Existing.ID)

	// Another user downloading the same song is fine
	require.NoError(t, s.Insert("user-2", newDownload("d3", "user-2", "song-1", types.StatusPending, time.Now())))
}

func TestBoltStoreListOrdering(t *testing.T) {
	s := newBoltTestStore(t)

	base := time.Now().Truncate(time.Millisecond)
	require.NoError(t, s.Insert("user-1", newDownload("d1", "user-1", "song-1", types.StatusPending, base.Add(-time.Hour))))
	require.NoError(t, s.Insert("user-1", newDownload("d2", "user-1", "song-2", types.StatusPending, base)))

	list := s.List("user-1")
	require.Len(t, list, 2)
	assert.Equal(t, "d2", list[0].ID)
	assert.Equal(t, "d1", list[1].ID)
}

func TestBoltStoreUpdateAndDelete(t *testing.T) {
	s := newBoltTestStore(t)

	require.NoError(t, s.Insert("user-1", newDownload("d1", "user-1", "song-1", types.StatusPending, time.Now())))

	ok := s.Update("user-1", "d1", func(d *types.Download) {
		assert.Equal(t, "user-1", d.UserID)
		d.SetStatus(types.StatusCompleted)
		d.Progress = 100
		d.IsAvailable = true
	})
	require.True(t, ok)

	got, found := s.Get("user-1", "d1")
	require.True(t, found)
	assert.True(t, got.Available())

	assert.True(t, s.Delete("user-1", "d1"))
	assert.False(t, s.Delete("user-1", "d1"))
	assert.False(t, s.Update("user-1", "d1", func(d *types.Download) {}))
}

func TestBoltStoreListWithUnreadableRecord(t *testing.T) {
	s := newBoltTestStore(t)

	require.NoError(t, s.Insert("user-1", newDownload("d1", "user-1", "song-1", types.StatusCompleted, time.Now())))

	// Corrupt one record behind the store's back
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketDownloads).Bucket([]byte("user-1")).Put([]byte("junk"), []byte("{not json"))
	})
	require.NoError(t, err)

	// The unreadable record is logged and the list comes back empty
	// instead of partial or panicking; direct reads of intact records
	// still work.
	assert.Empty(t, s.List("user-1"))

	got, ok := s.Get("user-1", "d1")
	require.True(t, ok)
	assert.Equal(t, types.StatusCompleted, got.Status)
}

func TestBoltStorePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fermata.db")

	s, err := NewBoltStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Insert("user-1", newDownload("d1", "user-1", "song-1", types.StatusCompleted, time.Now())))
	require.NoError(t, s.Close())

	reopened, err := NewBoltStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, ok := reopened.Get("user-1", "d1")
	require.True(t, ok)
	assert.Equal(t, types.StatusCompleted, got.Status)
}
