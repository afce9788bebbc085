package store

import (
	"sort"
	"sync"

	"fermata/types"
)

// MemoryStore keeps all downloads in process memory, keyed by user.
// State does not survive a restart.
type MemoryStore struct {
	mu        sync.RWMutex
	downloads map[string][]*types.Download
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		downloads: make(map[string][]*types.Download),
	}
}

// Insert adds a new download unless an active one exists for the same song
func (s *MemoryStore) Insert(userID string, d *types.Download) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing := findActive(s.downloads[userID], d.SongID); existing != nil {
		return &ConflictError{Existing: existing.Clone()}
	}

	s.downloads[userID] = append(s.downloads[userID], d.Clone())
	return nil
}

// List returns copies of the user's downloads, most recent first
func (s *MemoryStore) List(userID string) []*types.Download {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := s.downloads[userID]
	out := make([]*types.Download, 0, len(records))
	for _, d := range records {
		out = append(out, d.Clone())
	}
	sortNewestFirst(out)
	return out
}

// Get returns a copy of a single download
func (s *MemoryStore) Get(userID, id string) (*types.Download, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, d := range s.downloads[userID] {
		if d.ID == id {
			return d.Clone(), true
		}
	}
	return nil, false
}

// Update mutates a download inside the store's lock. The existence check
// and the write share the same critical section so a concurrent delete
// can never be overwritten by a stale writer.
func (s *MemoryStore) Update(userID, id string, mutate func(*types.Download)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, d := range s.downloads[userID] {
		if d.ID == id {
			mutate(d)
			return true
		}
	}
	return false
}

// Delete removes a download and reports whether it existed
func (s *MemoryStore) Delete(userID, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.downloads[userID]
	for i, d := range records {
		if d.ID == id {
			s.downloads[userID] = append(records[:i], records[i+1:]...)
			return true
		}
	}
	return false
}

// Close is a no-op for the in-memory store
func (s *MemoryStore) Close() error {
	return nil
}

// sortNewestFirst orders downloads by CreatedAt descending with the id as
// a stable tiebreak, so repeated lists without writes are identical
func sortNewestFirst(downloads []*types.Download) {
	sort.SliceStable(downloads, func(i, j int) bool {
		if downloads[i].CreatedAt.Equal(downloads[j].CreatedAt) {
			return downloads[i].ID > downloads[j].ID
		}
		return downloads[i].CreatedAt.After(downloads[j].CreatedAt)
	})
}
