package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"fermata/types"
)

// State describes the cache lifecycle
type State int

const (
	// StateUninitialized means no identity is present
	StateUninitialized State = iota
	// StateLoading means the first refresh for an identity is in flight
	StateLoading
	// StateReady means a snapshot is available
	StateReady
	// StateRefreshing means a snapshot is available and a newer one is in flight
	StateRefreshing
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateRefreshing:
		return "refreshing"
	default:
		return "uninitialized"
	}
}

// downloadAPI is the slice of the API the cache depends on
type downloadAPI interface {
	SetIdentity(userID string)
	ListAll(ctx context.Context) ([]types.DownloadSummary, error)
	Create(ctx context.Context, songID string) (*types.CreateDownloadResponse, error)
	Delete(ctx context.Context, id string) error
}

// CacheOptions tunes the cache's refresh behavior
type CacheOptions struct {
	// RefreshInterval is the periodic refresh cadence while an identity
	// is present. Defaults to 5 minutes.
	RefreshInterval time.Duration
	// ReconcileDelay is how long after a successful DownloadSong the
	// one-shot reconciling refresh fires. Defaults to 30 seconds.
	ReconcileDelay time.Duration
}

// Cache mirrors the user's server-side download list and answers
// "is song X downloaded?" in O(1) without a network round trip.
//
// The snapshot list and the two derived indexes (availability and entry,
// both keyed by song id) always change together under one lock: a reader
// can never observe the list updated but the indexes stale, or one index
// updated without the other.
type Cache struct {
	api             downloadAPI
	refreshInterval time.Duration
	reconcileDelay  time.Duration

	mu       sync.Mutex
	state    State
	identity string
	snapshot []types.DownloadSummary

	// Derived indexes: caches of the snapshot, rebuilt from scratch on
	// refresh and patched only by the optimistic create/delete paths.
	availableBySong map[string]bool
	entryBySong     map[string]types.DownloadSummary

	// Single-flight refresh bookkeeping. A trigger that arrives while a
	// refresh is in flight coalesces onto it via the queued flag.
	inFlight bool
	queued   bool

	stopPeriodic chan struct{}
}

// NewCache creates a download cache over the given API caller
func NewCache(api downloadAPI, opts CacheOptions) *Cache {
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = 5 * time.Minute
	}
	if opts.ReconcileDelay <= 0 {
		opts.ReconcileDelay = 30 * time.Second
	}
	return &Cache{
		api:             api,
		refreshInterval: opts.RefreshInterval,
		reconcileDelay:  opts.ReconcileDelay,
		availableBySong: make(map[string]bool),
		entryBySong:     make(map[string]types.DownloadSummary),
	}
}

// State returns the cache's lifecycle state
func (c *Cache) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Downloads returns a copy of the current snapshot
func (c *Cache) Downloads() []types.DownloadSummary {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]types.DownloadSummary, len(c.snapshot))
	copy(out, c.snapshot)
	return out
}

// SetIdentity installs the current user and starts the cache: an
// immediate first refresh, then a periodic one while the identity stays
// present.
func (c *Cache) SetIdentity(userID string) {
	if userID == "" {
		c.ClearIdentity()
		return
	}

	c.mu.Lock()
	if c.identity == userID {
		c.mu.Unlock()
		return
	}
	c.stopPeriodicLocked()
	c.identity = userID
	c.api.SetIdentity(userID)
	c.state = StateLoading
	c.resetLocked()

	stop := make(chan struct{})
	c.stopPeriodic = stop
	c.mu.Unlock()

	go c.Refresh(context.Background())
	go c.periodicLoop(stop)
}

// ClearIdentity logs the cache out: the snapshot and both derived
// indexes are cleared together and the machine returns to Uninitialized.
func (c *Cache) ClearIdentity() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopPeriodicLocked()
	c.identity = ""
	c.api.SetIdentity("")
	c.state = StateUninitialized
	c.resetLocked()
}

// resetLocked clears the snapshot and both indexes. Caller holds c.mu.
func (c *Cache) resetLocked() {
	c.snapshot = nil
	c.availableBySong = make(map[string]bool)
	c.entryBySong = make(map[string]types.DownloadSummary)
	c.queued = false
}

func (c *Cache) stopPeriodicLocked() {
	if c.stopPeriodic != nil {
		close(c.stopPeriodic)
		c.stopPeriodic = nil
	}
}

func (c *Cache) periodicLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(c.refreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.Refresh(context.Background())
		}
	}
}

// Refresh fetches the full list and replaces the snapshot, rebuilding
// both derived indexes from scratch. Only one refresh runs at a time;
// a trigger arriving mid-flight coalesces onto the in-flight call and
// schedules exactly one follow-up. A failed refresh keeps the previous
// snapshot in place and reports the error.
func (c *Cache) Refresh(ctx context.Context) error {
	c.mu.Lock()
	if c.identity == "" {
		c.mu.Unlock()
		return ErrNoIdentity
	}
	if c.inFlight {
		c.queued = true
		c.mu.Unlock()
		return nil
	}
	c.inFlight = true
	if c.state == StateReady {
		c.state = StateRefreshing
	} else if c.state == StateUninitialized {
		c.state = StateLoading
	}
	c.mu.Unlock()

	list, err := c.api.ListAll(ctx)

	c.mu.Lock()
	c.inFlight = false
	rerun := c.queued
	c.queued = false

	if c.identity == "" {
		// Logged out while the fetch was in flight; the response is
		// for a user that is no longer current.
		c.mu.Unlock()
		return nil
	}

	if err != nil {
		// Stale-but-available beats empty: keep the last good snapshot.
		if c.snapshot != nil {
			c.state = StateReady
		} else {
			c.state = StateLoading
		}
		c.mu.Unlock()
		// A trigger that coalesced onto this failed call still gets its
		// refresh.
		if rerun {
			go c.Refresh(context.Background())
		}
		return err
	}

	c.snapshot = list
	c.availableBySong = make(map[string]bool, len(list))
	c.entryBySong = make(map[string]types.DownloadSummary, len(list))
	for _, d := range list {
		c.availableBySong[d.SongID] = d.Available()
		c.entryBySong[d.SongID] = d
	}
	c.state = StateReady
	c.mu.Unlock()

	if rerun {
		go c.Refresh(context.Background())
	}
	return nil
}

// IsDownloaded reports whether a download entry exists for the song
// (queued, in progress, or completed). The answer comes from the derived
// entry index; a miss is computed once from the snapshot and memoized.
func (c *Cache) IsDownloaded(songID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entryBySong[songID]; ok {
		return true
	}
	_, found := c.lookupAndMemoizeLocked(songID)
	return found
}

// IsAvailableOffline reports whether the song is playable offline right
// now (COMPLETED and not expired/evicted)
func (c *Cache) IsAvailableOffline(songID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if available, ok := c.availableBySong[songID]; ok {
		return available
	}
	entry, found := c.lookupAndMemoizeLocked(songID)
	return found && entry.Available()
}

// GetDownload returns the cached entry for a song, if any
func (c *Cache) GetDownload(songID string) (types.DownloadSummary, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entryBySong[songID]; ok {
		return entry, true
	}
	return c.lookupAndMemoizeLocked(songID)
}

// lookupAndMemoizeLocked scans the snapshot for a song and memoizes the
// result in both indexes together. Caller holds c.mu.
func (c *Cache) lookupAndMemoizeLocked(songID string) (types.DownloadSummary, bool) {
	for _, d := range c.snapshot {
		if d.SongID == songID {
			c.entryBySong[songID] = d
			c.availableBySong[songID] = d.Available()
			return d, true
		}
	}
	c.availableBySong[songID] = false
	return types.DownloadSummary{}, false
}

// DownloadSong queues a download for the song and optimistically merges
// the created job into the local snapshot, so callers see the queued
// state without waiting for the next full refresh. A one-shot reconcile
// refresh is scheduled to pick up server-side progress the merge cannot
// track. A failed call leaves the snapshot untouched.
func (c *Cache) DownloadSong(ctx context.Context, songID string) (types.DownloadSummary, error) {
	c.mu.Lock()
	identity := c.identity
	c.mu.Unlock()
	if identity == "" {
		return types.DownloadSummary{}, ErrNoIdentity
	}

	resp, err := c.api.Create(ctx, songID)
	if err != nil {
		return types.DownloadSummary{}, err
	}

	entry := resp.Download.Summary()

	c.mu.Lock()
	// An identity switch mid-call means the created entry belongs to the
	// previous user; it must not be spliced into the new user's snapshot.
	if c.identity == identity {
		merged := false
		for i, d := range c.snapshot {
			if d.SongID == songID {
				c.snapshot[i] = entry
				merged = true
				break
			}
		}
		if !merged {
			c.snapshot = append(c.snapshot, entry)
		}
		c.entryBySong[songID] = entry
		c.availableBySong[songID] = entry.Available()
	}
	c.mu.Unlock()

	time.AfterFunc(c.reconcileDelay, func() {
		c.Refresh(context.Background())
	})

	return entry, nil
}

// DeleteDownload removes a download and clears it from the snapshot and
// both indexes in one step, so no reader can observe a torn state. A 404
// on a retry of an already-applied delete still succeeds locally; a 404
// for a download this cache never held surfaces as ErrNotFound.
func (c *Cache) DeleteDownload(ctx context.Context, id string) error {
	c.mu.Lock()
	identity := c.identity
	c.mu.Unlock()
	if identity == "" {
		return ErrNoIdentity
	}

	err := c.api.Delete(ctx, id)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}

	c.mu.Lock()
	removed := false
	if c.identity == identity {
		for i, d := range c.snapshot {
			if d.ID == id {
				c.snapshot = append(c.snapshot[:i], c.snapshot[i+1:]...)
				delete(c.entryBySong, d.SongID)
				delete(c.availableBySong, d.SongID)
				removed = true
				break
			}
		}
	}
	c.mu.Unlock()

	if errors.Is(err, ErrNotFound) && !removed {
		return ErrNotFound
	}
	return nil
}
