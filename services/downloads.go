package services

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"fermata/store"
	"fermata/types"
	"fermata/websocket"
)

// ErrSongRequired is returned by Create when the song id is missing
var ErrSongRequired = errors.New("song ID is required")

// FailureHook lets callers inject transfer failures. It is consulted on
// every progression tick while the download is DOWNLOADING; returning
// true flips the job to FAILED and halts progression. The default (nil)
// never fails.
type FailureHook func(d *types.Download) bool

// DownloadService interface defines the methods for managing offline downloads
type DownloadService interface {
	Create(userID, songID string) (*types.Download, error)
	List(userID string, status types.DownloadStatus, limit, offset int) ([]*types.Download, int)
	Get(userID, id string) (*types.Download, bool)
	Delete(userID, id string) bool
	Shutdown()
}

// downloadService owns the authoritative download state machine and the
// per-job progression runners
type downloadService struct {
	store       store.Store
	catalog     SongCatalog
	hub         websocket.Hub
	tick        time.Duration
	expiryAfter time.Duration
	failureHook FailureHook

	mu      sync.Mutex
	cancels map[string]chan struct{}
}

// Options tunes the download service
type Options struct {
	// Tick is the progression cadence; each tick advances progress by 20
	// percentage points. Defaults to 5 seconds.
	Tick time.Duration
	// ExpiryAfter is how long a completed download stays available.
	// Defaults to 30 days.
	ExpiryAfter time.Duration
	// FailureHook injects simulated transfer failures.
	FailureHook FailureHook
}

// NewDownloadService creates a new download service. hub may be nil when
// progress broadcasting is not wanted.
func NewDownloadService(st store.Store, catalog SongCatalog, hub websocket.Hub, opts Options) DownloadService {
	if opts.Tick <= 0 {
		opts.Tick = 5 * time.Second
	}
	if opts.ExpiryAfter <= 0 {
		opts.ExpiryAfter = 30 * 24 * time.Hour
	}
	return &downloadService{
		store:       st,
		catalog:     catalog,
		hub:         hub,
		tick:        opts.Tick,
		expiryAfter: opts.ExpiryAfter,
		failureHook: opts.FailureHook,
		cancels:     make(map[string]chan struct{}),
	}
}

// Create queues a new download and starts its progression runner. An
// active download for the same (user, song) pair yields a
// *store.ConflictError carrying the existing record.
func (s *downloadService) Create(userID, songID string) (*types.Download, error) {
	if songID == "" {
		return nil, ErrSongRequired
	}

	details, err := s.catalog.Lookup(songID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve song %s: %w", songID, err)
	}

	now := time.Now()
	d := &types.Download{
		ID:          uuid.New().String(),
		UserID:      userID,
		SongID:      songID,
		SongDetails: details,
		Progress:    0,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	d.SetStatus(types.StatusPending)

	if err := s.store.Insert(userID, d); err != nil {
		return nil, err
	}

	s.mu.Lock()
	cancel := make(chan struct{})
	s.cancels[d.ID] = cancel
	s.mu.Unlock()

	go s.run(userID, d.ID, songID, cancel)

	s.broadcast(d, "status", "download queued")
	return d.Clone(), nil
}

// List returns a page of the user's downloads, optionally filtered by
// status, plus the filtered total
func (s *downloadService) List(userID string, status types.DownloadStatus, limit, offset int) ([]*types.Download, int) {
	all := s.store.List(userID)

	filtered := all
	if status != "" {
		filtered = filtered[:0:0]
		for _, d := range all {
			if d.Status == status {
				filtered = append(filtered, d)
			}
		}
	}

	total := len(filtered)
	if offset >= total {
		return []*types.Download{}, total
	}
	end := offset + limit
	if limit <= 0 || end > total {
		end = total
	}
	return filtered[offset:end], total
}

// Get returns a single download owned by the user
func (s *downloadService) Get(userID, id string) (*types.Download, bool) {
	return s.store.Get(userID, id)
}

// Delete removes a download regardless of status and signals its
// progression runner to stop. Reports false when no such download exists.
func (s *downloadService) Delete(userID, id string) bool {
	if !s.store.Delete(userID, id) {
		return false
	}

	s.mu.Lock()
	if cancel, ok := s.cancels[id]; ok {
		close(cancel)
		delete(s.cancels, id)
	}
	s.mu.Unlock()

	return true
}

// Shutdown stops all progression runners
func (s *downloadService) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, cancel := range s.cancels {
		close(cancel)
		delete(s.cancels, id)
	}
}

// clearRunner removes a runner's cancel entry after it exits on its own
func (s *downloadService) clearRunner(id string) {
	s.mu.Lock()
	delete(s.cancels, id)
	s.mu.Unlock()
}

// run advances a single download until it reaches a terminal status, the
// download is deleted, or the runner is cancelled. Every write goes
// through store.Update, so the existence check and the mutation share one
// critical section: a tick can never resurrect a concurrently deleted
// download.
func (s *downloadService) run(userID, id, songID string, cancel <-chan struct{}) {
	defer s.clearRunner(id)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-cancel:
			return
		case <-ticker.C:
		}

		// The delete may have won the race while we slept.
		select {
		case <-cancel:
			return
		default:
		}

		var snapshot *types.Download
		updated := s.store.Update(userID, id, func(d *types.Download) {
			now := time.Now()
			if d.Status == types.StatusPending {
				d.SetStatus(types.StatusDownloading)
			}
			if s.failureHook != nil && d.Status == types.StatusDownloading && s.failureHook(d) {
				d.SetStatus(types.StatusFailed)
				d.UpdatedAt = now
				snapshot = d.Clone()
				return
			}
			if d.Progress < 100 {
				d.Progress += 20
				if d.Progress > 100 {
					d.Progress = 100
				}
			}
			if d.Progress == 100 {
				d.SetStatus(types.StatusCompleted)
				d.IsAvailable = true
				d.DownloadTime = &now
				expiry := now.Add(s.expiryAfter)
				d.ExpiryTime = &expiry
			}
			d.UpdatedAt = now
			snapshot = d.Clone()
		})
		if !updated {
			// Deleted concurrently; the delete already won.
			return
		}

		switch snapshot.Status {
		case types.StatusCompleted:
			s.broadcast(snapshot, "complete", fmt.Sprintf("%s download completed", snapshot.SongDetails.Title))
			return
		case types.StatusFailed:
			s.broadcast(snapshot, "error", "download failed")
			log.Printf("Download %s failed for song %s", id, songID)
			return
		default:
			s.broadcast(snapshot, "progress", "")
		}
	}
}

// broadcast publishes a progress update via the WebSocket hub, if any
func (s *downloadService) broadcast(d *types.Download, msgType, message string) {
	if s.hub == nil {
		return
	}
	s.hub.BroadcastProgress(types.ProgressMessage{
		DownloadID: d.ID,
		UserID:     d.UserID,
		SongID:     d.SongID,
		Type:       msgType,
		Status:     d.Status,
		Progress:   d.Progress,
		Message:    message,
		Timestamp:  time.Now(),
	})
}
