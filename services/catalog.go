package services

import (
	"fmt"

	"fermata/types"
)

// SongCatalog resolves a song id to its display snapshot at download
// creation time. The media library itself is an external collaborator;
// this interface is its seam.
type SongCatalog interface {
	Lookup(songID string) (types.SongDetails, error)
}

// StaticCatalog serves song snapshots from a fixed in-memory table.
// Unknown ids get placeholder details so a download can always be queued
// against a library the service cannot see.
type StaticCatalog struct {
	songs map[string]types.SongDetails
}

// NewStaticCatalog creates a catalog from the given songs
func NewStaticCatalog(songs ...types.SongDetails) *StaticCatalog {
	c := &StaticCatalog{songs: make(map[string]types.SongDetails, len(songs))}
	for _, s := range songs {
		c.songs[s.ID] = s
	}
	return c
}

// Lookup returns the snapshot for a song id
func (c *StaticCatalog) Lookup(songID string) (types.SongDetails, error) {
	if s, ok := c.songs[songID]; ok {
		return s, nil
	}
	return types.SongDetails{
		ID:     songID,
		Title:  fmt.Sprintf("Song %s", songID),
		Artist: "Artist Name",
	}, nil
}
