package types

import "time"

// DownloadSummary is the trimmed projection returned by the list endpoint.
// The full song snapshot is intentionally omitted; clients fetch it lazily
// through the detail endpoint.
type DownloadSummary struct {
	ID            string         `json:"id"`
	SongID        string         `json:"songId"`
	SongTitle     string         `json:"songTitle"`
	Artist        string         `json:"artist"`
	Status        DownloadStatus `json:"status"`
	StatusDisplay string         `json:"statusDisplay"`
	Progress      int            `json:"progress"`
	IsAvailable   bool           `json:"isAvailable"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// Summary projects a download into its list representation
func (d *Download) Summary() DownloadSummary {
	return DownloadSummary{
		ID:            d.ID,
		SongID:        d.SongID,
		SongTitle:     d.SongDetails.Title,
		Artist:        d.SongDetails.Artist,
		Status:        d.Status,
		StatusDisplay: d.StatusDisplay,
		Progress:      d.Progress,
		IsAvailable:   d.IsAvailable,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

// Available reports whether the summarized download is playable offline
func (s DownloadSummary) Available() bool {
	return s.Status == StatusCompleted && s.IsAvailable
}

// ListDownloadsResponse is the paginated list payload
type ListDownloadsResponse struct {
	Downloads []DownloadSummary `json:"downloads"`
	Total     int               `json:"total"`
	Limit     int               `json:"limit"`
	Offset    int               `json:"offset"`
}

// CreateDownloadRequest is the body for queueing a new download
type CreateDownloadRequest struct {
	SongID string `json:"songId"`
}

// CreateDownloadResponse is the 201 payload for a queued download
type CreateDownloadResponse struct {
	Message    string    `json:"message"`
	DownloadID string    `json:"downloadId"`
	Download   *Download `json:"download"`
}

// StatusResponse is the lightweight projection for high-frequency polling
type StatusResponse struct {
	ID            string         `json:"id"`
	Status        DownloadStatus `json:"status"`
	StatusDisplay string         `json:"statusDisplay"`
	Progress      int            `json:"progress"`
}

// StatusProjection projects a download into its polling representation
func (d *Download) StatusProjection() StatusResponse {
	return StatusResponse{
		ID:            d.ID,
		Status:        d.Status,
		StatusDisplay: d.StatusDisplay,
		Progress:      d.Progress,
	}
}

// ErrorResponse is the uniform error body
type ErrorResponse struct {
	Error string `json:"error"`
	// DownloadID carries the existing job's id on duplicate-download
	// conflicts so the caller can redirect to it
	DownloadID string `json:"downloadId,omitempty"`
}
