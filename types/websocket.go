package types

import "time"

// ProgressMessage represents a WebSocket progress update message
type ProgressMessage struct {
	DownloadID string         `json:"downloadId"`
	UserID     string         `json:"userId"`
	SongID     string         `json:"songId"`
	Type       string         `json:"type"` // "progress", "status", "complete", "error"
	Status     DownloadStatus `json:"status"`
	Progress   int            `json:"progress"` // 0-100 percentage
	Message    string         `json:"message,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}
