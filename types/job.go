package types

import "time"

// DownloadStatus represents the lifecycle state of an offline download
type DownloadStatus string

const (
	StatusPending     DownloadStatus = "PENDING"
	StatusDownloading DownloadStatus = "DOWNLOADING"
	StatusCompleted   DownloadStatus = "COMPLETED"
	StatusFailed      DownloadStatus = "FAILED"
	StatusExpired     DownloadStatus = "EXPIRED"
)

// statusDisplay maps statuses to the user-facing labels
var statusDisplay = map[DownloadStatus]string{
	StatusPending:     "Đang chờ",
	StatusDownloading: "Đang tải xuống",
	StatusCompleted:   "Đã hoàn thành",
	StatusFailed:      "Tải thất bại",
	StatusExpired:     "Đã hết hạn",
}

// Display returns the user-facing label for a status
func (s DownloadStatus) Display() string {
	if d, ok := statusDisplay[s]; ok {
		return d
	}
	return "Không xác định"
}

// IsActive reports whether a download in this status occupies the
// one-per-song uniqueness slot
func (s DownloadStatus) IsActive() bool {
	return s == StatusPending || s == StatusDownloading || s == StatusCompleted
}

// IsTerminal reports whether no further transitions can occur
func (s DownloadStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusExpired
}

// SongDetails is a denormalized snapshot of the song's display fields,
// captured once at creation time so clients never need a second lookup
type SongDetails struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	Album    string `json:"album,omitempty"`
	Artwork  string `json:"artwork,omitempty"`
	Duration int    `json:"duration,omitempty"` // seconds
}

// Download represents one user's request to make one song available offline
type Download struct {
	ID            string         `json:"id"`
	UserID        string         `json:"-"`
	SongID        string         `json:"songId"`
	SongDetails   SongDetails    `json:"songDetails"`
	Status        DownloadStatus `json:"status"`
	StatusDisplay string         `json:"statusDisplay"`
	Progress      int            `json:"progress"`
	IsAvailable   bool           `json:"isAvailable"`
	DownloadTime  *time.Time     `json:"downloadTime,omitempty"`
	ExpiryTime    *time.Time     `json:"expiryTime,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// Available reports whether the song can be played back offline right now
func (d *Download) Available() bool {
	return d.Status == StatusCompleted && d.IsAvailable
}

// SetStatus transitions the download and keeps the display label in sync
func (d *Download) SetStatus(status DownloadStatus) {
	d.Status = status
	d.StatusDisplay = status.Display()
}

// Clone returns a deep copy so store internals never escape
func (d *Download) Clone() *Download {
	c := *d
	if d.DownloadTime != nil {
		t := *d.DownloadTime
		c.DownloadTime = &t
	}
	if d.ExpiryTime != nil {
		t := *d.ExpiryTime
		c.ExpiryTime = &t
	}
	return &c
}
