package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusDisplay(t *testing.T) {
	tests := []struct {
		status  DownloadStatus
		display string
	}{
		{StatusPending, "Đang chờ"},
		{StatusDownloading, "Đang tải xuống"},
		{StatusCompleted, "Đã hoàn thành"},
		{StatusFailed, "Tải thất bại"},
		{StatusExpired, "Đã hết hạn"},
		{DownloadStatus("BOGUS"), "Không xác định"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.display, tt.status.Display())
	}
}

func TestStatusClassification(t *testing.T) {
	// COMPLETED both occupies the uniqueness slot and is terminal
	assert.True(t, StatusPending.IsActive())
	assert.True(t, StatusDownloading.IsActive())
	assert.True(t, StatusCompleted.IsActive())
	assert.False(t, StatusFailed.IsActive())
	assert.False(t, StatusExpired.IsActive())

	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusDownloading.IsTerminal())
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
	assert.True(t, StatusExpired.IsTerminal())
}

func TestDownloadAvailable(t *testing.T) {
	d := &Download{}
	d.SetStatus(StatusCompleted)
	assert.False(t, d.Available(), "completed but evicted is not playable")

	d.IsAvailable = true
	assert.True(t, d.Available())

	d.SetStatus(StatusExpired)
	assert.False(t, d.Available())
}

func TestSetStatusKeepsDisplayInSync(t *testing.T) {
	d := &Download{}
	d.SetStatus(StatusDownloading)
	assert.Equal(t, "Đang tải xuống", d.StatusDisplay)

	d.SetStatus(StatusFailed)
	assert.Equal(t, "Tải thất bại", d.StatusDisplay)
}

func TestCloneDoesNotShareTimestamps(t *testing.T) {
	now := time.Now()
	expiry := now.Add(time.Hour)
	d := &Download{DownloadTime: &now, ExpiryTime: &expiry}

	c := d.Clone()
	require.NotNil(t, c.DownloadTime)

	*c.DownloadTime = now.Add(time.Minute)
	assert.True(t, d.DownloadTime.Equal(now))
}

func TestSummaryProjection(t *testing.T) {
	now := time.Now()
	d := &Download{
		ID:     "d1",
		SongID: "s1",
		SongDetails: SongDetails{
			Title:  "Song 1",
			Artist: "Artist Name",
		},
		Progress:    60,
		IsAvailable: false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	d.SetStatus(StatusDownloading)

	s := d.Summary()
	assert.Equal(t, "d1", s.ID)
	assert.Equal(t, "s1", s.SongID)
	assert.Equal(t, "Song 1", s.SongTitle)
	assert.Equal(t, "Artist Name", s.Artist)
	assert.Equal(t, StatusDownloading, s.Status)
	assert.Equal(t, "Đang tải xuống", s.StatusDisplay)
	assert.Equal(t, 60, s.Progress)
	assert.False(t, s.Available())
}
