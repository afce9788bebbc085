package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"fermata/middleware"
	"fermata/services"
	"fermata/store"
	"fermata/types"
	"fermata/websocket"
)

const defaultListLimit = 10

// DownloadHandler handles offline download endpoints
type DownloadHandler struct {
	downloads services.DownloadService
	hub       websocket.Hub
}

// NewDownloadHandler creates a new download handler
func NewDownloadHandler(ds services.DownloadService, hub websocket.Hub) *DownloadHandler {
	return &DownloadHandler{
		downloads: ds,
		hub:       hub,
	}
}

// List returns a page of the caller's downloads, optionally filtered by status
func (h *DownloadHandler) List(c *gin.Context) {
	userID := middleware.UserID(c)

	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	offset := 0
	if raw := c.Query("offset"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			offset = n
		}
	}

	status := types.DownloadStatus(c.Query("status"))
	page, total := h.downloads.List(userID, status, limit, offset)

	summaries := make([]types.DownloadSummary, 0, len(page))
	for _, d := range page {
		summaries = append(summaries, d.Summary())
	}

	c.JSON(http.StatusOK, types.ListDownloadsResponse{
		Downloads: summaries,
		Total:     total,
		Limit:     limit,
		Offset:    offset,
	})
}

// Create queues a new download for the caller
func (h *DownloadHandler) Create(c *gin.Context) {
	userID := middleware.UserID(c)

	var req types.CreateDownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.SongID == "" {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error: "Song ID is required",
		})
		return
	}

	d, err := h.downloads.Create(userID, req.SongID)
	if err != nil {
		var conflict *store.ConflictError
		switch {
		case errors.As(err, &conflict):
			c.JSON(http.StatusConflict, types.ErrorResponse{
				Error:      "Song is already downloaded or queued for download",
				DownloadID: conflict.Existing.ID,
			})
		case errors.Is(err, services.ErrSongRequired):
			c.JSON(http.StatusBadRequest, types.ErrorResponse{
				Error: "Song ID is required",
			})
		default:
			log.Printf("Error creating download: %v", err)
			c.JSON(http.StatusInternalServerError, types.ErrorResponse{
				Error: "Internal Server Error",
			})
		}
		return
	}

	c.JSON(http.StatusCreated, types.CreateDownloadResponse{
		Message:    "Download queued successfully",
		DownloadID: d.ID,
		Download:   d,
	})
}

// Get returns the full detail of one download, song snapshot included
func (h *DownloadHandler) Get(c *gin.Context) {
	userID := middleware.UserID(c)

	d, ok := h.downloads.Get(userID, c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, types.ErrorResponse{
			Error: "Download not found",
		})
		return
	}

	c.JSON(http.StatusOK, d)
}

// Status returns the lightweight polling projection of one download
func (h *DownloadHandler) Status(c *gin.Context) {
	userID := middleware.UserID(c)

	d, ok := h.downloads.Get(userID, c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, types.ErrorResponse{
			Error: "Download not found",
		})
		return
	}

	c.JSON(http.StatusOK, d.StatusProjection())
}

// Delete removes a download regardless of status. A genuinely absent id
// yields 404; the progression runner for a deleted download is cancelled.
func (h *DownloadHandler) Delete(c *gin.Context) {
	userID := middleware.UserID(c)

	if !h.downloads.Delete(userID, c.Param("id")) {
		c.JSON(http.StatusNotFound, types.ErrorResponse{
			Error: "Download not found",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Download deleted successfully",
	})
}

// WatchDownload handles WebSocket connections for one download's progress
func (h *DownloadHandler) WatchDownload(c *gin.Context) {
	userID := middleware.UserID(c)
	downloadID := c.Param("id")

	if _, ok := h.downloads.Get(userID, downloadID); !ok {
		c.JSON(http.StatusNotFound, types.ErrorResponse{
			Error: "Download not found",
		})
		return
	}

	upgrader := websocket.GetUpgrader()
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := websocket.NewClient(h.hub, conn, downloadID)
	h.hub.RegisterClient(client)
	client.StartPumps()
}

// WatchAll handles WebSocket connections for all of the caller's own
// download progress
func (h *DownloadHandler) WatchAll(c *gin.Context) {
	userID := middleware.UserID(c)

	upgrader := websocket.GetUpgrader()
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := websocket.NewClient(h.hub, conn, websocket.FirehoseKey(userID))
	h.hub.RegisterClient(client)
	client.StartPumps()
}
