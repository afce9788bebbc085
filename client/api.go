package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"fermata/types"
)

const listPageSize = 100

// API calls the offline download endpoints on behalf of one identity.
// All requests carry a bounded timeout; the identity is attached as the
// opaque X-User-ID key the server's session collaborator expects.
type API struct {
	baseURL string
	http    *http.Client

	mu       sync.RWMutex
	identity string
}

// NewAPI creates an API caller for the given base URL
func NewAPI(baseURL string, timeout time.Duration) *API {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &API{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// SetIdentity attaches the identity sent with every subsequent request.
// An empty string detaches it.
func (a *API) SetIdentity(userID string) {
	a.mu.Lock()
	a.identity = userID
	a.mu.Unlock()
}

func (a *API) currentIdentity() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.identity
}

// do performs a request and decodes the response into out (when non-nil).
// Non-2xx responses are mapped onto the error taxonomy; network-level
// failures come back wrapped in *TransientError.
func (a *API) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	} else {
		reqBody = &bytes.Buffer{}
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if identity := a.currentIdentity(); identity != "" {
		req.Header.Set("X-User-ID", identity)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return &TransientError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		return json.NewDecoder(resp.Body).Decode(out)
	}

	var apiErr types.ErrorResponse
	json.NewDecoder(resp.Body).Decode(&apiErr)

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return &ConflictError{DownloadID: apiErr.DownloadID}
	default:
		if apiErr.Error != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}
}

// List fetches one page of downloads
func (a *API) List(ctx context.Context, status types.DownloadStatus, limit, offset int) (*types.ListDownloadsResponse, error) {
	q := url.Values{}
	if status != "" {
		q.Set("status", string(status))
	}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))

	var out types.ListDownloadsResponse
	if err := a.do(ctx, http.MethodGet, "/api/v1/offline/downloads?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListAll pages through the full download list
func (a *API) ListAll(ctx context.Context) ([]types.DownloadSummary, error) {
	var all []types.DownloadSummary
	offset := 0
	for {
		page, err := a.List(ctx, "", listPageSize, offset)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Downloads...)
		offset += len(page.Downloads)
		if offset >= page.Total || len(page.Downloads) == 0 {
			return all, nil
		}
	}
}

// Create queues a new download for the song
func (a *API) Create(ctx context.Context, songID string) (*types.CreateDownloadResponse, error) {
	var out types.CreateDownloadResponse
	req := types.CreateDownloadRequest{SongID: songID}
	if err := a.do(ctx, http.MethodPost, "/api/v1/offline/downloads", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Get fetches the full detail of one download, song snapshot included
func (a *API) Get(ctx context.Context, id string) (*types.Download, error) {
	var out types.Download
	if err := a.do(ctx, http.MethodGet, "/api/v1/offline/downloads/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Status fetches the lightweight polling projection of one download
func (a *API) Status(ctx context.Context, id string) (*types.StatusResponse, error) {
	var out types.StatusResponse
	if err := a.do(ctx, http.MethodGet, "/api/v1/offline/downloads/"+id+"/status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes a download
func (a *API) Delete(ctx context.Context, id string) error {
	return a.do(ctx, http.MethodDelete, "/api/v1/offline/downloads/"+id, nil, nil)
}
