// Package client provides a typed HTTP client for the inkpad API.
//
// The client is the sync engine's remote store: it exposes the note CRUD,
// sharing, public-read, and leaderboard endpoints with the same
// [github.com/inkpad/inkpad/pkg/models] types the server uses, handles the
// JSON envelopes, and carries the bearer token once one is set.
//
// [Client.Beacon] is the one deliberately fire-and-forget call: the page-hide
// flush. It detaches from the caller's context, returns before any response
// arrives, and gives no delivery confirmation; callers must never treat a
// beacon as confirmed persistence.
//
// Client values are safe for concurrent use.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/inkpad/inkpad/pkg/models"
)

// beaconTimeout bounds the detached beacon request so an unreachable server
// cannot pin goroutines.
const beaconTimeout = 5 * time.Second

// Client accesses the inkpad REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu        sync.RWMutex
	authToken string
}

// New creates a client for the API at baseURL (scheme and host, no trailing
// slash, no /api prefix).
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetAuthToken installs the bearer token used on authenticated requests.
// An empty string clears it.
func (c *Client) SetAuthToken(token string) {
	c.mu.Lock()
	c.authToken = token
	c.mu.Unlock()
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d message=%s", e.StatusCode, e.Message)
}

func (c *Client) doRequest(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	c.mu.RLock()
	token := c.authToken
	c.mu.RUnlock()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return c.httpClient.Do(req)
}

func decodeResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		body, _ := io.ReadAll(resp.Body)
		if err := json.Unmarshal(body, &apiErr); err != nil || apiErr.Error == "" {
			apiErr.Error = string(body)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: apiErr.Error}
	}

	if target != nil {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// Response envelopes mirror the server's JSON surface.

type noteEnvelope struct {
	Note *models.Note `json:"note"`
}

type notesEnvelope struct {
	Notes []*models.Note `json:"notes"`
}

type shareEnvelope struct {
	Note      *models.Note `json:"note"`
	PublicURL string       `json:"publicUrl"`
	PublicID  string       `json:"publicId"`
}

type successEnvelope struct {
	Success bool `json:"success"`
}

type leaderboardEnvelope struct {
	Leaderboard []models.LeaderboardEntry `json:"leaderboard"`
}

// Health checks the health endpoint.
func (c *Client) Health(ctx context.Context) (map[string]any, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/api/health", nil)
	if err != nil {
		return nil, err
	}
	var result map[string]any
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// ListNotes returns the authenticated user's notes, newest created first.
func (c *Client) ListNotes(ctx context.Context) ([]*models.Note, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/api/notes", nil)
	if err != nil {
		return nil, err
	}
	var result notesEnvelope
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}
	return result.Notes, nil
}

// CreateNote creates a note. Empty title and content fall back to the
// server-side defaults.
func (c *Client) CreateNote(ctx context.Context, title, content string) (*models.Note, error) {
	body := map[string]string{"title": title, "content": content}
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/notes", body)
	if err != nil {
		return nil, err
	}
	var result noteEnvelope
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}
	return result.Note, nil
}

// UpdateNote applies a partial update and returns the server's row.
func (c *Client) UpdateNote(ctx context.Context, id models.NoteID, change models.PendingChange) (*models.Note, error) {
	resp, err := c.doRequest(ctx, http.MethodPut, fmt.Sprintf("/api/notes/%s", id), change)
	if err != nil {
		return nil, err
	}
	var result noteEnvelope
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}
	return result.Note, nil
}

// DeleteNote deletes the note. The server silently no-ops when the note is
// not the caller's, so success here does not prove the row existed.
func (c *Client) DeleteNote(ctx context.Context, id models.NoteID) error {
	resp, err := c.doRequest(ctx, http.MethodDelete, fmt.Sprintf("/api/notes/%s", id), nil)
	if err != nil {
		return err
	}
	var result successEnvelope
	return decodeResponse(resp, &result)
}

// ShareNote makes the note public and returns the note with its fresh share
// URL and token.
func (c *Client) ShareNote(ctx context.Context, id models.NoteID) (*models.SharedNote, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, fmt.Sprintf("/api/notes/%s/share", id), nil)
	if err != nil {
		return nil, err
	}
	var result shareEnvelope
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}
	return &models.SharedNote{
		Note:      result.Note,
		PublicURL: result.PublicURL,
		PublicID:  result.PublicID,
	}, nil
}

// UnshareNote revokes the note's public token and returns the updated note.
func (c *Client) UnshareNote(ctx context.Context, id models.NoteID) (*models.Note, error) {
	resp, err := c.doRequest(ctx, http.MethodDelete, fmt.Sprintf("/api/notes/%s/share", id), nil)
	if err != nil {
		return nil, err
	}
	var result noteEnvelope
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}
	return result.Note, nil
}

// GetPublicNote fetches a shared note by its public token, no auth required.
func (c *Client) GetPublicNote(ctx context.Context, publicID string) (*models.Note, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("/api/public/%s", publicID), nil)
	if err != nil {
		return nil, err
	}
	var result noteEnvelope
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}
	return result.Note, nil
}

// Leaderboard fetches the public leaderboard.
func (c *Client) Leaderboard(ctx context.Context) ([]models.LeaderboardEntry, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/api/leaderboard", nil)
	if err != nil {
		return nil, err
	}
	var result leaderboardEnvelope
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}
	return result.Leaderboard, nil
}

// Beacon sends a best-effort partial update for the note and returns
// immediately. The request runs on a detached context so it can outlive the
// caller (the page-hide case); there is no status, no retry, and no
// confirmation. Do not treat a beacon as persisted data.
func (c *Client) Beacon(id models.NoteID, change models.PendingChange) {
	if change.IsEmpty() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), beaconTimeout)
		defer cancel()
		resp, err := c.doRequest(ctx, http.MethodPut, fmt.Sprintf("/api/notes/%s", id), change)
		if err != nil {
			return
		}
		resp.Body.Close()
	}()
}
