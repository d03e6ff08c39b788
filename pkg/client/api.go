package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Client-side errors, mapped from HTTP statuses.
var (
	ErrNotFound            = errors.New("not found")
	ErrAlreadyCollaborator = errors.New("already a collaborator")
	ErrTransport           = errors.New("transport failure")
)

// Note mirrors the server's note representation; content stays opaque bytes.
type Note struct {
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	Content       json.RawMessage `json:"content"`
	CreatedBy     string          `json:"createdBy"`
	Collaborators []string        `json:"collaborators"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// Version is one history entry, newest first in listings.
type Version struct {
	ID        string          `json:"id"`
	Content   json.RawMessage `json:"content"`
	EditedBy  string          `json:"editedBy"`
	Timestamp time.Time       `json:"timestamp"`
}

// StoreClient talks to the persistence surface over HTTP.
type StoreClient struct {
	base string
	http *http.Client
}

func NewStoreClient(base string) *StoreClient {
	return &StoreClient{
		base: base,
		http: &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *StoreClient) CreateNote(ctx context.Context, title string, content json.RawMessage, userID string) (*Note, error) {
	body := map[string]interface{}{"title": title, "content": content, "userId": userID}
	var n Note
	if err := c.do(ctx, http.MethodPost, "/api/notes", body, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

func (c *StoreClient) ListNotes(ctx context.Context, collaboratorID string) ([]Note, error) {
	path := "/api/notes"
	if collaboratorID != "" {
		path += "?collaborator=" + url.QueryEscape(collaboratorID)
	}
	var out []Note
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *StoreClient) GetNote(ctx context.Context, id string) (*Note, error) {
	var n Note
	if err := c.do(ctx, http.MethodGet, "/api/notes/"+url.PathEscape(id), nil, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

func (c *StoreClient) UpdateNote(ctx context.Context, id string, title *string, content json.RawMessage, userID string) (*Note, error) {
	body := map[string]interface{}{"userId": userID}
	if title != nil {
		body["title"] = *title
	}
	if content != nil {
		body["content"] = content
	}
	var n Note
	if err := c.do(ctx, http.MethodPut, "/api/notes/"+url.PathEscape(id), body, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

func (c *StoreClient) DeleteNote(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/notes/"+url.PathEscape(id), nil, nil)
}

func (c *StoreClient) ListVersions(ctx context.Context, id string) ([]Version, error) {
	var out []Version
	if err := c.do(ctx, http.MethodGet, "/api/notes/"+url.PathEscape(id)+"/versions", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *StoreClient) RestoreVersion(ctx context.Context, id, versionID, userID string) (*Note, error) {
	body := map[string]string{"versionId": versionID, "userId": userID}
	var n Note
	if err := c.do(ctx, http.MethodPost, "/api/notes/"+url.PathEscape(id)+"/restore", body, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

func (c *StoreClient) Invite(ctx context.Context, id, email string) (*Note, error) {
	body := map[string]string{"email": email}
	var n Note
	if err := c.do(ctx, http.MethodPost, "/api/notes/"+url.PathEscape(id)+"/invite", body, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

func (c *StoreClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if out == nil {
			return nil
		}
		return json.NewDecoder(resp.Body).Decode(out)
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusBadRequest:
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if e.Error == "user is already a collaborator" {
			return ErrAlreadyCollaborator
		}
		return fmt.Errorf("bad request: %s", e.Error)
	default:
		return fmt.Errorf("%w: unexpected status %d", ErrTransport, resp.StatusCode)
	}
}
