// Package httpstore implements store.RecordStore against the hub's JSON API.
// Terminals use it as their only write path; every response code is folded
// into the store package's error vocabulary so callers never branch on HTTP.
package httpstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jza-lab/tpi-pyme-alimenticia-sub000/internal/presencia/store"
	"github.com/jza-lab/tpi-pyme-alimenticia-sub000/internal/presencia/types"
)

const defaultTimeout = 10 * time.Second

// Client is a RecordStore backed by the hub over HTTP.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: defaultTimeout},
	}
}

// WithSupervisorToken attaches a bearer token to every request.  The hub only
// checks it on the privileged authorization-resolution route.
func (c *Client) WithSupervisorToken(token string) *Client {
	c.token = token
	return c
}

var _ store.RecordStore = (*Client)(nil)

func (c *Client) ListIdentities(ctx context.Context) ([]types.Identity, error) {
	var out []types.Identity
	if err := c.get(ctx, "/v1/identities", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) InsertIdentity(ctx context.Context, id types.Identity) (types.Identity, error) {
	var out types.Identity
	if err := c.post(ctx, "/v1/identities", id, &out); err != nil {
		return types.Identity{}, err
	}
	return out, nil
}

func (c *Client) ListAccessEvents(ctx context.Context) ([]types.AccessEvent, error) {
	var out []types.AccessEvent
	if err := c.get(ctx, "/v1/events", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListPendingAuthorizations(ctx context.Context) ([]types.AccessEvent, error) {
	var out []types.AccessEvent
	if err := c.get(ctx, "/v1/authorizations", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// QueryLastEvent maps the hub's 404 onto (nil, nil): "no approved event yet"
// is an answer, not a failure.
func (c *Client) QueryLastEvent(ctx context.Context, employeeCode string) (*types.AccessEvent, error) {
	var out types.AccessEvent
	path := "/v1/events/last?employee_code=" + url.QueryEscape(employeeCode)
	if err := c.get(ctx, path, &out); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

func (c *Client) InsertAccessEvent(ctx context.Context, ev types.AccessEvent) (types.AccessEvent, error) {
	var out types.AccessEvent
	if err := c.post(ctx, "/v1/events", ev, &out); err != nil {
		return types.AccessEvent{}, err
	}
	return out, nil
}

func (c *Client) ResolveAuthorization(ctx context.Context, recordID string, outcome types.EventStatus) (types.AccessEvent, error) {
	var out types.AccessEvent
	path := "/v1/authorizations/" + recordID + "/resolve"
	body := struct {
		Outcome types.EventStatus `json:"outcome"`
	}{Outcome: outcome}
	if err := c.post(ctx, path, body, &out); err != nil {
		return types.AccessEvent{}, err
	}
	return out, nil
}

// ── transport ──

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("hub request %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errorFromResponse(resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// errorFromResponse turns an error payload into the matching store sentinel
// where one exists, and a StatusError otherwise.
func errorFromResponse(status int, raw []byte) error {
	var apiErr struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(raw, &apiErr)

	switch apiErr.Code {
	case "pending_exists":
		return store.ErrPendingExists
	case "duplicate_employee":
		return store.ErrDuplicateEmployee
	case "already_resolved":
		return store.ErrAlreadyResolved
	case "bad_outcome":
		return store.ErrInvalidOutcome
	case "not_found":
		return store.ErrNotFound
	}

	msg := apiErr.Message
	if msg == "" {
		msg = strings.TrimSpace(string(raw))
	}
	return &store.StatusError{Status: status, Message: msg}
}
