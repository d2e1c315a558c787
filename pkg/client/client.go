package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cuemby/hostkeeper/pkg/api"
)

// ErrCheckInProgress is returned when the daemon is already checking the server
var ErrCheckInProgress = errors.New("server check already in progress")

// APIError is an error reported by the daemon
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s (HTTP %d)", e.Code, e.Message, e.Status)
}

// Client talks to a running hostkeeper daemon
type Client struct {
	base *url.URL
	http *http.Client
}

// NewClient creates a client for the API at addr (host:port or URL)
func NewClient(addr string) (*Client, error) {
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	base, err := url.Parse(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid API address %q: %w", addr, err)
	}

	return &Client{
		base: base,
		// A synchronous check can take up to the daemon's run timeout
		http: &http.Client{Timeout: 90 * time.Second},
	}, nil
}

// ListServers returns every server known to the daemon
func (c *Client) ListServers(ctx context.Context) ([]api.ServerResponse, error) {
	var out []api.ServerResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/servers", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetServer returns one server
func (c *Client) GetServer(ctx context.Context, id string) (*api.ServerResponse, error) {
	var out api.ServerResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/servers/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CheckServer runs a server check in the daemon and waits for its outcome
func (c *Client) CheckServer(ctx context.Context, id string) (*api.OutcomeResponse, error) {
	var out api.OutcomeResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/servers/"+url.PathEscape(id)+"/check", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.base.JoinPath(path).String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach daemon: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	apiErr := &APIError{Status: resp.StatusCode, Code: "HTTP_ERROR", Message: resp.Status}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Error.Code != "" {
		apiErr.Code = body.Error.Code
		apiErr.Message = body.Error.Message
	}

	if resp.StatusCode == http.StatusConflict {
		return fmt.Errorf("%w: %s", ErrCheckInProgress, apiErr.Message)
	}
	return apiErr
}
