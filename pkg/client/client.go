package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client provides HTTP client functionality to communicate with the anrwatch daemon
type Client struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// Config holds client configuration
type Config struct {
	BaseURL string
	Timeout time.Duration
	Logger  *slog.Logger // Optional logger for client operations
}

// DefaultConfig returns default client configuration
func DefaultConfig() Config {
	return Config{
		BaseURL: "http://127.0.0.1:8090/api",
		Timeout: 10 * time.Second,
	}
}

// APIError is returned for non-2xx responses.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// New creates a new anrwatch API client
func New(config Config) *Client {
	def := DefaultConfig()
	if config.BaseURL == "" {
		config.BaseURL = def.BaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = def.Timeout
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		logger:  config.Logger,
		client:  &http.Client{Timeout: config.Timeout},
	}
}

// IsReachable checks if the daemon is running and reachable
func (c *Client) IsReachable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/status", nil)
	if err != nil {
		c.logger.Debug("Failed to create request for reachability check", "error", err)
		return false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("Daemon unreachable", "error", err)
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	isReachable := resp.StatusCode != http.StatusNotFound
	c.logger.Debug("Daemon reachability check", "reachable", isReachable, "status", resp.StatusCode)
	return isReachable
}

// Status fetches the watchdog summary and record table.
func (c *Client) Status(ctx context.Context) (Status, error) {
	var st Status
	err := c.do(ctx, http.MethodGet, "/status", nil, &st)
	return st, err
}

// AddClient registers a client identity.
func (c *Client) AddClient(ctx context.Context, req ClientRequest) error {
	c.logger.Debug("Registering client", "id", req.ID, "kind", req.Kind, "pid", req.PID)
	return c.do(ctx, http.MethodPost, "/clients", req, nil)
}

// RemoveClient destroys a client identity and its windows.
func (c *Client) RemoveClient(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/clients/"+url.PathEscape(id), nil, nil)
}

// Pong reports that the client answered a ping.
func (c *Client) Pong(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/clients/"+url.PathEscape(id)+"/pong", nil, nil)
}

// OpenWindow announces a new toplevel.
func (c *Client) OpenWindow(ctx context.Context, req WindowRequest) error {
	c.logger.Debug("Opening window", "id", req.ID, "client", req.Client)
	return c.do(ctx, http.MethodPost, "/windows", req, nil)
}

// UpdateWindow patches title, class or mapped state.
func (c *Client) UpdateWindow(ctx context.Context, id string, p WindowPatch) error {
	return c.do(ctx, http.MethodPatch, "/windows/"+url.PathEscape(id), p, nil)
}

// CloseWindow announces that a toplevel is gone.
func (c *Client) CloseWindow(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/windows/"+url.PathEscape(id), nil, nil)
}

// Window returns a toplevel including its not-responding flag.
func (c *Client) Window(ctx context.Context, id string) (WindowInfo, error) {
	var w WindowInfo
	err := c.do(ctx, http.MethodGet, "/windows/"+url.PathEscape(id), nil, &w)
	return w, err
}

// Events streams server-sent events until ctx ends, the server closes the
// stream or fn returns an error. An empty types list subscribes to all.
func (c *Client) Events(ctx context.Context, types []string, fn func(Event) error) error {
	u := c.baseURL + "/events"
	if len(types) > 0 {
		u += "?type=" + url.QueryEscape(strings.Join(types, ","))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	// the stream outlives the request timeout
	hc := *c.client
	hc.Timeout = 0
	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return c.decodeError(resp)
	}
	return readEvents(resp.Body, fn)
}

func readEvents(r io.Reader, fn func(Event) error) error {
	sc := bufio.NewScanner(r)
	var cur Event
	for sc.Scan() {
		line := sc.Text()
		switch {
		case line == "":
			if cur.Type != "" || cur.Data != "" {
				cur.ReceivedAt = time.Now()
				if err := fn(cur); err != nil {
					return err
				}
			}
			cur = Event{}
		case strings.HasPrefix(line, "event:"):
			cur.Type = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			d := strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " ")
			if cur.Data != "" {
				cur.Data += "\n"
			}
			cur.Data += d
		}
	}
	if err := sc.Err(); err != nil && !isClosed(err) {
		return err
	}
	return nil
}

func isClosed(err error) bool {
	return errors.Is(err, context.Canceled) || strings.Contains(err.Error(), "closed")
}

// do performs a JSON request and decodes the response into out when non-nil.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	u := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("HTTP request failed", "error", err, "url", u)
		return fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// decodeError handles HTTP error responses
func (c *Client) decodeError(resp *http.Response) error {
	var errorResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errorResp); err != nil {
		c.logger.Error("Failed to decode error response", "status", resp.StatusCode)
		return &APIError{StatusCode: resp.StatusCode}
	}
	c.logger.Error("API request failed", "error", errorResp.Error, "status", resp.StatusCode)
	return &APIError{StatusCode: resp.StatusCode, Message: errorResp.Error}
}
