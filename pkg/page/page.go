// Package page fetches the server-side view of an instance, which is what a
// host re-renders from when an operation asks it to reload.
package page

import (
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

	"github.com/vango-dev/resize/pkg/reconcile"
)

// ErrNotFound is returned when the server does not know the instance.
var ErrNotFound = errors.New("page: instance not found")

// maxBodySize bounds error bodies kept in a StatusError.
const maxBodySize = 4 << 10

// Snapshot is the server's current view of an instance.
type Snapshot struct {
	ID      string   `json:"id"`
	Type    string   `json:"type"`
	State   string   `json:"state"`
	Region  string   `json:"region"`
	Regions []string `json:"regions"`
	Types   []string `json:"types"`
}

// Indicator reconciles the snapshot's lifecycle phase.
func (s *Snapshot) Indicator() reconcile.UIState {
	return reconcile.Reconcile(s.State)
}

// StatusError is returned for a non-2xx response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("page: unexpected status %d", e.Code)
	}
	return fmt.Sprintf("page: unexpected status %d: %s", e.Code, e.Body)
}

// ReadStatusError drains resp into a StatusError.
func ReadStatusError(resp *http.Response) *StatusError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}

// Client fetches snapshots of one instance.
type Client struct {
	server   *url.URL
	instance string
	http     *http.Client
	logger   *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a client for instance on server.
func NewClient(server, instance string, opts ...Option) (*Client, error) {
	u, err := url.Parse(server)
	if err != nil {
		return nil, fmt.Errorf("page: invalid server URL: %w", err)
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("page: server URL %q is not absolute", server)
	}
	if instance == "" {
		return nil, errors.New("page: instance is required")
	}

	c := &Client{
		server:   u,
		instance: instance,
		http:     &http.Client{Timeout: 15 * time.Second},
		logger:   slog.Default().With("component", "page"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Instance returns the instance ID.
func (c *Client) Instance() string {
	return c.instance
}

// URL resolves a path template against the server. "{id}" in the template
// is replaced by the escaped instance ID.
func (c *Client) URL(template string) string {
	p := strings.ReplaceAll(template, "{id}", url.PathEscape(c.instance))
	ref, err := url.Parse(p)
	if err != nil {
		return c.server.String()
	}
	return c.server.ResolveReference(ref).String()
}

// PageURL is the URL of the instance page.
func (c *Client) PageURL() string {
	return c.URL("/instances/{id}")
}

// Fetch loads the current snapshot.
func (c *Client) Fetch(ctx context.Context) (*Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.PageURL(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("page: fetch: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, ReadStatusError(resp)
	}

	var snap Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return nil, fmt.Errorf("page: decode snapshot: %w", err)
	}
	c.logger.Debug("fetched snapshot",
		"instance", snap.ID,
		"type", snap.Type,
		"state", snap.State)
	return &snap, nil
}
