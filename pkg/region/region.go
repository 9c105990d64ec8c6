// Package region switches the console's active region. It is a plain form
// POST followed by navigation: the server is the source of truth, so the
// host re-renders whatever the outcome.
package region

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vango-dev/resize/pkg/formgate"
	"github.com/vango-dev/resize/pkg/page"
)

// ErrBusy is returned when a switch is already in flight.
var ErrBusy = errors.New("region: switch in flight")

// FieldRegion is the form field carrying the selected region.
const FieldRegion = "region"

// View is the host of the region form. SetDisabled disables the instance
// view while the request is in flight.
type View interface {
	formgate.Affordance

	// Navigate moves to path after a successful switch.
	Navigate(path string)

	// Alert surfaces the raw failure body.
	Alert(message string)

	// Reload re-renders the current view.
	Reload()
}

// Switcher posts region changes to a fixed endpoint.
type Switcher struct {
	endpoint string
	http     *http.Client
	view     View
	gate     *formgate.Gate
	logger   *slog.Logger
}

// Option configures a Switcher.
type Option func(*Switcher)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(s *Switcher) {
		if hc != nil {
			s.http = hc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Switcher) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSwitcher creates a Switcher posting to endpoint and driving view.
func NewSwitcher(endpoint string, view View, opts ...Option) *Switcher {
	s := &Switcher{
		endpoint: endpoint,
		http:     &http.Client{Timeout: 15 * time.Second},
		view:     view,
		logger:   slog.Default().With("component", "region"),
	}
	s.gate = formgate.New(view)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Switch posts region. On success the view navigates to "/"; on any
// failure the raw body (or transport error) is alerted and the view is
// reloaded regardless.
func (s *Switcher) Switch(ctx context.Context, region string) error {
	if !s.gate.TryAcquire() {
		return ErrBusy
	}

	err := s.post(ctx, region)
	s.gate.Release()

	if err != nil {
		s.logger.Warn("region switch failed", "region", region, "error", err)
		var se *page.StatusError
		if errors.As(err, &se) && se.Body != "" {
			s.view.Alert(se.Body)
		} else {
			s.view.Alert(err.Error())
		}
		s.view.Reload()
		return err
	}

	s.logger.Info("region switched", "region", region)
	s.view.Navigate("/")
	return nil
}

func (s *Switcher) post(ctx context.Context, region string) error {
	form := url.Values{FieldRegion: {region}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("region: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("region: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return page.ReadStatusError(resp)
	}
	return nil
}
