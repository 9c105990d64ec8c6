// Package resizetest provides a scripted resize server for tests and local
// development. It serves the instance page, the region form endpoint and
// the resize WebSocket, playing a Script of status frames to every client.
package resizetest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/vango-dev/resize/pkg/page"
	"github.com/vango-dev/resize/pkg/protocol"
)

// DefaultTypes is the instance-type list served when none is configured.
var DefaultTypes = []string{"t3.micro", "t3.small", "t3.medium", "t3.large", "m5.large", "m5.xlarge"}

// DefaultRegions is the region list served when none is configured.
var DefaultRegions = []string{"us-east-1", "us-west-2", "eu-west-1"}

// Option configures a Server.
type Option func(*Server)

// WithScript plays the same script for every request.
func WithScript(script Script) Option {
	return func(s *Server) {
		s.scriptFor = func(string) Script { return script }
	}
}

// WithScriptFunc chooses a script from the request value.
func WithScriptFunc(fn func(request string) Script) Option {
	return func(s *Server) { s.scriptFor = fn }
}

// WithInstance sets the served instance.
func WithInstance(snap page.Snapshot) Option {
	return func(s *Server) { s.instance = snap }
}

// WithRegionFailure makes POST /region fail with status and body.
func WithRegionFailure(status int, body string) Option {
	return func(s *Server) {
		s.regionStatus = status
		s.regionBody = body
	}
}

// WithRejectResize makes the resize endpoint refuse the handshake.
func WithRejectResize(status int) Option {
	return func(s *Server) { s.rejectStatus = status }
}

// WithLogger sets the server's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Server is a scripted resize server.
type Server struct {
	router   chi.Router
	upgrader websocket.Upgrader
	logger   *slog.Logger

	scriptFor    func(request string) Script
	regionStatus int
	regionBody   string
	rejectStatus int

	mu             sync.Mutex
	instance       page.Snapshot
	requests       []string
	regions        []string
	clientClosures int

	done      chan struct{}
	closeOnce sync.Once
}

// New creates a Server. Without a script option every request plays
// ResizeScript with no pauses.
func New(opts ...Option) *Server {
	s := &Server{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: slog.Default().With("component", "resizetest"),
		instance: page.Snapshot{
			ID:     "i-0123456789abcdef0",
			Type:   "t3.micro",
			State:  "running",
			Region: DefaultRegions[0],
		},
		scriptFor: func(string) Script { return ResizeScript(0) },
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if len(s.instance.Regions) == 0 {
		s.instance.Regions = DefaultRegions
	}
	if len(s.instance.Types) == 0 {
		s.instance.Types = DefaultTypes
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/instances/{id}", s.getInstance)
	r.Post("/region", s.postRegion)
	r.Get("/resize/{id}", s.resize)
	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close releases every held channel.
func (s *Server) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// Instance returns the served instance.
func (s *Server) Instance() page.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.instance
}

// Requests returns the request payloads received on resize channels.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.requests)
}

// Regions returns the regions posted to /region.
func (s *Server) Regions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.regions)
}

// ClosedByClient returns how many resize channels the client closed with a
// close frame.
func (s *Server) ClosedByClient() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clientClosures
}

func (s *Server) getInstance(w http.ResponseWriter, r *http.Request) {
	snap := s.Instance()
	if chi.URLParam(r, "id") != snap.ID {
		http.Error(w, "instance not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snap)
}

func (s *Server) postRegion(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	region := r.PostForm.Get("region")

	s.mu.Lock()
	s.regions = append(s.regions, region)
	known := slices.Contains(s.instance.Regions, region)
	failStatus, failBody := s.regionStatus, s.regionBody
	if failStatus == 0 && known {
		s.instance.Region = region
	}
	s.mu.Unlock()

	switch {
	case failStatus != 0:
		http.Error(w, failBody, failStatus)
	case !known:
		http.Error(w, "unknown region "+region, http.StatusBadRequest)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) resize(w http.ResponseWriter, r *http.Request) {
	if s.rejectStatus != 0 {
		http.Error(w, "resize unavailable", s.rejectStatus)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	_, msg, err := conn.ReadMessage()
	if err != nil {
		s.logger.Debug("no request received", "error", err)
		return
	}
	request := string(msg)

	s.mu.Lock()
	s.requests = append(s.requests, request)
	s.mu.Unlock()
	s.logger.Info("resize requested", "instance", chi.URLParam(r, "id"), "type", request)

	p := &player{server: s, conn: conn, request: request, clientGone: make(chan struct{})}
	go p.drain()

	if p.play(s.scriptFor(request)) {
		p.hold()
	}
}

type player struct {
	server     *Server
	conn       *websocket.Conn
	request    string
	clientGone chan struct{}

	// closing is set once the server started the closing handshake.
	closing atomic.Bool
}

// drain reads until the client goes away, recording a close frame the
// client sent on its own.
func (p *player) drain() {
	defer close(p.clientGone)
	for {
		if _, _, err := p.conn.ReadMessage(); err != nil {
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) && closeErr.Code != websocket.CloseAbnormalClosure && !p.closing.Load() {
				s := p.server
				s.mu.Lock()
				s.clientClosures++
				s.mu.Unlock()
			}
			return
		}
	}
}

// play runs the script and reports whether the channel is still open.
func (p *player) play(script Script) bool {
	for _, step := range script {
		switch step.kind {
		case stepSend:
			p.apply(step.frame)
			data, err := protocol.EncodeStatusFrame(step.frame)
			if err != nil || !p.write(data) {
				return false
			}
		case stepRaw:
			if !p.write([]byte(step.raw)) {
				return false
			}
		case stepSleep:
			if !p.wait(step.delay) {
				return false
			}
		case stepClose:
			p.closing.Store(true)
			msg := websocket.FormatCloseMessage(step.code, step.message)
			p.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
			// Give the client a moment to answer the close frame.
			p.wait(time.Second)
			return false
		case stepDrop:
			p.closing.Store(true)
			p.conn.UnderlyingConn().Close()
			return false
		case stepHold:
			return true
		}
	}
	return true
}

// apply mirrors frames onto the served instance so a reload sees them.
func (p *player) apply(f protocol.StatusFrame) {
	s := p.server
	s.mu.Lock()
	defer s.mu.Unlock()
	switch f.Status {
	case protocol.KindProgress:
		s.instance.State = f.Message
	case protocol.KindSuccess:
		s.instance.Type = p.request
		s.instance.State = "running"
	}
}

func (p *player) write(data []byte) bool {
	p.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := p.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		p.server.logger.Debug("write failed", "error", err)
		return false
	}
	return true
}

// wait sleeps for d and reports false if the client left first.
func (p *player) wait(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-p.clientGone:
		return false
	case <-p.server.done:
		return false
	}
}

func (p *player) hold() {
	select {
	case <-p.clientGone:
	case <-p.server.done:
	}
}
