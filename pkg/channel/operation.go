package channel

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/vango-dev/resize/pkg/telemetry"
	"github.com/vango-dev/resize/pkg/transcript"
)

// Operation is one submitted change and its channel.
type Operation struct {
	id         uuid.UUID
	form       *Form
	manager    *Manager
	channelURL string
	startedAt  time.Time

	// Owned by the manager's event loop.
	state  State
	timer  *time.Timer
	span   *telemetry.OperationSpan
	record *transcript.Transcript

	connMu    sync.Mutex
	conn      *websocket.Conn
	closing   bool
	closeOnce sync.Once

	// Set before done is closed.
	outcome Outcome
	err     error
	done    chan struct{}
}

// ID returns the operation's liveness token.
func (op *Operation) ID() uuid.UUID {
	return op.id
}

// ChannelURL returns the WebSocket URL the operation dials.
func (op *Operation) ChannelURL() string {
	return op.channelURL
}

// Done is closed once the operation has terminated.
func (op *Operation) Done() <-chan struct{} {
	return op.done
}

// Outcome returns how the operation concluded, or OutcomePending while it
// is still live.
func (op *Operation) Outcome() Outcome {
	select {
	case <-op.done:
		return op.outcome
	default:
		return OutcomePending
	}
}

// Err returns the failure the operation concluded with. It is nil while the
// operation is live and after a success.
func (op *Operation) Err() error {
	select {
	case <-op.done:
		return op.err
	default:
		return nil
	}
}

// Wait blocks until the operation terminates or ctx is done.
func (op *Operation) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-op.done:
		return op.outcome, op.err
	case <-ctx.Done():
		return OutcomePending, ctx.Err()
	}
}

// Abandon tears the operation down, as when its hosting view goes away. The
// channel is discarded and no further view calls are made for it.
func (op *Operation) Abandon() {
	op.manager.post(op.id, Event{Kind: EventTeardown})
}

// dial opens the channel and then reads from it until it fails or closes.
func (op *Operation) dial(ctx context.Context) {
	m := op.manager

	header := http.Header{}
	if origin := pageOrigin(m.page); origin != "" {
		header.Set("Origin", origin)
	}

	conn, resp, err := m.dialer.DialContext(ctx, op.channelURL, header)
	if err != nil {
		if resp != nil {
			err = fmt.Errorf("%w (handshake status %s)", err, resp.Status)
		}
		m.post(op.id, Event{Kind: EventChannelError, Err: err})
		m.post(op.id, Event{Kind: EventClose, Err: err})
		return
	}
	conn.SetReadLimit(m.config.MaxMessageSize)

	if !op.attach(conn) {
		conn.Close()
		return
	}

	m.post(op.id, Event{Kind: EventOpen})
	op.readLoop(conn)
}

// attach stores conn unless the operation was closed while dialing.
func (op *Operation) attach(conn *websocket.Conn) bool {
	op.connMu.Lock()
	defer op.connMu.Unlock()

	if op.closing {
		return false
	}
	op.conn = conn
	return true
}

// readLoop posts every inbound frame, in arrival order, then the way the
// channel ended. A close frame from the peer is a closure; any other read
// failure, including a connection dropped without a close frame, is a
// channel error followed by a closure.
func (op *Operation) readLoop(conn *websocket.Conn) {
	m := op.manager

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if !peerClosed(err) && !op.isClosing() {
				m.post(op.id, Event{Kind: EventChannelError, Err: err})
			}
			m.post(op.id, Event{Kind: EventClose, Err: err})
			return
		}
		m.post(op.id, Event{Kind: EventFrame, Data: msg})
	}
}

// peerClosed reports whether err carries a close frame the peer sent. The
// library reports a connection lost without one as CloseAbnormalClosure.
func peerClosed(err error) bool {
	var closeErr *websocket.CloseError
	return errors.As(err, &closeErr) && closeErr.Code != websocket.CloseAbnormalClosure
}

// send writes the request. It is the only writer of data frames.
func (op *Operation) send(payload []byte) {
	op.connMu.Lock()
	conn := op.conn
	op.connMu.Unlock()
	if conn == nil {
		return
	}

	conn.SetWriteDeadline(time.Now().Add(op.manager.config.WriteTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		op.manager.post(op.id, Event{Kind: EventChannelError, Err: err})
	}
}

// closeConn sends a normal close frame and closes the connection. It is
// safe to call more than once and before the channel opened.
func (op *Operation) closeConn() {
	op.connMu.Lock()
	op.closing = true
	conn := op.conn
	op.connMu.Unlock()
	if conn == nil {
		return
	}

	op.closeOnce.Do(func() {
		deadline := time.Now().Add(op.manager.config.WriteTimeout)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = conn.WriteControl(websocket.CloseMessage, msg, deadline)
		_ = conn.Close()
	})
}

func (op *Operation) isClosing() bool {
	op.connMu.Lock()
	defer op.connMu.Unlock()
	return op.closing
}

func (op *Operation) armTimer(d time.Duration) {
	if d <= 0 {
		return
	}
	m := op.manager
	op.timer = time.AfterFunc(d, func() {
		m.post(op.id, Event{
			Kind: EventFirstFrameTimeout,
			Err:  fmt.Errorf("%w within %s", ErrFirstFrameTimeout, d),
		})
	})
}

func (op *Operation) stopTimer() {
	if op.timer != nil {
		op.timer.Stop()
	}
}
