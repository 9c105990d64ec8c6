package channel

import (
	"errors"
	"fmt"

	"github.com/vango-dev/resize/pkg/protocol"
	"github.com/vango-dev/resize/pkg/reconcile"
)

// Phase is the lifecycle phase of one channel.
type Phase uint8

const (
	PhaseIdle Phase = iota
	PhaseConnecting
	PhaseOpen
	PhaseTerminated
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseConnecting:
		return "connecting"
	case PhaseOpen:
		return "open"
	case PhaseTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("Phase(%d)", uint8(p))
	}
}

// Outcome is how an operation concluded.
type Outcome uint8

const (
	OutcomePending Outcome = iota
	OutcomeSuccess
	OutcomeServerError
	OutcomeAmbiguous
	OutcomeDecodeError
	OutcomeChannelError
	OutcomeTimeout
	OutcomeAbandoned
)

// String returns the outcome name used in logs, metrics and transcripts.
func (o Outcome) String() string {
	switch o {
	case OutcomePending:
		return "pending"
	case OutcomeSuccess:
		return "success"
	case OutcomeServerError:
		return "server_error"
	case OutcomeAmbiguous:
		return "ambiguous"
	case OutcomeDecodeError:
		return "decode_error"
	case OutcomeChannelError:
		return "channel_error"
	case OutcomeTimeout:
		return "timeout"
	case OutcomeAbandoned:
		return "abandoned"
	default:
		return fmt.Sprintf("Outcome(%d)", uint8(o))
	}
}

// State is the machine state of one operation.
type State struct {
	Phase   Phase
	Outcome Outcome

	// Request is the encoded command sent once the channel opens.
	Request string

	// Busy is true while this operation holds its form's gate.
	Busy bool

	// Frames counts inbound frames, including undecodable ones.
	Frames int

	// Terminal is set once a success or error frame was observed.
	Terminal bool

	// ChannelFailed is set after a transport error.
	ChannelFailed bool

	// Last is the most recently decoded frame.
	Last protocol.StatusFrame

	// Indicator is the last applied resource state; valid when HasIndicator.
	Indicator    reconcile.UIState
	HasIndicator bool

	// Err is the failure the operation concluded with, if any.
	Err error
}

// EventKind identifies a channel callback.
type EventKind uint8

const (
	EventSubmit EventKind = iota + 1
	EventOpen
	EventFrame
	EventChannelError
	EventClose
	EventFirstFrameTimeout
	EventTeardown
)

// String returns the event name.
func (k EventKind) String() string {
	switch k {
	case EventSubmit:
		return "submit"
	case EventOpen:
		return "open"
	case EventFrame:
		return "frame"
	case EventChannelError:
		return "channel_error"
	case EventClose:
		return "close"
	case EventFirstFrameTimeout:
		return "first_frame_timeout"
	case EventTeardown:
		return "teardown"
	default:
		return fmt.Sprintf("EventKind(%d)", uint8(k))
	}
}

// Event is one input to Transition.
type Event struct {
	Kind EventKind

	// Data is the encoded command for EventSubmit and the raw payload for
	// EventFrame.
	Data []byte

	// Err is the cause of EventChannelError, EventClose and
	// EventFirstFrameTimeout.
	Err error
}

// EffectKind identifies an action the manager performs after a transition.
type EffectKind uint8

const (
	EffectSend EffectKind = iota + 1
	EffectShowWaiting
	EffectArmTimer
	EffectSetIndicator
	EffectShowError
	EffectReload
	EffectReleaseGate
	EffectCloseChannel
	EffectUnknownOutcome
)

// String returns the effect name.
func (k EffectKind) String() string {
	switch k {
	case EffectSend:
		return "send"
	case EffectShowWaiting:
		return "show_waiting"
	case EffectArmTimer:
		return "arm_timer"
	case EffectSetIndicator:
		return "set_indicator"
	case EffectShowError:
		return "show_error"
	case EffectReload:
		return "reload"
	case EffectReleaseGate:
		return "release_gate"
	case EffectCloseChannel:
		return "close_channel"
	case EffectUnknownOutcome:
		return "unknown_outcome"
	default:
		return fmt.Sprintf("EffectKind(%d)", uint8(k))
	}
}

// Effect is one action requested by Transition.
type Effect struct {
	Kind EffectKind

	// Payload is the outbound text for EffectSend.
	Payload []byte

	// Indicator is the state for EffectSetIndicator.
	Indicator reconcile.UIState

	// Message is the text for EffectShowError.
	Message string

	// Local is set on EffectShowError when the client, not the server,
	// raised the error.
	Local bool
}

// Transition advances s by ev. It is pure: every side effect is returned
// as an Effect for the caller to perform, in order. Events that do not
// apply to the current phase leave the state unchanged and yield no
// effects. A gate release is emitted at most once per operation.
func Transition(s State, ev Event, policy ClosePolicy) (State, []Effect) {
	if s.Phase == PhaseTerminated {
		return s, nil
	}

	switch ev.Kind {
	case EventSubmit:
		if s.Phase != PhaseIdle {
			return s, nil
		}
		s.Phase = PhaseConnecting
		s.Request = string(ev.Data)
		s.Busy = true
		return s, nil

	case EventOpen:
		if s.Phase != PhaseConnecting {
			return s, nil
		}
		s.Phase = PhaseOpen
		return s, []Effect{
			{Kind: EffectSend, Payload: []byte(s.Request)},
			{Kind: EffectShowWaiting},
			{Kind: EffectArmTimer},
		}

	case EventFrame:
		if s.Phase != PhaseOpen {
			return s, nil
		}
		return onFrame(s, ev.Data)

	case EventChannelError:
		if s.Phase == PhaseIdle || s.ChannelFailed {
			return s, nil
		}
		s.ChannelFailed = true
		effects := []Effect{{Kind: EffectShowError, Message: localMessage(ErrChannel, ev.Err), Local: true}}
		return s, release(&s, effects)

	case EventClose:
		if s.Phase == PhaseIdle {
			return s, nil
		}
		return onClose(s, ev, policy)

	case EventFirstFrameTimeout:
		if s.Phase != PhaseOpen || s.Frames > 0 || s.ChannelFailed {
			return s, nil
		}
		err := ev.Err
		if err == nil {
			err = ErrFirstFrameTimeout
		}
		s = terminate(s, OutcomeTimeout, err)
		effects := []Effect{{Kind: EffectShowError, Message: localMessage(err, nil), Local: true}}
		effects = release(&s, effects)
		return s, append(effects, Effect{Kind: EffectCloseChannel})

	case EventTeardown:
		if s.Terminal {
			s = terminate(s, s.Outcome, s.Err)
		} else {
			s = terminate(s, OutcomeAbandoned, ErrAbandoned)
		}
		effects := release(&s, nil)
		return s, append(effects, Effect{Kind: EffectCloseChannel})
	}
	return s, nil
}

func onFrame(s State, raw []byte) (State, []Effect) {
	s.Frames++

	frame, err := protocol.DecodeStatusFrame(raw)
	if err != nil {
		s = terminate(s, OutcomeDecodeError, fmt.Errorf("%w: %w", ErrDecode, err))
		effects := []Effect{{Kind: EffectShowError, Message: localMessage(ErrDecode, err), Local: true}}
		effects = release(&s, effects)
		return s, append(effects, Effect{Kind: EffectCloseChannel})
	}
	s.Last = frame

	switch frame.Status {
	case protocol.KindProgress:
		s.Indicator = reconcile.Reconcile(frame.Message)
		s.HasIndicator = true
		return s, []Effect{{Kind: EffectSetIndicator, Indicator: s.Indicator}}

	case protocol.KindError:
		// The channel stays open; the server decides when to close it.
		s.Terminal = true
		s.Outcome = OutcomeServerError
		s.Err = &ServerError{Message: frame.Message}
		effects := []Effect{{Kind: EffectShowError, Message: frame.Message}}
		return s, release(&s, effects)

	case protocol.KindSuccess:
		s.Terminal = true
		s = terminate(s, OutcomeSuccess, nil)
		effects := []Effect{{Kind: EffectReload}}
		effects = release(&s, effects)
		return s, append(effects, Effect{Kind: EffectCloseChannel})
	}
	return s, nil
}

func onClose(s State, ev Event, policy ClosePolicy) (State, []Effect) {
	switch {
	case s.Terminal:
		// An error frame already concluded the operation.
		s = terminate(s, s.Outcome, s.Err)
		return s, release(&s, nil)

	case s.ChannelFailed:
		cause := ev.Err
		if cause == nil {
			cause = errors.New("connection lost")
		}
		s = terminate(s, OutcomeChannelError, fmt.Errorf("%w: %w", ErrChannel, cause))
		return s, release(&s, nil)

	case policy == CloseSucceeds:
		s = terminate(s, OutcomeSuccess, nil)
		return s, release(&s, []Effect{{Kind: EffectReload}})

	default:
		s = terminate(s, OutcomeAmbiguous, ErrAmbiguousClosure)
		return s, release(&s, []Effect{{Kind: EffectUnknownOutcome}})
	}
}

func terminate(s State, outcome Outcome, err error) State {
	s.Phase = PhaseTerminated
	s.Outcome = outcome
	s.Err = err
	return s
}

// release appends the gate release if s still holds the gate.
func release(s *State, effects []Effect) []Effect {
	if !s.Busy {
		return effects
	}
	s.Busy = false
	return append(effects, Effect{Kind: EffectReleaseGate})
}

func localMessage(kind, cause error) string {
	if cause == nil {
		return kind.Error()
	}
	return fmt.Sprintf("%v: %v", kind, cause)
}
