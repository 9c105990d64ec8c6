// Package reconcile maps server-reported resource lifecycle phases onto the
// small closed set of visual states a view can render.
//
// Reconcile is a pure function of the latest phase token. Views keep only
// the most recent UIState; nothing is merged across updates.
package reconcile

// Lifecycle phase tokens as reported by the server.
const (
	PhaseRunning      = "running"
	PhaseStopped      = "stopped"
	PhaseStopping     = "stopping"
	PhaseShuttingDown = "shutting-down"
	PhaseTerminated   = "terminated"
)

// Severity is the coarse visual severity of a resource phase.
type Severity uint8

const (
	SeverityUnknown Severity = iota
	SeverityNominal
	SeverityTransitioning
	SeverityFatal
)

// String returns the string representation of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityNominal:
		return "nominal"
	case SeverityTransitioning:
		return "transitioning"
	case SeverityFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Tone refines a severity for styling. Transitioning phases are either a
// warning (stopping, stopped) or adjacent to fatal (shutting-down).
type Tone uint8

const (
	ToneDefault Tone = iota
	TonePrimary
	ToneWarning
	ToneDanger
)

// String returns the string representation of the tone.
func (t Tone) String() string {
	switch t {
	case TonePrimary:
		return "primary"
	case ToneWarning:
		return "warning"
	case ToneDanger:
		return "danger"
	default:
		return "default"
	}
}

// UIState is the derived, non-authoritative projection of a resource phase.
type UIState struct {
	// Label is the phase text exactly as reported.
	Label string

	Severity Severity
	Tone     Tone
}

// String returns a compact representation for logs.
func (u UIState) String() string {
	return u.Label + "/" + u.Severity.String() + "/" + u.Tone.String()
}

// Reconcile maps a phase token to its UIState. Matching is exact and
// case-sensitive; unmatched tokens yield SeverityUnknown.
func Reconcile(message string) UIState {
	state := UIState{Label: message}
	switch message {
	case PhaseRunning:
		state.Severity, state.Tone = SeverityNominal, TonePrimary
	case PhaseStopped, PhaseStopping:
		state.Severity, state.Tone = SeverityTransitioning, ToneWarning
	case PhaseShuttingDown:
		state.Severity, state.Tone = SeverityTransitioning, ToneDanger
	case PhaseTerminated:
		state.Severity, state.Tone = SeverityFatal, ToneDanger
	default:
		state.Severity, state.Tone = SeverityUnknown, ToneDefault
	}
	return state
}
