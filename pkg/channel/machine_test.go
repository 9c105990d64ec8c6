package channel

import (
	"errors"
	"fmt"
	"testing"

	"github.com/vango-dev/resize/pkg/reconcile"
)

func frameEvent(raw string) Event {
	return Event{Kind: EventFrame, Data: []byte(raw)}
}

func progress(phase string) Event {
	return frameEvent(fmt.Sprintf(`{"Status":"message","Message":%q}`, phase))
}

func serverError(msg string) Event {
	return frameEvent(fmt.Sprintf(`{"Status":"error","Message":%q}`, msg))
}

func success(msg string) Event {
	return frameEvent(fmt.Sprintf(`{"Status":"success","Message":%q}`, msg))
}

var (
	submit    = Event{Kind: EventSubmit, Data: []byte("t3.large")}
	open      = Event{Kind: EventOpen}
	closed    = Event{Kind: EventClose}
	timeout   = Event{Kind: EventFirstFrameTimeout}
	teardown  = Event{Kind: EventTeardown}
	transport = Event{Kind: EventChannelError, Err: errors.New("connection reset")}
)

// step is one event and the effect kinds it must produce.
type step struct {
	event Event
	want  []EffectKind
}

func runSteps(t *testing.T, policy ClosePolicy, steps []step) (State, []Effect) {
	t.Helper()
	var (
		s   State
		all []Effect
	)
	for i, st := range steps {
		var effects []Effect
		s, effects = Transition(s, st.event, policy)
		if got := effectKinds(effects); !equalKinds(got, st.want) {
			t.Fatalf("step %d (%s): effects = %v, want %v", i, st.event.Kind, got, st.want)
		}
		all = append(all, effects...)
	}
	return s, all
}

func effectKinds(effects []Effect) []EffectKind {
	kinds := make([]EffectKind, len(effects))
	for i, e := range effects {
		kinds[i] = e.Kind
	}
	return kinds
}

func equalKinds(a, b []EffectKind) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func countKind(effects []Effect, kind EffectKind) int {
	n := 0
	for _, e := range effects {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func TestTransition_ScenarioA_ProgressThenSuccess(t *testing.T) {
	s, all := runSteps(t, CloseAmbiguous, []step{
		{submit, nil},
		{open, []EffectKind{EffectSend, EffectShowWaiting, EffectArmTimer}},
		{progress("stopping"), []EffectKind{EffectSetIndicator}},
		{progress("stopped"), []EffectKind{EffectSetIndicator}},
		{success("done"), []EffectKind{EffectReload, EffectReleaseGate, EffectCloseChannel}},
		{closed, nil},
	})

	if s.Phase != PhaseTerminated || s.Outcome != OutcomeSuccess || s.Err != nil {
		t.Errorf("final state = %s/%s err=%v", s.Phase, s.Outcome, s.Err)
	}
	var indicators []reconcile.Severity
	for _, e := range all {
		if e.Kind == EffectSetIndicator {
			indicators = append(indicators, e.Indicator.Severity)
		}
	}
	if len(indicators) != 2 || indicators[0] != reconcile.SeverityTransitioning || indicators[1] != reconcile.SeverityTransitioning {
		t.Errorf("indicators = %v, want transitioning twice", indicators)
	}
	if n := countKind(all, EffectReleaseGate); n != 1 {
		t.Errorf("gate released %d times, want 1", n)
	}
	if all[0].Kind != EffectSend || string(all[0].Payload) != "t3.large" {
		t.Errorf("send effect = %+v", all[0])
	}
}

func TestTransition_ScenarioB_ServerErrorKeepsChannelOpen(t *testing.T) {
	s, all := runSteps(t, CloseAmbiguous, []step{
		{submit, nil},
		{open, []EffectKind{EffectSend, EffectShowWaiting, EffectArmTimer}},
		{serverError("insufficient capacity"), []EffectKind{EffectShowError, EffectReleaseGate}},
	})

	if s.Phase != PhaseOpen {
		t.Errorf("phase = %s, want open", s.Phase)
	}
	if s.Busy {
		t.Error("gate should be released")
	}
	if s.HasIndicator {
		t.Errorf("indicator changed to %v", s.Indicator)
	}
	if countKind(all, EffectCloseChannel) != 0 {
		t.Error("channel must not be closed proactively")
	}
	shown := all[len(all)-2]
	if shown.Message != "insufficient capacity" || shown.Local {
		t.Errorf("shown error = %+v", shown)
	}
	var se *ServerError
	if !errors.As(s.Err, &se) || se.Message != "insufficient capacity" {
		t.Errorf("Err = %v", s.Err)
	}

	// The server closing afterwards concludes the operation quietly.
	s, effects := Transition(s, closed, CloseAmbiguous)
	if len(effects) != 0 {
		t.Errorf("close after error: effects = %v", effectKinds(effects))
	}
	if s.Phase != PhaseTerminated || s.Outcome != OutcomeServerError {
		t.Errorf("after close: %s/%s", s.Phase, s.Outcome)
	}
}

func TestTransition_ScenarioC_CloseWithoutFrames(t *testing.T) {
	t.Run("ambiguous policy", func(t *testing.T) {
		s, all := runSteps(t, CloseAmbiguous, []step{
			{submit, nil},
			{open, []EffectKind{EffectSend, EffectShowWaiting, EffectArmTimer}},
			{closed, []EffectKind{EffectUnknownOutcome, EffectReleaseGate}},
			{closed, nil},
		})
		if s.Outcome != OutcomeAmbiguous || !errors.Is(s.Err, ErrAmbiguousClosure) {
			t.Errorf("outcome = %s err = %v", s.Outcome, s.Err)
		}
		if countKind(all, EffectUnknownOutcome) != 1 {
			t.Error("ambiguous closure must trigger exactly once")
		}
		if countKind(all, EffectReload) != 0 {
			t.Error("ambiguous closure must not reload")
		}
	})

	t.Run("success policy", func(t *testing.T) {
		s, _ := runSteps(t, CloseSucceeds, []step{
			{submit, nil},
			{open, []EffectKind{EffectSend, EffectShowWaiting, EffectArmTimer}},
			{closed, []EffectKind{EffectReload, EffectReleaseGate}},
		})
		if s.Outcome != OutcomeSuccess || s.Err != nil {
			t.Errorf("outcome = %s err = %v", s.Outcome, s.Err)
		}
	})
}

func TestTransition_DecodeErrorStopsProcessing(t *testing.T) {
	s, all := runSteps(t, CloseAmbiguous, []step{
		{submit, nil},
		{open, []EffectKind{EffectSend, EffectShowWaiting, EffectArmTimer}},
		{frameEvent(`{"Status":"progress","Message":"running"}`), []EffectKind{EffectShowError, EffectReleaseGate, EffectCloseChannel}},
		{progress("running"), nil},
		{success("done"), nil},
	})
	if s.Outcome != OutcomeDecodeError || !errors.Is(s.Err, ErrDecode) {
		t.Errorf("outcome = %s err = %v", s.Outcome, s.Err)
	}
	if !all[3].Local {
		t.Error("decode errors are local")
	}
	if s.Frames != 1 {
		t.Errorf("frames = %d, want 1", s.Frames)
	}
}

func TestTransition_ChannelError(t *testing.T) {
	t.Run("then close", func(t *testing.T) {
		s, all := runSteps(t, CloseSucceeds, []step{
			{submit, nil},
			{open, []EffectKind{EffectSend, EffectShowWaiting, EffectArmTimer}},
			{progress("stopping"), []EffectKind{EffectSetIndicator}},
			{transport, []EffectKind{EffectShowError, EffectReleaseGate}},
			{transport, nil},
			{closed, nil},
		})
		if s.Outcome != OutcomeChannelError || !errors.Is(s.Err, ErrChannel) {
			t.Errorf("outcome = %s err = %v", s.Outcome, s.Err)
		}
		if countKind(all, EffectReload) != 0 {
			t.Error("channel error must not reload, whatever the close policy")
		}
		if s.Indicator.Label != "stopping" {
			t.Errorf("indicator = %v, want last known state kept", s.Indicator)
		}
	})

	t.Run("then success frame", func(t *testing.T) {
		s, _ := runSteps(t, CloseAmbiguous, []step{
			{submit, nil},
			{open, []EffectKind{EffectSend, EffectShowWaiting, EffectArmTimer}},
			{transport, []EffectKind{EffectShowError, EffectReleaseGate}},
			{success("done"), []EffectKind{EffectReload, EffectCloseChannel}},
		})
		if s.Outcome != OutcomeSuccess {
			t.Errorf("outcome = %s", s.Outcome)
		}
	})

	t.Run("while connecting", func(t *testing.T) {
		s, _ := runSteps(t, CloseAmbiguous, []step{
			{submit, nil},
			{transport, []EffectKind{EffectShowError, EffectReleaseGate}},
			{closed, nil},
		})
		if s.Outcome != OutcomeChannelError {
			t.Errorf("outcome = %s", s.Outcome)
		}
	})
}

func TestTransition_FirstFrameTimeout(t *testing.T) {
	s, _ := runSteps(t, CloseAmbiguous, []step{
		{submit, nil},
		{open, []EffectKind{EffectSend, EffectShowWaiting, EffectArmTimer}},
		{timeout, []EffectKind{EffectShowError, EffectReleaseGate, EffectCloseChannel}},
		{progress("running"), nil},
	})
	if s.Outcome != OutcomeTimeout || !errors.Is(s.Err, ErrFirstFrameTimeout) {
		t.Errorf("outcome = %s err = %v", s.Outcome, s.Err)
	}

	// A frame before the timer fires disarms it.
	s, _ = runSteps(t, CloseAmbiguous, []step{
		{submit, nil},
		{open, []EffectKind{EffectSend, EffectShowWaiting, EffectArmTimer}},
		{progress("stopping"), []EffectKind{EffectSetIndicator}},
		{timeout, nil},
	})
	if s.Phase != PhaseOpen {
		t.Errorf("phase = %s, want open", s.Phase)
	}
}

func TestTransition_Teardown(t *testing.T) {
	tests := []struct {
		name    string
		steps   []step
		outcome Outcome
	}{
		{
			name: "before open",
			steps: []step{
				{submit, nil},
				{teardown, []EffectKind{EffectReleaseGate, EffectCloseChannel}},
			},
			outcome: OutcomeAbandoned,
		},
		{
			name: "while receiving",
			steps: []step{
				{submit, nil},
				{open, []EffectKind{EffectSend, EffectShowWaiting, EffectArmTimer}},
				{progress("stopping"), []EffectKind{EffectSetIndicator}},
				{teardown, []EffectKind{EffectReleaseGate, EffectCloseChannel}},
				{success("late"), nil},
			},
			outcome: OutcomeAbandoned,
		},
		{
			name: "after server error",
			steps: []step{
				{submit, nil},
				{open, []EffectKind{EffectSend, EffectShowWaiting, EffectArmTimer}},
				{serverError("nope"), []EffectKind{EffectShowError, EffectReleaseGate}},
				{teardown, []EffectKind{EffectCloseChannel}},
			},
			outcome: OutcomeServerError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := runSteps(t, CloseAmbiguous, tt.steps)
			if s.Phase != PhaseTerminated || s.Outcome != tt.outcome {
				t.Errorf("final = %s/%s, want terminated/%s", s.Phase, s.Outcome, tt.outcome)
			}
		})
	}
}

func TestTransition_IndicatorIsLastWriteWins(t *testing.T) {
	s, _ := runSteps(t, CloseAmbiguous, []step{
		{submit, nil},
		{open, []EffectKind{EffectSend, EffectShowWaiting, EffectArmTimer}},
		{progress("terminated"), []EffectKind{EffectSetIndicator}},
		{progress("pending"), []EffectKind{EffectSetIndicator}},
	})
	if s.Indicator != reconcile.Reconcile("pending") {
		t.Errorf("indicator = %v", s.Indicator)
	}
}

func TestTransition_IgnoresOutOfPhaseEvents(t *testing.T) {
	runSteps(t, CloseAmbiguous, []step{
		{open, nil},
		{progress("running"), nil},
		{closed, nil},
		{transport, nil},
		{submit, nil},
		{submit, nil},
		{progress("running"), nil},
		{timeout, nil},
		{open, []EffectKind{EffectSend, EffectShowWaiting, EffectArmTimer}},
		{open, nil},
	})
}

// TestTransition_GateNeverLeaks walks every short event sequence after a
// submit and checks the gate is released at most once and never left held
// by a terminated operation.
func TestTransition_GateNeverLeaks(t *testing.T) {
	alphabet := []Event{
		open,
		progress("running"),
		serverError("x"),
		success("ok"),
		frameEvent("garbage"),
		transport,
		closed,
		timeout,
		teardown,
	}
	const depth = 5

	var walk func(s State, released, reloads int, seq []EventKind)
	walk = func(s State, released, reloads int, seq []EventKind) {
		if released > 1 {
			t.Fatalf("sequence %v released the gate %d times", seq, released)
		}
		if reloads > 1 {
			t.Fatalf("sequence %v reloaded %d times", seq, reloads)
		}
		if s.Busy == (released == 1) {
			t.Fatalf("sequence %v: busy=%v after %d releases", seq, s.Busy, released)
		}
		if s.Phase == PhaseTerminated && s.Busy {
			t.Fatalf("sequence %v terminated holding the gate", seq)
		}
		if len(seq) == depth {
			return
		}
		for _, ev := range alphabet {
			for _, policy := range []ClosePolicy{CloseAmbiguous, CloseSucceeds} {
				next, effects := Transition(s, ev, policy)
				walk(next,
					released+countKind(effects, EffectReleaseGate),
					reloads+countKind(effects, EffectReload),
					append(seq[:len(seq):len(seq)], ev.Kind))
			}
		}
	}

	s, _ := Transition(State{}, submit, CloseAmbiguous)
	walk(s, 0, 0, []EventKind{EventSubmit})
}
