package reconcile

import "testing"

func TestReconcile(t *testing.T) {
	tests := []struct {
		message  string
		severity Severity
		tone     Tone
	}{
		{"running", SeverityNominal, TonePrimary},
		{"stopped", SeverityTransitioning, ToneWarning},
		{"stopping", SeverityTransitioning, ToneWarning},
		{"shutting-down", SeverityTransitioning, ToneDanger},
		{"terminated", SeverityFatal, ToneDanger},
		{"pending", SeverityUnknown, ToneDefault},
		{"Running", SeverityUnknown, ToneDefault},
		{" running", SeverityUnknown, ToneDefault},
		{"", SeverityUnknown, ToneDefault},
		{"shutting down", SeverityUnknown, ToneDefault},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			got := Reconcile(tt.message)
			if got.Severity != tt.severity {
				t.Errorf("Severity = %v, want %v", got.Severity, tt.severity)
			}
			if got.Tone != tt.tone {
				t.Errorf("Tone = %v, want %v", got.Tone, tt.tone)
			}
			if got.Label != tt.message {
				t.Errorf("Label = %q, want %q", got.Label, tt.message)
			}
		})
	}
}

func TestReconcile_Deterministic(t *testing.T) {
	for _, msg := range []string{PhaseRunning, PhaseStopped, PhaseStopping, PhaseShuttingDown, PhaseTerminated, "\x00garbage"} {
		first := Reconcile(msg)
		for i := 0; i < 10; i++ {
			if got := Reconcile(msg); got != first {
				t.Fatalf("Reconcile(%q) changed between calls: %v then %v", msg, first, got)
			}
		}
	}
}

func FuzzReconcile(f *testing.F) {
	f.Add("running")
	f.Add("terminated")
	f.Add("")
	f.Fuzz(func(t *testing.T, msg string) {
		got := Reconcile(msg)
		switch msg {
		case PhaseRunning, PhaseStopped, PhaseStopping, PhaseShuttingDown, PhaseTerminated:
			if got.Severity == SeverityUnknown {
				t.Fatalf("known phase %q reconciled to unknown", msg)
			}
		default:
			if got.Severity != SeverityUnknown || got.Tone != ToneDefault {
				t.Fatalf("Reconcile(%q) = %v, want unknown/default", msg, got)
			}
		}
	})
}
