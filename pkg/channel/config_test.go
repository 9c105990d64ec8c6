package channel

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.FirstFrameTimeout != 30*time.Second {
		t.Errorf("FirstFrameTimeout = %v", cfg.FirstFrameTimeout)
	}
	if cfg.ClosePolicy != CloseAmbiguous {
		t.Errorf("ClosePolicy = %v, want ambiguous", cfg.ClosePolicy)
	}
	if cfg.MaxMessageSize != 64*1024 {
		t.Errorf("MaxMessageSize = %d", cfg.MaxMessageSize)
	}
}

func TestConfig_CloneAndChain(t *testing.T) {
	base := DefaultConfig()
	clone := base.Clone().
		WithClosePolicy(CloseSucceeds).
		WithFirstFrameTimeout(time.Second).
		WithHandshakeTimeout(2 * time.Second)

	if base.ClosePolicy != CloseAmbiguous || base.FirstFrameTimeout != 30*time.Second {
		t.Error("Clone should not share state with the original")
	}
	if clone.ClosePolicy != CloseSucceeds || clone.FirstFrameTimeout != time.Second || clone.HandshakeTimeout != 2*time.Second {
		t.Errorf("clone = %+v", clone)
	}
	var nilCfg *Config
	if nilCfg.Clone() != nil {
		t.Error("Clone of nil should be nil")
	}
}

func TestConfig_Normalize(t *testing.T) {
	cfg := &Config{FirstFrameTimeout: -time.Second}
	cfg.normalize()
	def := DefaultConfig()
	if cfg.HandshakeTimeout != def.HandshakeTimeout || cfg.EventQueueSize != def.EventQueueSize {
		t.Errorf("normalize() = %+v", cfg)
	}
	if cfg.FirstFrameTimeout != 0 {
		t.Errorf("negative FirstFrameTimeout should disable the timer, got %v", cfg.FirstFrameTimeout)
	}
}

func TestParseClosePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    ClosePolicy
		wantErr bool
	}{
		{"", CloseAmbiguous, false},
		{"ambiguous", CloseAmbiguous, false},
		{"Unknown", CloseAmbiguous, false},
		{"success", CloseSucceeds, false},
		{" succeeds ", CloseSucceeds, false},
		{"maybe", CloseAmbiguous, true},
	}
	for _, tt := range tests {
		got, err := ParseClosePolicy(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseClosePolicy(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseClosePolicy(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if CloseSucceeds.String() != "success" || CloseAmbiguous.String() != "ambiguous" {
		t.Error("String() does not round-trip through ParseClosePolicy")
	}
}
