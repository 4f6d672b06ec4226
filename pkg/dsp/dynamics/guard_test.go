package dynamics

import (
	"math"
	"testing"
	"time"

	"github.com/grumpedal/grum/pkg/dsp/envelope"
)

var (
	clipping = envelope.Levels{RMS: 0.8, Peak: 1.0}
	normal   = envelope.Levels{RMS: 0.1, Peak: 0.3}
	block    = 5 * time.Millisecond
)

func TestGuardArmsAfterConsecutiveBlocks(t *testing.T) {
	g := NewGuard(DefaultGuardConfig())

	var now time.Duration
	for i := 1; i < 4; i++ {
		if tr := g.Process(clipping, now); tr != TransitionNone {
			t.Fatalf("Block %d: transition %v before arm threshold", i, tr)
		}
		now += block
	}

	if tr := g.Process(clipping, now); tr != TransitionArmed {
		t.Fatalf("Fourth clipping block: got %v, want armed", tr)
	}
	if !g.Active() || g.ActivatedAt() != now {
		t.Errorf("Active %v activatedAt %v, want true and %v", g.Active(), g.ActivatedAt(), now)
	}
	if math.Abs(g.OutputGain()-0.2512) > 0.001 {
		t.Errorf("Emergency gain: got %f, want ~0.251 (-12 dB)", g.OutputGain())
	}
}

func TestGuardLeakyCounter(t *testing.T) {
	g := NewGuard(DefaultGuardConfig())

	// Alternating blocks never accumulate
	var now time.Duration
	for i := 0; i < 100; i++ {
		g.Process(clipping, now)
		g.Process(normal, now)
		now += 2 * block
	}
	if g.Active() {
		t.Error("Alternating clip/normal blocks armed the guard")
	}
	if g.Count() > 1 {
		t.Errorf("Counter drifted to %d", g.Count())
	}

	// Counter never goes negative
	for i := 0; i < 10; i++ {
		g.Process(normal, now)
	}
	if g.Count() != 0 {
		t.Errorf("Counter: got %d, want 0", g.Count())
	}
}

func TestGuardCounterCapped(t *testing.T) {
	cfg := DefaultGuardConfig()
	g := NewGuard(cfg)

	for i := 0; i < 100; i++ {
		g.Process(clipping, time.Duration(i)*block)
	}
	if g.Count() != cfg.MaxCount {
		t.Errorf("Counter: got %d, want cap %d", g.Count(), cfg.MaxCount)
	}
}

func TestGuardHoldBeforeDisarm(t *testing.T) {
	cfg := DefaultGuardConfig()
	g := NewGuard(cfg)
	g.SetUserGain(0.8)

	var now time.Duration
	for !g.Active() {
		g.Process(clipping, now)
		now += block
	}
	armedAt := g.ActivatedAt()

	// Clipping stops right away; the counter drains long before the hold ends
	for now-armedAt < cfg.Hold {
		if tr := g.Process(normal, now); tr == TransitionDisarmed {
			t.Fatalf("Disarmed %v after activation, before hold %v", now-armedAt, cfg.Hold)
		}
		now += block
	}

	if tr := g.Process(normal, now); tr != TransitionDisarmed {
		t.Fatalf("Got %v after hold elapsed, want disarmed", tr)
	}
	if g.Active() {
		t.Error("Guard still active after disarm")
	}
	if g.OutputGain() != 0.8 {
		t.Errorf("User gain not restored: got %f, want 0.8", g.OutputGain())
	}
}

func TestGuardStaysArmedWhileClipping(t *testing.T) {
	cfg := DefaultGuardConfig()
	g := NewGuard(cfg)

	var now time.Duration
	for i := 0; i < 1000; i++ {
		g.Process(clipping, now)
		now += block
	}
	if !g.Active() {
		t.Error("Guard disarmed during sustained clipping")
	}
}

func TestGuardRMSClip(t *testing.T) {
	g := NewGuard(DefaultGuardConfig())
	loudRMS := envelope.Levels{RMS: 0.75, Peak: 0.9}

	for i := 0; i < 4; i++ {
		g.Process(loudRMS, time.Duration(i)*block)
	}
	if !g.Active() {
		t.Error("RMS above the clip level did not arm the guard")
	}
}

func TestGuardSilenceIsIdle(t *testing.T) {
	g := NewGuard(DefaultGuardConfig())
	for i := 0; i < 10000; i++ {
		if tr := g.Process(envelope.Levels{}, time.Duration(i)*block); tr != TransitionNone {
			t.Fatalf("Silence produced transition %v", tr)
		}
	}
	if g.Active() || g.Count() != 0 {
		t.Error("Silence changed the guard state")
	}
}

func TestGuardReducedGainFloor(t *testing.T) {
	cfg := DefaultGuardConfig()
	cfg.ReducedGainDB = -80
	if got := cfg.ReducedGain(); got != 0.05 {
		t.Errorf("ReducedGain: got %f, want floor 0.05", got)
	}
}

func TestGuardConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*GuardConfig)
		wantErr bool
	}{
		{"Default", func(c *GuardConfig) {}, false},
		{"ZeroArm", func(c *GuardConfig) { c.ArmBlocks = 0 }, true},
		{"CapBelowArm", func(c *GuardConfig) { c.MaxCount = 2 }, true},
		{"NegativeHold", func(c *GuardConfig) { c.Hold = -time.Second }, true},
		{"Boost", func(c *GuardConfig) { c.ReducedGainDB = 3 }, true},
		{"ZeroClip", func(c *GuardConfig) { c.ClipPeak = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultGuardConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTransitionString(t *testing.T) {
	if TransitionArmed.String() != "armed" || TransitionDisarmed.String() != "disarmed" || TransitionNone.String() != "none" {
		t.Error("unexpected transition names")
	}
}
