package analysis

import (
	"math"
	"testing"
)

func constantFrame(n int, v float64) []float64 {
	frame := make([]float64, n)
	for i := range frame {
		frame[i] = v
	}
	return frame
}

func TestFluxPriming(t *testing.T) {
	fe := NewFluxEstimator(DefaultFluxConfig())

	r := fe.Process(constantFrame(8, 0.1))
	if r.Valid || r.Onset || r.Flux != 0 {
		t.Errorf("First frame should only prime: %+v", r)
	}

	r = fe.Process(constantFrame(8, 0.3))
	if r.Valid || r.Onset {
		t.Errorf("Second frame should make no decision: %+v", r)
	}
	if math.Abs(r.Flux-0.2) > 1e-12 {
		t.Errorf("Flux: got %f, want 0.2", r.Flux)
	}

	ema, variance := fe.Baseline()
	if math.Abs(ema-0.2) > 1e-12 || variance != 0 {
		t.Errorf("Baseline after first flux: ema %f var %f, want 0.2 and 0", ema, variance)
	}
}

func TestFluxPositiveOnly(t *testing.T) {
	fe := NewFluxEstimator(DefaultFluxConfig())

	fe.Process([]float64{1, 0, 1, 0})
	r := fe.Process([]float64{0, 1, 0, 0})

	// Only bin 1 rose, by 1.0, averaged over 4 bins
	if math.Abs(r.Flux-0.25) > 1e-12 {
		t.Errorf("Flux: got %f, want 0.25", r.Flux)
	}
}

func TestFluxPreviousFrameOverwritten(t *testing.T) {
	fe := NewFluxEstimator(DefaultFluxConfig())

	frame := constantFrame(16, 0.2)
	fe.Process(frame)
	fe.Process(frame)
	r := fe.Process(frame)
	if r.Flux != 0 {
		t.Errorf("Identical frames produced flux %f", r.Flux)
	}

	// The estimator keeps its own copy
	frame[0] = 5
	r = fe.Process(constantFrame(16, 0.2))
	if r.Flux != 0 {
		t.Errorf("Estimator aliased the caller's frame: flux %f", r.Flux)
	}
}

func TestFluxOnsetDetection(t *testing.T) {
	fe := NewFluxEstimator(DefaultFluxConfig())

	steady := constantFrame(128, 0.01)
	for i := 0; i < 20; i++ {
		r := fe.Process(steady)
		if r.Onset {
			t.Fatalf("Steady frame %d flagged as onset", i)
		}
	}

	r := fe.Process(constantFrame(128, 0.2))
	if !r.Valid || !r.Onset {
		t.Errorf("Broadband jump not flagged: %+v", r)
	}
	if fe.Last() != r {
		t.Error("Last() does not match the latest reading")
	}
}

func TestFluxAbsoluteFloor(t *testing.T) {
	cfg := DefaultFluxConfig()
	cfg.AbsoluteFloor = 0.5
	fe := NewFluxEstimator(cfg)

	fe.Process(constantFrame(4, 0))
	fe.Process(constantFrame(4, 0))
	r := fe.Process(constantFrame(4, 0.4))

	if r.Onset {
		t.Errorf("Flux %f below the absolute floor flagged as onset", r.Flux)
	}
	if r.Threshold != 0.5 {
		t.Errorf("Threshold: got %f, want 0.5", r.Threshold)
	}
}

func TestFluxWidthChangeRestarts(t *testing.T) {
	fe := NewFluxEstimator(DefaultFluxConfig())
	fe.Process(constantFrame(8, 0))
	fe.Process(constantFrame(8, 0))

	r := fe.Process(constantFrame(16, 1))
	if r.Valid || r.Flux != 0 {
		t.Errorf("Width change should prime again: %+v", r)
	}

	if r := fe.Process(nil); r.Valid {
		t.Error("Empty frame produced a valid reading")
	}
}

func TestFluxConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*FluxConfig)
		wantErr bool
	}{
		{"Default", func(c *FluxConfig) {}, false},
		{"NegativeK", func(c *FluxConfig) { c.K = -1 }, true},
		{"ZeroAlpha", func(c *FluxConfig) { c.Alpha = 0 }, true},
		{"DecayOne", func(c *FluxConfig) { c.VarDecay = 1 }, true},
		{"NegativeFloor", func(c *FluxConfig) { c.AbsoluteFloor = -0.1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultFluxConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
