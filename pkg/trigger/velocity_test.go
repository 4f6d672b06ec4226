package trigger

import (
	"math"
	"math/rand"
	"testing"
)

func TestVelocityBounds(t *testing.T) {
	c := DefaultVelocityConfig()
	rng := rand.New(rand.NewSource(3))

	for i := 0; i < 10000; i++ {
		s := VelocitySignals{
			Ratio:       rng.Float64() * 40,
			Flux:        rng.Float64(),
			HasFlux:     rng.Intn(2) == 0,
			Level:       rng.Float64() * 2,
			FrequencyHz: 40 + rng.Float64()*1000,
		}
		if v := c.Estimate(s); v < c.Floor || v > 1 {
			t.Fatalf("Estimate(%+v) = %f outside [%g, 1]", s, v, c.Floor)
		}
	}
}

func TestVelocityDegenerateInputs(t *testing.T) {
	c := DefaultVelocityConfig()

	tests := []struct {
		name string
		s    VelocitySignals
	}{
		{"Empty", VelocitySignals{}},
		{"NaNRatio", VelocitySignals{Ratio: math.NaN(), Level: 0.1}},
		{"InfLevel", VelocitySignals{Ratio: 2, Level: math.Inf(1)}},
		{"NegativeFlux", VelocitySignals{HasFlux: true, Flux: -5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := c.Estimate(tt.s)
			if math.IsNaN(v) || v < c.Floor || v > 1 {
				t.Errorf("Estimate = %f", v)
			}
		})
	}

	if v := c.Estimate(VelocitySignals{}); v != c.Floor {
		t.Errorf("No signals: got %f, want the floor %f", v, c.Floor)
	}
}

func TestVelocityMonotonic(t *testing.T) {
	c := DefaultVelocityConfig()
	soft := c.Estimate(VelocitySignals{Ratio: 2, Level: 0.05, FrequencyHz: 110})
	hard := c.Estimate(VelocitySignals{Ratio: 6, Level: 0.3, FrequencyHz: 110})
	if hard <= soft {
		t.Errorf("Hard pick %f not louder than soft pick %f", hard, soft)
	}
}

func TestVelocityRenormalizesMissingFlux(t *testing.T) {
	c := DefaultVelocityConfig()

	// Ratio and level both saturate: without flux the result must still
	// reach full scale.
	s := VelocitySignals{Ratio: 20, Level: 1, FrequencyHz: 100}
	if v := c.Estimate(s); math.Abs(v-1) > 1e-12 {
		t.Errorf("Saturated signals without flux: got %f, want 1", v)
	}

	s.HasFlux = true
	s.Flux = 0
	want := c.Floor + (1-c.Floor)*0.8
	if v := c.Estimate(s); math.Abs(v-want) > 1e-9 {
		t.Errorf("Zero flux weighted in: got %f, want %f", v, want)
	}
}

func TestVelocityCompensation(t *testing.T) {
	c := DefaultVelocityConfig()

	tests := []struct {
		freq float64
		want float64
	}{
		{100, 1},
		{400, 0.5},
		{1000, 0.5},
		{25, 2},
		{10, 2},
		{-1, 1},
		{0, 1},
	}
	for _, tt := range tests {
		if got := c.Compensation(tt.freq); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Compensation(%g): got %f, want %f", tt.freq, got, tt.want)
		}
	}

	unknown := c.Estimate(VelocitySignals{Level: 0.2, FrequencyHz: -1})
	reference := c.Estimate(VelocitySignals{Level: 0.2, FrequencyHz: 100})
	if unknown != reference {
		t.Errorf("Fallback hit %f differs from the reference pitch %f", unknown, reference)
	}
}

func TestVelocityConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*VelocityConfig)
		wantErr bool
	}{
		{"Default", func(c *VelocityConfig) {}, false},
		{"NegativeWeight", func(c *VelocityConfig) { c.FluxWeight = -1 }, true},
		{"ZeroWeights", func(c *VelocityConfig) { c.RatioWeight, c.FluxWeight, c.LevelWeight = 0, 0, 0 }, true},
		{"NegativeScale", func(c *VelocityConfig) { c.LevelScale = -1 }, true},
		{"ZeroReference", func(c *VelocityConfig) { c.ReferenceHz = 0 }, true},
		{"InvertedCompensation", func(c *VelocityConfig) { c.MinCompensation, c.MaxCompensation = 2, 1 }, true},
		{"FloorOne", func(c *VelocityConfig) { c.Floor = 1 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultVelocityConfig()
			tt.mutate(&c)
			if err := c.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFallbackClassify(t *testing.T) {
	c := DefaultFallbackConfig()
	c.Enabled = true
	binHz := testSampleRate / 256

	frame := func(bins ...int) []float64 {
		f := make([]float64, 64)
		for _, b := range bins {
			f[b] = 0.5
		}
		return f
	}

	tests := []struct {
		name   string
		frame  []float64
		want   Voice
		wantOK bool
	}{
		{"Low", frame(1, 2), Kick, true},
		{"Mid", frame(5), Snare, true},
		{"High", frame(12, 18), HiHat, true},
		{"LowAndMidEven", frame(2, 6), Snare, true},
		{"Quiet", make([]float64, 64), NoVoice, false},
		{"Empty", nil, NoVoice, false},
		{"BelowLowEdge", frame(0), NoVoice, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := c.Classify(tt.frame, binHz)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("Classify() = %s, %v; want %s, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestFallbackConfigValidate(t *testing.T) {
	c := DefaultFallbackConfig()
	if err := c.Validate(); err != nil {
		t.Errorf("Disabled default: %v", err)
	}
	c.Enabled = true
	if err := c.Validate(); err != nil {
		t.Errorf("Enabled default: %v", err)
	}
	c.MidHz = c.LowHz
	if err := c.Validate(); err == nil {
		t.Error("Non increasing edges accepted")
	}
}
