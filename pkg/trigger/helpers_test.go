package trigger

import (
	"math"
	"testing"
	"time"

	"github.com/grumpedal/grum/pkg/debug"
	"github.com/grumpedal/grum/pkg/dsp/envelope"
	"github.com/grumpedal/grum/pkg/dsp/pitch"
)

const (
	testSampleRate = 44100.0
	testBlock      = 441 // 10ms
)

// note is a sine starting at start seconds, optionally decaying with time
// constant decay seconds.
type note struct {
	start, dur float64
	freq, rms  float64
	decay      float64
}

// render mixes notes into a signal of total seconds.
func render(total float64, notes ...note) []float32 {
	out := make([]float32, int(total*testSampleRate))
	for _, n := range notes {
		amp := n.rms * math.Sqrt2
		first := int(n.start * testSampleRate)
		last := min(len(out), int((n.start+n.dur)*testSampleRate))
		for i := first; i < last; i++ {
			t := float64(i-first) / testSampleRate
			a := amp
			if n.decay > 0 {
				a *= math.Exp(-t / n.decay)
			}
			out[i] += float32(a * math.Sin(2*math.Pi*n.freq*t))
		}
	}
	return out
}

// testConfig is the default pipeline with 10ms blocks.
func testConfig() Config {
	c := DefaultConfig()
	c.BlockSize = testBlock
	return c
}

func newTestEngine(t testing.TB, config Config) (*Engine, *Recorder) {
	t.Helper()
	rec := &Recorder{}
	e, err := NewEngine(config, rec)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	e.SetLogger(debug.Discard())
	e.SetGainControl(rec)
	return e, rec
}

// run feeds the signal block by block and returns the triggers produced.
func run(e *Engine, signal []float32, size int) []Trigger {
	var fired []Trigger
	for i := 0; i+size <= len(signal); i += size {
		if res := e.Process(signal[i : i+size]); res.Fired {
			fired = append(fired, res.Trigger)
		}
	}
	return fired
}

// synth builds detector readings by hand.
type synth struct {
	now  time.Duration
	step time.Duration
}

func newSynth() *synth {
	return &synth{step: 5 * time.Millisecond}
}

// next returns a reading at the current time and advances the clock. A
// positive freq attaches a pitch measured at the current time.
func (s *synth) next(level, freq float64) *Reading {
	r := &Reading{
		Now:    s.now,
		Level:  level,
		Levels: envelope.Levels{RMS: level, Peak: level * math.Sqrt2},
	}
	if freq > 0 {
		r.Pitch = pitch.Estimate{FrequencyHz: freq, Confidence: 0.95}
		r.HasPitch = true
		r.PitchFrom = s.now
		r.PitchSpan = 40 * time.Millisecond
	}
	s.now += s.step
	return r
}

// idle advances by d with quiet readings.
func (s *synth) idle(d *Detector, dur time.Duration) {
	for end := s.now + dur; s.now < end; {
		d.Process(s.next(0.002, 0))
	}
}

// immediateConfig resolves every onset in the same cycle.
func immediateConfig() Config {
	c := DefaultConfig()
	c.Detector.PitchSettle = 0
	c.Detector.PitchFreshness = 0
	return c
}

func newImmediateDetector(t *testing.T, mutate func(*Config)) *Detector {
	t.Helper()
	c := immediateConfig()
	if mutate != nil {
		mutate(&c)
	}
	d, err := NewDetector(c)
	if err != nil {
		t.Fatalf("NewDetector: %v", err)
	}
	return d
}
