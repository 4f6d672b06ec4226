package debug

import (
	"fmt"
	"math"

	"github.com/grumpedal/grum/pkg/dsp/gain"
)

// InputAnalyzer accumulates diagnostics over an input stream. It is fed
// block by block and never allocates after construction.
type InputAnalyzer struct {
	ClipThreshold    float32
	DCThreshold      float64
	SilenceThreshold float64

	stats InputStats
	sum   float64
	sumSq float64
	last  float32
}

// InputStats summarises everything an InputAnalyzer has seen.
type InputStats struct {
	Samples       int
	Peak          float32
	RMS           float64
	DC            float64
	ClippedCount  int
	NonFinite     int
	ZeroCrossings int
}

// NewInputAnalyzer creates an analyzer with the guitar input defaults.
func NewInputAnalyzer() *InputAnalyzer {
	return &InputAnalyzer{
		ClipThreshold:    0.99,
		DCThreshold:      0.01,
		SilenceThreshold: 0.0001,
	}
}

// Add folds a block into the running statistics. Non-finite samples are
// counted and excluded.
func (a *InputAnalyzer) Add(block []float32) {
	for _, s := range block {
		if !finite(s) {
			a.stats.NonFinite++
			continue
		}

		abs := s
		if abs < 0 {
			abs = -abs
		}
		if abs > a.stats.Peak {
			a.stats.Peak = abs
		}
		if abs >= a.ClipThreshold {
			a.stats.ClippedCount++
		}
		if a.stats.Samples > 0 && (a.last < 0) != (s < 0) {
			a.stats.ZeroCrossings++
		}

		a.sum += float64(s)
		a.sumSq += float64(s) * float64(s)
		a.last = s
		a.stats.Samples++
	}
}

// Stats returns the statistics gathered so far.
func (a *InputAnalyzer) Stats() InputStats {
	st := a.stats
	if st.Samples > 0 {
		st.RMS = math.Sqrt(a.sumSq / float64(st.Samples))
		st.DC = a.sum / float64(st.Samples)
	}
	return st
}

// Reset discards all statistics.
func (a *InputAnalyzer) Reset() {
	a.stats = InputStats{}
	a.sum, a.sumSq, a.last = 0, 0, 0
}

// Issues lists the input problems that degrade trigger detection.
func (a *InputAnalyzer) Issues(name string) []string {
	st := a.Stats()
	var issues []string

	if st.Samples == 0 {
		return append(issues, fmt.Sprintf("%s: no samples", name))
	}
	if st.NonFinite > 0 {
		issues = append(issues, fmt.Sprintf("%s: contains %d non-finite values", name, st.NonFinite))
	}
	if st.ClippedCount > 0 {
		issues = append(issues, fmt.Sprintf("%s: clipping detected (%d samples)", name, st.ClippedCount))
	}
	if math.Abs(st.DC) > a.DCThreshold {
		issues = append(issues, fmt.Sprintf("%s: DC offset detected (%.3f)", name, st.DC))
	}
	if st.RMS < a.SilenceThreshold {
		issues = append(issues, fmt.Sprintf("%s: input is silent (rms %.6f)", name, st.RMS))
	}
	return issues
}

// LogStats writes the statistics and any issues to a logger.
func (a *InputAnalyzer) LogStats(l *Logger, name string) {
	st := a.Stats()
	l.Info("input '%s': %d samples, peak %.1f dBFS, rms %.1f dBFS, dc %.5f, crossings %d",
		name, st.Samples, gain.LinearToDb(float64(st.Peak)), gain.LinearToDb(st.RMS), st.DC, st.ZeroCrossings)
	for _, issue := range a.Issues(name) {
		l.Warn("%s", issue)
	}
}

// Sanitize replaces NaN and infinite samples with silence in place and
// returns how many were replaced.
func Sanitize(block []float32) int {
	n := 0
	for i, s := range block {
		if !finite(s) {
			block[i] = 0
			n++
		}
	}
	return n
}

func finite(s float32) bool {
	f := float64(s)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
