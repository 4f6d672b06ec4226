package pitch

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/window"
	"gonum.org/v1/gonum/floats"

	"github.com/grumpedal/grum/pkg/dsp"
	"github.com/grumpedal/grum/pkg/dsp/analysis"
	"github.com/grumpedal/grum/pkg/dsp/envelope"
	"github.com/grumpedal/grum/pkg/dsp/interpolation"
)

// HPSConfig holds the harmonic product spectrum parameters
type HPSConfig struct {
	FFTSize   int     // Zero-padded transform length, power of two
	Harmonics int     // Number of spectrum copies multiplied together
	Range     Range   // Plausible instrument range
	MinRMS    float64 // Quieter windows return NoPitch
	PeakFloor float64 // Minimum magnitude for a candidate peak
	PeakRatio float64 // Candidates must reach this share of the strongest peak
	MaxPeaks  int     // Candidate peaks examined per frame
}

// DefaultHPSConfig returns parameters for six-string guitar and bass
func DefaultHPSConfig() HPSConfig {
	return HPSConfig{
		FFTSize:   8192,
		Harmonics: 4,
		Range:     Range{MinHz: dsp.MinInstrumentHz, MaxHz: dsp.MaxInstrumentHz},
		MinRMS:    dsp.SilenceFloor,
		PeakFloor: 0.002,
		PeakRatio: 0.1,
		MaxPeaks:  8,
	}
}

// Validate reports the first out-of-range parameter
func (c HPSConfig) Validate() error {
	if c.FFTSize < 64 || c.FFTSize&(c.FFTSize-1) != 0 {
		return fmt.Errorf("hps: fft size %d must be a power of two >= 64", c.FFTSize)
	}
	if c.Harmonics < 1 || c.Harmonics > 8 {
		return fmt.Errorf("hps: harmonics %d outside [1,8]", c.Harmonics)
	}
	if c.MaxPeaks < 1 {
		return fmt.Errorf("hps: max peaks %d must be positive", c.MaxPeaks)
	}
	if c.PeakRatio < 0 || c.PeakRatio > 1 {
		return fmt.Errorf("hps: peak ratio %g outside [0,1]", c.PeakRatio)
	}
	if c.MinRMS < 0 || c.PeakFloor < 0 {
		return fmt.Errorf("hps: floors must not be negative")
	}
	return c.Range.Validate()
}

// HPS estimates pitch in the frequency domain. The window is Hann-shaped,
// zero-padded to FFTSize and transformed. Spectral peaks inside the
// instrument range are candidates; each is scored by the product of the
// magnitudes at its harmonics and the best one is refined by parabolic
// interpolation across the three bins around it. Confidence is the share of
// in-range energy that sits on the chosen harmonic series.
type HPS struct {
	config     HPSConfig
	sampleRate float64

	fft   *analysis.FFT
	frame []float64
	peaks []int
}

// NewHPS creates an HPS estimator
func NewHPS(sampleRate float64, config HPSConfig) *HPS {
	return &HPS{
		config:     config,
		sampleRate: sampleRate,
		fft:        analysis.NewFFT(config.FFTSize, analysis.RectangularWindow),
		frame:      make([]float64, config.FFTSize),
		peaks:      make([]int, 0, config.MaxPeaks),
	}
}

// binOf converts a frequency to the nearest bin
func (h *HPS) binOf(freq float64) int {
	return int(math.Round(freq * float64(h.config.FFTSize) / h.sampleRate))
}

// Estimate returns the pitch of samples, or NoPitch
func (h *HPS) Estimate(samples []float32) Estimate {
	// At least one period of the lowest note
	if float64(len(samples)) < h.sampleRate/h.config.Range.MinHz {
		return NoPitch
	}
	if envelope.Measure(samples).RMS < h.config.MinRMS {
		return NoPitch
	}

	if len(samples) > h.config.FFTSize {
		samples = samples[len(samples)-h.config.FFTSize:]
	}
	n := len(samples)

	// Window the data over its own length, then zero pad
	for i, s := range samples {
		h.frame[i] = float64(s)
	}
	window.Hann(h.frame[:n])
	for i := n; i < len(h.frame); i++ {
		h.frame[i] = 0
	}

	mag := h.fft.Forward(h.frame)

	// Rescale to amplitude so PeakFloor is in signal units
	floats.Scale(float64(h.config.FFTSize)/(0.5*float64(n-1)), mag)

	lo := h.binOf(h.config.Range.MinHz)
	if lo < 1 {
		lo = 1
	}
	hi := h.binOf(h.config.Range.MaxHz)
	if hi > len(mag)-2 {
		hi = len(mag) - 2
	}

	if hi < lo {
		return NoPitch
	}

	// Window sidelobes must not become candidates
	floor := math.Max(h.config.PeakFloor, h.config.PeakRatio*floats.Max(mag[lo:hi+1]))
	h.peaks = FindPeaks(mag, lo, hi, floor, h.peaks[:0], h.config.MaxPeaks)
	if len(h.peaks) == 0 {
		return NoPitch
	}

	// Main lobe half-width of the data window, in padded bins
	lobe := int(math.Ceil(2*float64(h.config.FFTSize)/float64(n))) + 1

	best, bestScore := -1, 0.0
	for _, k := range h.peaks {
		score := h.product(mag, k, lobe)
		if score > bestScore {
			best, bestScore = k, score
		}
	}
	if best < 0 {
		return NoPitch
	}

	bin := float64(best) + interpolation.Parabolic(mag[best-1], mag[best], mag[best+1])
	freq := bin * h.sampleRate / float64(h.config.FFTSize)
	if !h.config.Range.Contains(freq) {
		return NoPitch
	}

	confidence := HarmonicEnergyRatio(mag, bin, h.config.Harmonics, lo, lobe/2)
	if confidence <= 0 {
		return NoPitch
	}

	return Estimate{FrequencyHz: freq, Confidence: confidence}
}

// product multiplies the harmonic magnitudes of bin k. Harmonics beyond the
// spectrum or below the peak floor contribute the floor instead of zero so a
// pure tone still scores.
func (h *HPS) product(mag []float64, k, lobe int) float64 {
	floor := math.Max(h.config.PeakFloor, dsp.Epsilon)
	p := mag[k]
	for n := 2; n <= h.config.Harmonics; n++ {
		p *= math.Max(neighborhoodMax(mag, n*k, lobe/2), floor)
	}
	return p
}
