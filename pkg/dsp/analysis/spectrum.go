package analysis

// SpectrumAnalyzer frames a sample stream and produces magnitude spectra on
// its own cadence. Consecutive frames overlap by fftSize - hop samples.
type SpectrumAnalyzer struct {
	fft        *FFT
	size       int
	hop        int
	bins       int
	sampleRate float64

	frame  []float64 // Samples of the frame being filled
	filled int
	mags   []float64 // Latest spectrum, size/2+1 bins
	frames int64
}

// NewSpectrumAnalyzer creates an analyzer with 50% overlap returning the
// lower half of the spectrum.
func NewSpectrumAnalyzer(fftSize int, sampleRate float64, window WindowFunc) *SpectrumAnalyzer {
	return &SpectrumAnalyzer{
		fft:        NewFFT(fftSize, window),
		size:       fftSize,
		hop:        fftSize / 2,
		bins:       fftSize / 2,
		sampleRate: sampleRate,
		frame:      make([]float64, fftSize),
		mags:       make([]float64, fftSize/2+1),
	}
}

// SetHopSize sets the samples between frames. Values outside [1, fftSize]
// are ignored.
func (sa *SpectrumAnalyzer) SetHopSize(hop int) {
	if hop > 0 && hop <= sa.size {
		sa.hop = hop
	}
}

// SetBins sets how many low bins Frame returns. Values beyond the spectrum
// are ignored.
func (sa *SpectrumAnalyzer) SetBins(bins int) {
	if bins > 0 && bins <= len(sa.mags) {
		sa.bins = bins
	}
}

// Bins returns the frame width.
func (sa *SpectrumAnalyzer) Bins() int {
	return sa.bins
}

// BinHz returns the width of one bin.
func (sa *SpectrumAnalyzer) BinHz() float64 {
	return sa.sampleRate / float64(sa.size)
}

// Process appends samples and reports whether at least one new spectrum
// was completed. Only the latest spectrum is kept.
func (sa *SpectrumAnalyzer) Process(samples []float32) bool {
	ready := false
	for _, s := range samples {
		sa.frame[sa.filled] = float64(s)
		sa.filled++
		if sa.filled < sa.size {
			continue
		}

		copy(sa.mags, sa.fft.Forward(sa.frame))
		sa.frames++
		ready = true

		keep := sa.size - sa.hop
		copy(sa.frame, sa.frame[sa.hop:])
		sa.filled = keep
	}
	return ready
}

// Frame returns the lowest Bins() magnitudes of the latest spectrum. The
// slice is owned by the analyzer and overwritten by Process.
func (sa *SpectrumAnalyzer) Frame() []float64 {
	return sa.mags[:sa.bins]
}

// Frames returns how many spectra have been produced.
func (sa *SpectrumAnalyzer) Frames() int64 {
	return sa.frames
}

// Reset discards the partial frame and the latest spectrum.
func (sa *SpectrumAnalyzer) Reset() {
	clear(sa.frame)
	clear(sa.mags)
	sa.filled = 0
	sa.frames = 0
}
