package analysis

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
	"gonum.org/v1/gonum/floats"
)

// FFT computes windowed magnitude spectra of real frames
type FFT struct {
	size       int
	window     WindowFunc
	windowData []float64
	windowSum  float64
	plan       *fourier.FFT
	frame      []float64
	coeffs     []complex128
	magnitude  []float64
}

// WindowFunc represents a window function type
type WindowFunc int

const (
	RectangularWindow WindowFunc = iota
	HannWindow
	HammingWindow
	BlackmanWindow
	BlackmanHarrisWindow
)

// String returns the window name used in configuration files.
func (w WindowFunc) String() string {
	switch w {
	case RectangularWindow:
		return "rectangular"
	case HannWindow:
		return "hann"
	case HammingWindow:
		return "hamming"
	case BlackmanWindow:
		return "blackman"
	case BlackmanHarrisWindow:
		return "blackman-harris"
	default:
		return "unknown"
	}
}

// ParseWindow converts a configuration string to a WindowFunc.
func ParseWindow(s string) (WindowFunc, bool) {
	switch s {
	case "rectangular":
		return RectangularWindow, true
	case "hann", "":
		return HannWindow, true
	case "hamming":
		return HammingWindow, true
	case "blackman":
		return BlackmanWindow, true
	case "blackman-harris":
		return BlackmanHarrisWindow, true
	}
	return HannWindow, false
}

// NewFFT creates a new FFT processor with the specified size and window function
func NewFFT(size int, window WindowFunc) *FFT {
	fft := &FFT{
		size:       size,
		window:     window,
		windowData: make([]float64, size),
		plan:       fourier.NewFFT(size),
		frame:      make([]float64, size),
		coeffs:     make([]complex128, size/2+1),
		magnitude:  make([]float64, size/2+1),
	}

	// Pre-calculate window coefficients
	fft.calculateWindow()

	return fft
}

// calculateWindow pre-calculates the window coefficients by shaping a unit frame
func (f *FFT) calculateWindow() {
	for i := range f.windowData {
		f.windowData[i] = 1.0
	}

	switch f.window {
	case HannWindow:
		window.Hann(f.windowData)
	case HammingWindow:
		window.Hamming(f.windowData)
	case BlackmanWindow:
		window.Blackman(f.windowData)
	case BlackmanHarrisWindow:
		window.BlackmanHarris(f.windowData)
	}

	for i, v := range f.windowData {
		if v < 0 {
			f.windowData[i] = 0
		}
	}
	f.windowSum = floats.Sum(f.windowData)
}

// Size returns the frame length
func (f *FFT) Size() int {
	return f.size
}

// Forward computes the amplitude-normalized magnitude spectrum of input.
// A full-scale sine centred on a bin reads close to 1.0 in that bin.
// The returned slice has size/2+1 entries and is reused by the next call.
func (f *FFT) Forward(input []float64) []float64 {
	n := copy(f.frame, input)
	for i := n; i < f.size; i++ {
		f.frame[i] = 0
	}
	floats.Mul(f.frame, f.windowData)

	f.plan.Coefficients(f.coeffs, f.frame)

	scale := 0.0
	if f.windowSum > 0 {
		scale = 2.0 / f.windowSum
	}
	for i, c := range f.coeffs {
		f.magnitude[i] = math.Hypot(real(c), imag(c)) * scale
	}
	// DC and Nyquist carry no mirrored half
	f.magnitude[0] *= 0.5
	if f.size%2 == 0 {
		f.magnitude[len(f.magnitude)-1] *= 0.5
	}

	return f.magnitude
}

// GetFrequencyBin returns the center frequency of a bin
func (f *FFT) GetFrequencyBin(bin int, sampleRate float64) float64 {
	return float64(bin) * sampleRate / float64(f.size)
}

// PowerSpectrum converts a magnitude spectrum to power in place of dst.
// dst must be at least len(magnitude) long.
func PowerSpectrum(dst, magnitude []float64) []float64 {
	dst = dst[:len(magnitude)]
	for i, m := range magnitude {
		dst[i] = m * m
	}
	return dst
}
