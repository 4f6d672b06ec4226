// Package analysis provides the spectral front end of the trigger engine.
//
// FFT and Spectral Analysis:
//   - FFT backed by gonum with Hann, Hamming, Blackman and Blackman-Harris windows
//   - Hop-framed spectrum analyzer producing fixed-width magnitude frames
//   - Band energy and high-frequency content measures
//
// Onset Support:
//   - Spectral flux with an adaptive mean/variance threshold
//
// All analysis types are single-owner: they allocate at construction and are
// driven from the audio loop without locking.
//
// Example usage:
//
//	sa := analysis.NewSpectrumAnalyzer(256, 44100, analysis.HannWindow)
//	flux := analysis.NewFluxEstimator(analysis.DefaultFluxConfig())
//
//	if sa.Process(block) {
//	    reading := flux.Update(sa.Frame())
//	    if reading.Valid && reading.Onset {
//	        // spectral change confirmed
//	    }
//	}
package analysis
