package pitch

// ZeroCrossingFrequency estimates frequency from the zero-crossing rate of
// window: crossings per sample times sampleRate / 2.
func ZeroCrossingFrequency(window []float32, sampleRate float64) float64 {
	if len(window) < 2 {
		return 0
	}

	crossings := 0
	for i := 1; i < len(window); i++ {
		if (window[i-1] >= 0) != (window[i] >= 0) {
			crossings++
		}
	}
	return float64(crossings) * sampleRate / (2.0 * float64(len(window)))
}

// ZCRValidator wraps an Estimator and rejects readings whose frequency
// disagrees with the zero-crossing rate by more than Tolerance.
type ZCRValidator struct {
	inner      Estimator
	sampleRate float64
	tolerance  float64
}

// NewZCRValidator creates a validator; tolerance is relative (0.3 = 30%)
func NewZCRValidator(inner Estimator, sampleRate, tolerance float64) *ZCRValidator {
	return &ZCRValidator{
		inner:      inner,
		sampleRate: sampleRate,
		tolerance:  tolerance,
	}
}

// Estimate runs the inner estimator and cross-checks it
func (z *ZCRValidator) Estimate(window []float32) Estimate {
	e := z.inner.Estimate(window)
	if !e.Valid() {
		return e
	}

	zf := ZeroCrossingFrequency(window, z.sampleRate)
	if zf <= 0 {
		return NoPitch
	}

	deviation := (zf - e.FrequencyHz) / e.FrequencyHz
	if deviation < 0 {
		deviation = -deviation
	}
	if deviation > z.tolerance {
		return NoPitch
	}
	return e
}
