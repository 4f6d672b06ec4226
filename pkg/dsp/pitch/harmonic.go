package pitch

// FindPeaks appends to dst the local maxima of mag between bins lo and hi
// that exceed floor, in bin order, stopping after max peaks.
func FindPeaks(mag []float64, lo, hi int, floor float64, dst []int, max int) []int {
	if lo < 1 {
		lo = 1
	}
	if hi > len(mag)-2 {
		hi = len(mag) - 2
	}

	for i := lo; i <= hi && len(dst) < max; i++ {
		if mag[i] > floor && mag[i] > mag[i-1] && mag[i] >= mag[i+1] {
			dst = append(dst, i)
		}
	}
	return dst
}

// HarmonicScore rates bin k as a fundamental: its own magnitude plus the
// strongest bin around each of the next harmonics, weighted by 1/h so lower
// harmonics count more. Harmonics below floor are ignored.
func HarmonicScore(mag []float64, k, harmonics int, floor float64) float64 {
	if k <= 0 || k >= len(mag) {
		return 0
	}

	score := mag[k]
	for h := 2; h <= harmonics; h++ {
		e := neighborhoodMax(mag, h*k, 1)
		if e > floor {
			score += e / float64(h)
		}
	}
	return score
}

// BestFundamental picks the candidate with the highest HarmonicScore.
// It returns -1 when candidates is empty.
func BestFundamental(mag []float64, candidates []int, harmonics int, floor float64) int {
	best, bestScore := -1, 0.0
	for _, k := range candidates {
		if s := HarmonicScore(mag, k, harmonics, floor); s > bestScore {
			best, bestScore = k, s
		}
	}
	return best
}

// HarmonicEnergyRatio returns the share of spectral energy from bin lo up to
// the last harmonic that lies within width bins of the harmonics of the
// fractional bin f. A clean harmonic tone reads close to 1.
func HarmonicEnergyRatio(mag []float64, f float64, harmonics, lo, width int) float64 {
	if f <= 0 {
		return 0
	}
	hi := int(f*float64(harmonics)) + width
	if hi >= len(mag) {
		hi = len(mag) - 1
	}
	if lo < 0 {
		lo = 0
	}

	total := 0.0
	for i := lo; i <= hi; i++ {
		total += mag[i] * mag[i]
	}
	if total <= 0 {
		return 0
	}

	harmonic := 0.0
	last := -1
	for h := 1; h <= harmonics; h++ {
		center := int(f*float64(h) + 0.5)
		start := center - width
		if start <= last {
			start = last + 1
		}
		if start < lo {
			start = lo
		}
		for i := start; i <= center+width && i <= hi; i++ {
			harmonic += mag[i] * mag[i]
			last = i
		}
	}

	ratio := harmonic / total
	if ratio > 1 {
		ratio = 1
	}
	return ratio
}

// neighborhoodMax returns the largest magnitude within r bins of k
func neighborhoodMax(mag []float64, k, r int) float64 {
	m := 0.0
	for i := k - r; i <= k+r; i++ {
		if i >= 0 && i < len(mag) && mag[i] > m {
			m = mag[i]
		}
	}
	return m
}
