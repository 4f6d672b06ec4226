package pitch

import (
	"math"
	"testing"
)

func TestFindPeaks(t *testing.T) {
	mag := []float64{0, 0.5, 0.1, 0.3, 0.3, 0.1, 0.001, 0.002, 0.0, 0.9, 0}

	got := FindPeaks(mag, 1, 9, 0.01, nil, 8)
	want := []int{1, 3, 9}
	if len(got) != len(want) {
		t.Fatalf("Peaks: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Peak %d: got %d, want %d", i, got[i], want[i])
		}
	}

	if got := FindPeaks(mag, 0, 100, 0.01, nil, 1); len(got) != 1 || got[0] != 1 {
		t.Errorf("Limited peaks: got %v", got)
	}
}

func TestHarmonicScore(t *testing.T) {
	mag := make([]float64, 64)
	mag[10] = 1.0
	mag[20] = 0.5
	mag[31] = 0.3 // Slightly sharp third harmonic
	mag[40] = 0.0005

	got := HarmonicScore(mag, 10, 4, 0.001)
	want := 1.0 + 0.5/2 + 0.3/3
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("Score: got %f, want %f", got, want)
	}

	if HarmonicScore(mag, 0, 4, 0.001) != 0 || HarmonicScore(mag, 100, 4, 0.001) != 0 {
		t.Error("Out-of-range bins should score 0")
	}
}

func TestBestFundamental(t *testing.T) {
	mag := make([]float64, 64)
	mag[10] = 0.6
	mag[20] = 0.7 // Second harmonic louder than the fundamental
	mag[30] = 0.4
	mag[40] = 0.2

	if got := BestFundamental(mag, []int{10, 20, 30}, 4, 0.001); got != 10 {
		t.Errorf("BestFundamental: got %d, want 10", got)
	}
	if BestFundamental(mag, nil, 4, 0.001) != -1 {
		t.Error("Empty candidates should return -1")
	}
}

func TestHarmonicEnergyRatio(t *testing.T) {
	clean := make([]float64, 64)
	clean[10] = 1.0
	clean[20] = 0.5
	if r := HarmonicEnergyRatio(clean, 10, 4, 1, 1); math.Abs(r-1) > 1e-12 {
		t.Errorf("Clean series: got %f, want 1", r)
	}

	flat := make([]float64, 64)
	for i := range flat {
		flat[i] = 1
	}
	r := HarmonicEnergyRatio(flat, 10, 4, 1, 1)
	// 4 harmonics x 3 bins out of bins 1..41
	if math.Abs(r-12.0/41.0) > 1e-12 {
		t.Errorf("Flat spectrum: got %f, want %f", r, 12.0/41.0)
	}

	if HarmonicEnergyRatio(flat, 0, 4, 1, 1) != 0 {
		t.Error("Zero fundamental should read 0")
	}
}
