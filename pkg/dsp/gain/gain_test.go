package gain

import (
	"math"
	"testing"
)

func TestDbConversion(t *testing.T) {
	tests := []struct {
		name    string
		linear  float64
		db      float64
		epsilon float64
	}{
		{"Unity gain", 1.0, 0.0, 0.001},
		{"Half amplitude", 0.5, -6.02, 0.01},
		{"Double amplitude", 2.0, 6.02, 0.01},
		{"Quarter amplitude", 0.25, -12.04, 0.01},
		{"Zero amplitude", 0.0, MinDB, 0.001},
		{"Negative amplitude", -1.0, MinDB, 0.001},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotDb := LinearToDb(tt.linear)
			if math.Abs(gotDb-tt.db) > tt.epsilon {
				t.Errorf("LinearToDb(%f) = %f, want %f", tt.linear, gotDb, tt.db)
			}

			// DbToLinear is not defined for the floor
			if tt.db != MinDB {
				gotLinear := DbToLinear(tt.db)
				if math.Abs(gotLinear-math.Abs(tt.linear)) > tt.epsilon {
					t.Errorf("DbToLinear(%f) = %f, want %f", tt.db, gotLinear, math.Abs(tt.linear))
				}
			}
		})
	}

	if DbToLinear(MinDB) != 0 {
		t.Errorf("DbToLinear(MinDB) = %f, want 0", DbToLinear(MinDB))
	}
}

func TestTinyAmplitudeFloors(t *testing.T) {
	if got := LinearToDb(1e-20); got != MinDB {
		t.Errorf("LinearToDb(1e-20) = %f, want %f", got, MinDB)
	}
	if got := DbToLinear(-12); math.Abs(got-0.2512) > 0.0001 {
		t.Errorf("DbToLinear(-12) = %f, want 0.2512", got)
	}
}
