package buffer

import (
	"fmt"
	"testing"
)

func ramp(start, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(start + i)
	}
	return out
}

func TestWindowSizing(t *testing.T) {
	tests := []struct {
		length   int
		wantSize uint32
	}{
		{1, 1},
		{256, 256},
		{1000, 1024},
		{2048, 2048},
		{0, 1},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d", tt.length), func(t *testing.T) {
			w := NewWindow(tt.length)
			if w.size != tt.wantSize {
				t.Errorf("size: got %d, want %d", w.size, tt.wantSize)
			}
			if w.mask != w.size-1 {
				t.Errorf("mask: got %d, want %d", w.mask, w.size-1)
			}
		})
	}
}

func TestWindowLatestOrder(t *testing.T) {
	w := NewWindow(1000)

	// 7 blocks of 256 wrap the 1024 ring more than once
	pos := 0
	for i := 0; i < 7; i++ {
		w.Write(ramp(pos, 256))
		pos += 256
	}

	if !w.Full() {
		t.Fatal("Window should be full")
	}
	if w.Written() != uint64(pos) {
		t.Errorf("Written: got %d, want %d", w.Written(), pos)
	}

	got := w.Latest(nil)
	if len(got) != 1000 {
		t.Fatalf("Latest length: got %d, want 1000", len(got))
	}
	for i, v := range got {
		want := float32(pos - 1000 + i)
		if v != want {
			t.Fatalf("Sample %d: got %f, want %f", i, v, want)
		}
	}
}

func TestWindowPartialFill(t *testing.T) {
	w := NewWindow(8)
	w.Write([]float32{1, 2, 3})

	if w.Full() {
		t.Error("Window reported full after 3 of 8 samples")
	}

	got := w.Latest(make([]float32, 0, 8))
	want := []float32{0, 0, 0, 0, 0, 1, 2, 3}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Sample %d: got %f, want %f", i, got[i], want[i])
		}
	}
}

func TestWindowOversizedWrite(t *testing.T) {
	w := NewWindow(4)
	w.Write(ramp(0, 10))

	if w.Written() != 10 {
		t.Errorf("Written: got %d, want 10", w.Written())
	}

	got := w.Latest(nil)
	want := []float32{6, 7, 8, 9}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Sample %d: got %f, want %f", i, got[i], want[i])
		}
	}
}

func TestWindowReuseDestination(t *testing.T) {
	w := NewWindow(16)
	w.Write(ramp(0, 16))

	dst := make([]float32, 16)
	got := w.Latest(dst)
	if &got[0] != &dst[0] {
		t.Error("Latest allocated although dst had capacity")
	}

	allocs := testing.AllocsPerRun(100, func() {
		w.Write(nil)
		w.Latest(dst)
	})
	if allocs != 0 {
		t.Errorf("Latest allocated %f times per run", allocs)
	}
}

func TestWindowReset(t *testing.T) {
	w := NewWindow(4)
	w.Write(ramp(1, 4))
	w.Reset()

	if w.Full() || w.Written() != 0 {
		t.Error("Reset did not clear the write position")
	}
	for _, v := range w.Latest(nil) {
		if v != 0 {
			t.Fatal("Reset did not clear the data")
		}
	}
}
