package main

import (
	"fmt"
	"os"

	"github.com/faiface/beep"
	"github.com/faiface/beep/wav"
)

// resampleQuality trades speed for accuracy in beep.Resample.
const resampleQuality = 4

// recording is a decoded input file.
type recording struct {
	Samples    []float32 // Mono, at SampleRate
	SampleRate int
	SourceRate int
	Channels   int
}

// loadWAV decodes path, folds it to mono and converts it to sampleRate.
func loadWAV(path string, sampleRate int) (*recording, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	streamer, format, err := wav.Decode(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	defer streamer.Close()

	var s beep.Streamer = streamer
	target := beep.SampleRate(sampleRate)
	if format.SampleRate != target {
		s = beep.Resample(resampleQuality, format.SampleRate, target, streamer)
	}

	capacity := streamer.Len()
	if format.SampleRate != target && format.SampleRate > 0 {
		capacity = int(int64(capacity) * int64(target) / int64(format.SampleRate))
	}

	rec := &recording{
		Samples:    make([]float32, 0, capacity+1),
		SampleRate: sampleRate,
		SourceRate: int(format.SampleRate),
		Channels:   format.NumChannels,
	}

	// beep always streams stereo frames; mono files carry the same sample
	// in both.
	buf := make([][2]float64, 1024)
	for {
		n, ok := s.Stream(buf)
		for _, frame := range buf[:n] {
			rec.Samples = append(rec.Samples, float32((frame[0]+frame[1])/2))
		}
		if !ok {
			break
		}
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return rec, nil
}

// blocks splits samples into blocks of size, zero padding the last one.
func blocks(samples []float32, size int) [][]float32 {
	if size <= 0 {
		return nil
	}
	out := make([][]float32, 0, (len(samples)+size-1)/size)
	for start := 0; start < len(samples); start += size {
		end := start + size
		if end <= len(samples) {
			out = append(out, samples[start:end])
			continue
		}
		last := make([]float32, size)
		copy(last, samples[start:])
		out = append(out, last)
	}
	return out
}
