// Package filter provides the input conditioning filters run ahead of detection
package filter

import "math"

// Biquad is a second-order IIR section in Direct Form I for one mono
// stream. Coefficients are normalised so that a0 is 1.
type Biquad struct {
	b0, b1, b2 float32
	a1, a2     float32

	x1, x2 float32
	y1, y2 float32
}

// NewBiquad creates a pass-through section.
func NewBiquad() *Biquad {
	return &Biquad{b0: 1}
}

// Reset clears the delay lines and keeps the coefficients.
func (b *Biquad) Reset() {
	b.x1, b.x2, b.y1, b.y2 = 0, 0, 0, 0
}

// SetCoefficients installs a raw transfer function, dividing through by a0.
func (b *Biquad) SetCoefficients(b0, b1, b2, a0, a1, a2 float32) {
	n := 1 / a0
	b.b0, b.b1, b.b2 = b0*n, b1*n, b2*n
	b.a1, b.a2 = a1*n, a2*n
}

// Process filters block in place without allocating.
func (b *Biquad) Process(block []float32) {
	x1, x2, y1, y2 := b.x1, b.x2, b.y1, b.y2
	for i, x := range block {
		y := b.b0*x + b.b1*x1 + b.b2*x2 - b.a1*y1 - b.a2*y2
		x1, x2 = x, x1
		y1, y2 = y, y1
		block[i] = y
	}
	b.x1, b.x2, b.y1, b.y2 = x1, x2, y1, y2
}

// rbj holds the shared terms of the audio EQ cookbook designs.
type rbj struct {
	cos, alpha float64
}

func cookbook(sampleRate, freq, q float64) rbj {
	w := 2 * math.Pi * freq / sampleRate
	return rbj{cos: math.Cos(w), alpha: math.Sin(w) / (2 * q)}
}

func (r rbj) denominator() (a0, a1, a2 float32) {
	return float32(1 + r.alpha), float32(-2 * r.cos), float32(1 - r.alpha)
}

// SetHighpass designs a second-order highpass at freq with quality q.
func (b *Biquad) SetHighpass(sampleRate, freq, q float64) {
	r := cookbook(sampleRate, freq, q)
	edge := float32((1 + r.cos) / 2)
	a0, a1, a2 := r.denominator()
	b.SetCoefficients(edge, -2*edge, edge, a0, a1, a2)
}

// SetNotch designs a band reject centred on freq. Higher q narrows it.
func (b *Biquad) SetNotch(sampleRate, freq, q float64) {
	r := cookbook(sampleRate, freq, q)
	a0, a1, a2 := r.denominator()
	b.SetCoefficients(1, a1, 1, a0, a1, a2)
}
