// Package buffer provides the sliding sample window that feeds pitch analysis.
package buffer

// Window keeps the most recent samples of a mono stream in a power-of-two
// circular buffer so that an analysis window of any length up to the
// capacity can be read out independently of the block size.
type Window struct {
	data     []float32
	size     uint32
	mask     uint32
	length   int
	writePos uint64
}

// NewWindow creates a window that exposes the last length samples
func NewWindow(length int) *Window {
	if length < 1 {
		length = 1
	}
	size := nextPowerOf2(uint32(length))

	return &Window{
		data:   make([]float32, size),
		size:   size,
		mask:   size - 1,
		length: length,
	}
}

// Write appends samples, overwriting the oldest ones
func (w *Window) Write(samples []float32) {
	// Only the newest size samples can survive
	if len(samples) > int(w.size) {
		w.writePos += uint64(len(samples) - int(w.size))
		samples = samples[len(samples)-int(w.size):]
	}

	// Copy samples with wrap-around handling
	remaining := len(samples)
	srcOffset := 0

	for remaining > 0 {
		dstIdx := uint32(w.writePos) & w.mask
		copySize := remaining

		// Handle wrap-around
		if dstIdx+uint32(copySize) > w.size {
			copySize = int(w.size - dstIdx)
		}

		copy(w.data[dstIdx:dstIdx+uint32(copySize)], samples[srcOffset:srcOffset+copySize])

		srcOffset += copySize
		remaining -= copySize
		w.writePos += uint64(copySize)
	}
}

// Len returns the analysis window length
func (w *Window) Len() int {
	return w.length
}

// Full reports whether at least Len samples have been written
func (w *Window) Full() bool {
	return w.writePos >= uint64(w.length)
}

// Written returns the total number of samples written
func (w *Window) Written() uint64 {
	return w.writePos
}

// Latest copies the last Len samples into dst, oldest first, and returns it.
// dst is grown when it is too short. Unwritten positions read as zero.
func (w *Window) Latest(dst []float32) []float32 {
	if cap(dst) < w.length {
		dst = make([]float32, w.length)
	}
	dst = dst[:w.length]

	readPos := w.writePos - uint64(w.length)
	if w.writePos < uint64(w.length) {
		// Leading zeros for the part not yet written
		missing := w.length - int(w.writePos)
		for i := 0; i < missing; i++ {
			dst[i] = 0
		}
		w.copyOut(dst[missing:], 0)
		return dst
	}

	w.copyOut(dst, readPos)
	return dst
}

func (w *Window) copyOut(dst []float32, readPos uint64) {
	remaining := len(dst)
	dstOffset := 0

	for remaining > 0 {
		srcIdx := uint32(readPos) & w.mask
		copySize := remaining

		// Handle wrap-around
		if srcIdx+uint32(copySize) > w.size {
			copySize = int(w.size - srcIdx)
		}

		copy(dst[dstOffset:dstOffset+copySize], w.data[srcIdx:srcIdx+uint32(copySize)])

		dstOffset += copySize
		remaining -= copySize
		readPos += uint64(copySize)
	}
}

// Reset clears the buffer
func (w *Window) Reset() {
	for i := range w.data {
		w.data[i] = 0
	}
	w.writePos = 0
}

// nextPowerOf2 rounds up to the next power of 2
func nextPowerOf2(n uint32) uint32 {
	if n == 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n++
	return n
}
