package debug

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Profiler records timing statistics for named sections of the
// processing path.
type Profiler struct {
	mu           sync.RWMutex
	measurements map[string]*Measurement
	enabled      atomic.Bool
	maxSamples   int
}

// Measurement holds timing statistics for a profiled section.
type Measurement struct {
	Name  string
	Count uint64
	Total time.Duration
	Min   time.Duration
	Max   time.Duration
	Last  time.Duration

	samples     []time.Duration
	sampleIndex int
}

// NewProfiler creates a profiler that keeps the last maxSamples timings
// of every section for percentile queries.
func NewProfiler(maxSamples int) *Profiler {
	if maxSamples < 1 {
		maxSamples = 1
	}
	p := &Profiler{
		measurements: make(map[string]*Measurement),
		maxSamples:   maxSamples,
	}
	p.enabled.Store(true)
	return p
}

// SetEnabled enables or disables profiling.
func (p *Profiler) SetEnabled(enabled bool) {
	p.enabled.Store(enabled)
}

// IsEnabled returns whether profiling is enabled.
func (p *Profiler) IsEnabled() bool {
	return p.enabled.Load()
}

// Start begins timing a named section. The returned function stops the
// timer and returns the elapsed time.
func (p *Profiler) Start(name string) func() time.Duration {
	if !p.enabled.Load() {
		return func() time.Duration { return 0 }
	}

	start := time.Now()
	return func() time.Duration {
		elapsed := time.Since(start)
		p.Record(name, elapsed)
		return elapsed
	}
}

// Time measures the execution time of a function.
func (p *Profiler) Time(name string, fn func()) time.Duration {
	stop := p.Start(name)
	fn()
	return stop()
}

// Record stores a timing measurement taken elsewhere.
func (p *Profiler) Record(name string, elapsed time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	m, exists := p.measurements[name]
	if !exists {
		m = &Measurement{
			Name:    name,
			Min:     elapsed,
			Max:     elapsed,
			samples: make([]time.Duration, 0, p.maxSamples),
		}
		p.measurements[name] = m
	}

	m.Count++
	m.Total += elapsed
	m.Last = elapsed
	if elapsed < m.Min {
		m.Min = elapsed
	}
	if elapsed > m.Max {
		m.Max = elapsed
	}

	if len(m.samples) < p.maxSamples {
		m.samples = append(m.samples, elapsed)
	} else {
		m.samples[m.sampleIndex] = elapsed
	}
	m.sampleIndex = (m.sampleIndex + 1) % p.maxSamples
}

// GetMeasurement returns a copy of the measurement for a named section.
func (p *Profiler) GetMeasurement(name string) (Measurement, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	m, exists := p.measurements[name]
	if !exists {
		return Measurement{}, false
	}
	return m.clone(), true
}

// Measurements returns copies of all measurements sorted by name.
func (p *Profiler) Measurements() []Measurement {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]Measurement, 0, len(p.measurements))
	for _, m := range p.measurements {
		out = append(out, m.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Reset clears all measurements.
func (p *Profiler) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.measurements = make(map[string]*Measurement)
}

// Report renders every measurement as a plain text table.
func (p *Profiler) Report() string {
	measurements := p.Measurements()
	if len(measurements) == 0 {
		return "No measurements recorded"
	}

	var sb strings.Builder
	sb.WriteString("Performance Report:\n")
	sb.WriteString("==================\n\n")
	for _, m := range measurements {
		fmt.Fprintf(&sb, "%s:\n", m.Name)
		fmt.Fprintf(&sb, "  Count:   %d\n", m.Count)
		fmt.Fprintf(&sb, "  Average: %v\n", m.Average())
		fmt.Fprintf(&sb, "  P99:     %v\n", m.Percentile(99))
		fmt.Fprintf(&sb, "  Min:     %v\n", m.Min)
		fmt.Fprintf(&sb, "  Max:     %v\n", m.Max)
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m *Measurement) clone() Measurement {
	c := *m
	c.samples = slices.Clone(m.samples)
	return c
}

// Average returns the average time for this measurement.
func (m Measurement) Average() time.Duration {
	if m.Count == 0 {
		return 0
	}
	return m.Total / time.Duration(m.Count)
}

// Percentile returns the p-th percentile (0-100) of the retained samples.
func (m Measurement) Percentile(p float64) time.Duration {
	if len(m.samples) == 0 {
		return 0
	}
	sorted := slices.Clone(m.samples)
	slices.Sort(sorted)

	index := int(float64(len(sorted)-1) * p / 100.0)
	if index < 0 {
		index = 0
	}
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	return sorted[index]
}

// BlockSection is the section name used for whole-block processing.
const BlockSection = "ProcessBlock"

// BlockProfiler times the per-block processing path against the real time
// budget of one block.
type BlockProfiler struct {
	*Profiler
	sampleRate float64
	blockSize  int
	budget     time.Duration
	overruns   atomic.Uint64
}

// NewBlockProfiler creates a profiler whose budget is the playback
// duration of one block.
func NewBlockProfiler(sampleRate float64, blockSize int) *BlockProfiler {
	var budget time.Duration
	if sampleRate > 0 {
		budget = time.Duration(math.Round(float64(blockSize) / sampleRate * float64(time.Second)))
	}
	return &BlockProfiler{
		Profiler:   NewProfiler(1000),
		sampleRate: sampleRate,
		blockSize:  blockSize,
		budget:     budget,
	}
}

// Budget returns the duration of one block.
func (b *BlockProfiler) Budget() time.Duration {
	return b.budget
}

// RecordBlock stores one block timing and reports whether it overran the
// budget.
func (b *BlockProfiler) RecordBlock(elapsed time.Duration) bool {
	b.Record(BlockSection, elapsed)
	if b.budget > 0 && elapsed > b.budget {
		b.overruns.Add(1)
		return true
	}
	return false
}

// Overruns returns the number of blocks that took longer than the budget.
func (b *BlockProfiler) Overruns() uint64 {
	return b.overruns.Load()
}

// Load returns the average block time as a percentage of the budget.
func (b *BlockProfiler) Load() float64 {
	m, ok := b.GetMeasurement(BlockSection)
	if !ok || b.budget == 0 {
		return 0
	}
	return float64(m.Average()) / float64(b.budget) * 100
}

// BlockReport extends Report with the real time budget figures.
func (b *BlockProfiler) BlockReport() string {
	var sb strings.Builder
	sb.WriteString(b.Report())
	sb.WriteString("\nBlock Budget:\n")
	fmt.Fprintf(&sb, "  Sample Rate: %.0f Hz\n", b.sampleRate)
	fmt.Fprintf(&sb, "  Block Size:  %d samples\n", b.blockSize)
	fmt.Fprintf(&sb, "  Budget:      %v\n", b.budget)
	fmt.Fprintf(&sb, "  Load:        %.2f%%\n", b.Load())
	fmt.Fprintf(&sb, "  Overruns:    %d\n", b.Overruns())
	return sb.String()
}

// Reset clears the measurements and the overrun count.
func (b *BlockProfiler) Reset() {
	b.Profiler.Reset()
	b.overruns.Store(0)
}
