// Package profiler - Per-stage timing and runtime memory snapshots for the
// detection pipeline.
package profiler

import (
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Pipeline stage names recorded by the detector.
const (
	StageDecode      = "decode"
	StagePreprocess  = "preprocess"
	StageInfer       = "infer"
	StagePostprocess = "postprocess"
	StageAnnotate    = "annotate"
)

// DefaultMaxSamples bounds the durations kept per operation.
const DefaultMaxSamples = 600

// TimeTracker tracks operation timing statistics.
type TimeTracker struct {
	name      string
	durations []time.Duration
	totalTime time.Duration
	minTime   time.Duration
	maxTime   time.Duration
	count     int64
}

// OperationStats is a snapshot of one TimeTracker.
type OperationStats struct {
	Name  string        `json:"name"`
	Count int64         `json:"count"`
	Avg   time.Duration `json:"avg"`
	Min   time.Duration `json:"min"`
	Max   time.Duration `json:"max"`
}

// MemoryStats is a subset of runtime.MemStats.
type MemoryStats struct {
	Alloc         uint64  `json:"alloc"`
	TotalAlloc    uint64  `json:"total_alloc"`
	Sys           uint64  `json:"sys"`
	HeapObjects   uint64  `json:"heap_objects"`
	NumGC         uint32  `json:"gc_cycles"`
	GCCPUFraction float64 `json:"gc_cpu_fraction"`
}

// Profiler records operation durations. It is safe for concurrent use.
type Profiler struct {
	mu             sync.Mutex
	startTime      time.Time
	maxSamples     int
	operationTimes map[string]*TimeTracker
}

// New creates a profiler keeping at most maxSamples durations per
// operation. A non-positive maxSamples means DefaultMaxSamples.
func New(maxSamples int) *Profiler {
	if maxSamples <= 0 {
		maxSamples = DefaultMaxSamples
	}
	return &Profiler{
		startTime:      time.Now(),
		maxSamples:     maxSamples,
		operationTimes: make(map[string]*TimeTracker),
	}
}

// StartOperation starts timing the named operation.
//
// Returns:
//   - A function to call when the operation completes.
//
// @example
// done := p.StartOperation(StageInfer)
// defer done()
func (p *Profiler) StartOperation(name string) func() {
	start := time.Now()
	return func() {
		p.Record(name, time.Since(start))
	}
}

// Record adds one duration for name. Min and max cover every sample ever
// recorded; the average covers the retained window.
func (p *Profiler) Record(name string, duration time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tracker, exists := p.operationTimes[name]
	if !exists {
		tracker = &TimeTracker{
			name:    name,
			minTime: duration,
			maxTime: duration,
		}
		p.operationTimes[name] = tracker
	}

	tracker.durations = append(tracker.durations, duration)
	tracker.totalTime += duration
	if len(tracker.durations) > p.maxSamples {
		tracker.totalTime -= tracker.durations[0]
		tracker.durations = tracker.durations[1:]
	}
	tracker.count++

	if duration < tracker.minTime {
		tracker.minTime = duration
	}
	if duration > tracker.maxTime {
		tracker.maxTime = duration
	}
}

// Operations returns a snapshot of every operation sorted by name.
func (p *Profiler) Operations() []OperationStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]OperationStats, 0, len(p.operationTimes))
	for _, tracker := range p.operationTimes {
		var avg time.Duration
		if n := len(tracker.durations); n > 0 {
			avg = tracker.totalTime / time.Duration(n)
		}
		out = append(out, OperationStats{
			Name:  tracker.name,
			Count: tracker.count,
			Avg:   avg,
			Min:   tracker.minTime,
			Max:   tracker.maxTime,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Uptime is the time since New.
func (p *Profiler) Uptime() time.Duration {
	return time.Since(p.startTime)
}

// ReadMemory samples the Go runtime memory statistics.
func ReadMemory() MemoryStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return MemoryStats{
		Alloc:         m.Alloc,
		TotalAlloc:    m.TotalAlloc,
		Sys:           m.Sys,
		HeapObjects:   m.HeapObjects,
		NumGC:         m.NumGC,
		GCCPUFraction: m.GCCPUFraction,
	}
}

// Report logs one debug line per operation and a memory summary.
func (p *Profiler) Report(logger *zap.SugaredLogger) {
	for _, op := range p.Operations() {
		logger.Debugw("operation timing", "operation", op.Name, "count", op.Count,
			"avg", op.Avg.Truncate(time.Microsecond),
			"min", op.Min.Truncate(time.Microsecond),
			"max", op.Max.Truncate(time.Microsecond))
	}

	mem := ReadMemory()
	logger.Debugw("runtime", "uptime", p.Uptime().Truncate(time.Millisecond),
		"goroutines", runtime.NumGoroutine(), "cgo_calls", runtime.NumCgoCall(),
		"alloc", FormatBytes(mem.Alloc), "sys", FormatBytes(mem.Sys), "gc_cycles", mem.NumGC)
}

// FormatBytes formats byte counts in human-readable format.
func FormatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
