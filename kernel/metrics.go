package kernel

import (
	"sync/atomic"
	"time"
)

// RunLatencyBuckets defines the run-length histogram buckets in nanoseconds:
// how long a task actually occupied the CPU between being promoted to
// RUNNING and being preempted or yielding. Bucket math and percentile
// interpolation are carried over from the teacher's I/O-latency histogram
// (metrics.go) — the statistics are domain-agnostic, only the thing being
// measured changes.
var RunLatencyBuckets = []uint64{
	1_000,          // 1us
	10_000,         // 10us
	100_000,        // 100us
	1_000_000,      // 1ms
	10_000_000,     // 10ms
	100_000_000,    // 100ms
	1_000_000_000,  // 1s
	10_000_000_000, // 10s
}

const numRunLatencyBuckets = 8

// Metrics tracks scheduling statistics for a running kernel instance.
type Metrics struct {
	// Scheduling counters.
	TicksObserved   atomic.Uint64 // Total scheduler ticks processed
	ContextSwitches atomic.Uint64 // Quantum expiries that advanced the ring (possibly back to the same task)
	TasksCreated    atomic.Uint64 // Successful CreateTask calls
	PoolExhaustions atomic.Uint64 // CreateTask calls that found no DEAD slot

	// Run-length tracking (time a task spends RUNNING per turn).
	TotalRunNs atomic.Uint64 // Cumulative run length in nanoseconds
	RunCount   atomic.Uint64 // Number of completed runs (for average)

	// Run-length histogram buckets (cumulative counts).
	RunLatencyBuckets [numRunLatencyBuckets]atomic.Uint64

	// Kernel lifecycle.
	StartTime atomic.Int64 // Kernel start timestamp (UnixNano)
	StopTime  atomic.Int64 // Kernel stop timestamp (UnixNano), 0 if running
}

// NewMetrics creates a new metrics instance with StartTime set to now.
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.StartTime.Store(time.Now().UnixNano())
	return m
}

// RecordTick records a single scheduler tick.
func (m *Metrics) RecordTick() {
	m.TicksObserved.Add(1)
}

// RecordContextSwitch records the ring advancing on a quantum expiry.
func (m *Metrics) RecordContextSwitch() {
	m.ContextSwitches.Add(1)
}

// RecordTaskCreated records a successful CreateTask call.
func (m *Metrics) RecordTaskCreated() {
	m.TasksCreated.Add(1)
}

// RecordPoolExhaustion records a CreateTask call that found no free slot.
func (m *Metrics) RecordPoolExhaustion() {
	m.PoolExhaustions.Add(1)
}

// RecordRunLength records how long a task occupied the CPU for one turn.
func (m *Metrics) RecordRunLength(ns uint64) {
	m.TotalRunNs.Add(ns)
	m.RunCount.Add(1)
	for i, bucket := range RunLatencyBuckets {
		if ns <= bucket {
			m.RunLatencyBuckets[i].Add(1)
		}
	}
}

// Stop marks the kernel as stopped for uptime accounting.
func (m *Metrics) Stop() {
	m.StopTime.Store(time.Now().UnixNano())
}

// MetricsSnapshot is a point-in-time copy of Metrics, safe to read without
// further synchronization.
type MetricsSnapshot struct {
	TicksObserved   uint64
	ContextSwitches uint64
	TasksCreated    uint64
	PoolExhaustions uint64

	AvgRunNs uint64
	UptimeNs uint64

	RunLatencyP50Ns  uint64
	RunLatencyP99Ns  uint64
	RunLatencyP999Ns uint64

	RunLatencyHistogram [numRunLatencyBuckets]uint64
}

// Snapshot returns a point-in-time snapshot of the metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		TicksObserved:   m.TicksObserved.Load(),
		ContextSwitches: m.ContextSwitches.Load(),
		TasksCreated:    m.TasksCreated.Load(),
		PoolExhaustions: m.PoolExhaustions.Load(),
	}

	totalRunNs := m.TotalRunNs.Load()
	runCount := m.RunCount.Load()
	if runCount > 0 {
		snap.AvgRunNs = totalRunNs / runCount
	}

	startTime := m.StartTime.Load()
	stopTime := m.StopTime.Load()
	if stopTime > 0 {
		snap.UptimeNs = uint64(stopTime - startTime)
	} else {
		snap.UptimeNs = uint64(time.Now().UnixNano() - startTime)
	}

	for i := 0; i < numRunLatencyBuckets; i++ {
		snap.RunLatencyHistogram[i] = m.RunLatencyBuckets[i].Load()
	}

	if runCount > 0 {
		snap.RunLatencyP50Ns = m.calculatePercentile(0.50)
		snap.RunLatencyP99Ns = m.calculatePercentile(0.99)
		snap.RunLatencyP999Ns = m.calculatePercentile(0.999)
	}

	return snap
}

// calculatePercentile estimates the run length at the given percentile
// (0.0-1.0) using linear interpolation between histogram buckets.
func (m *Metrics) calculatePercentile(percentile float64) uint64 {
	totalRuns := m.RunCount.Load()
	if totalRuns == 0 {
		return 0
	}

	targetCount := uint64(float64(totalRuns) * percentile)

	prevBucket := uint64(0)
	for i, bucket := range RunLatencyBuckets {
		bucketCount := m.RunLatencyBuckets[i].Load()
		if bucketCount >= targetCount {
			prevCount := uint64(0)
			if i > 0 {
				prevCount = m.RunLatencyBuckets[i-1].Load()
			}
			if bucketCount == prevCount {
				return bucket
			}
			fraction := float64(targetCount-prevCount) / float64(bucketCount-prevCount)
			return prevBucket + uint64(fraction*float64(bucket-prevBucket))
		}
		prevBucket = bucket
	}

	return RunLatencyBuckets[numRunLatencyBuckets-1]
}

// Reset resets all metrics counters. Useful for testing.
func (m *Metrics) Reset() {
	m.TicksObserved.Store(0)
	m.ContextSwitches.Store(0)
	m.TasksCreated.Store(0)
	m.PoolExhaustions.Store(0)
	m.TotalRunNs.Store(0)
	m.RunCount.Store(0)
	for i := 0; i < numRunLatencyBuckets; i++ {
		m.RunLatencyBuckets[i].Store(0)
	}
	m.StartTime.Store(time.Now().UnixNano())
	m.StopTime.Store(0)
}

// Observer allows pluggable collection of scheduling events, mirroring the
// teacher's Observer interface for I/O events.
type Observer interface {
	ObserveTick()
	ObserveContextSwitch()
	ObserveTaskCreated()
	ObservePoolExhaustion()
	ObserveRunLength(ns uint64)
}

// NoOpObserver is a no-op implementation of Observer.
type NoOpObserver struct{}

func (NoOpObserver) ObserveTick()              {}
func (NoOpObserver) ObserveContextSwitch()     {}
func (NoOpObserver) ObserveTaskCreated()       {}
func (NoOpObserver) ObservePoolExhaustion()    {}
func (NoOpObserver) ObserveRunLength(_ uint64) {}

// MetricsObserver implements Observer by forwarding to a Metrics instance.
type MetricsObserver struct {
	metrics *Metrics
}

// NewMetricsObserver creates an observer that records into the given metrics.
func NewMetricsObserver(m *Metrics) *MetricsObserver {
	return &MetricsObserver{metrics: m}
}

func (o *MetricsObserver) ObserveTick()           { o.metrics.RecordTick() }
func (o *MetricsObserver) ObserveContextSwitch()  { o.metrics.RecordContextSwitch() }
func (o *MetricsObserver) ObserveTaskCreated()    { o.metrics.RecordTaskCreated() }
func (o *MetricsObserver) ObservePoolExhaustion() { o.metrics.RecordPoolExhaustion() }
func (o *MetricsObserver) ObserveRunLength(ns uint64) {
	o.metrics.RecordRunLength(ns)
}

var _ Observer = (*MetricsObserver)(nil)
var _ Observer = (*NoOpObserver)(nil)
