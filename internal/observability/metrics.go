package observability

import (
	"strconv"
	"sync"
	"time"
)

// TransitionOutcome labels the result of a transition request.
type TransitionOutcome string

const (
	TransitionApplied  TransitionOutcome = "applied"
	TransitionRejected TransitionOutcome = "rejected"
	TransitionFailed   TransitionOutcome = "failed"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu              sync.Mutex
	requestCount    map[string]int64
	errorCount      map[string]int64
	transitionCount map[TransitionOutcome]int64
	latency         map[string]*latencyStats
	fallbackWrites  int64
}

type latencyStats struct {
	count int64
	total time.Duration
	max   time.Duration
}

// LatencySnapshot summarizes request durations for one route and method.
type LatencySnapshot struct {
	Count int64   `json:"count"`
	AvgMS float64 `json:"avg_ms"`
	MaxMS float64 `json:"max_ms"`
}

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot struct {
	Requests       map[string]int64            `json:"requests"`
	Errors         map[string]int64            `json:"errors"`
	Transitions    map[TransitionOutcome]int64 `json:"transitions"`
	Latency        map[string]LatencySnapshot  `json:"latency"`
	FallbackWrites int64                       `json:"fallback_writes"`
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount:    make(map[string]int64),
		errorCount:      make(map[string]int64),
		transitionCount: make(map[TransitionOutcome]int64),
		latency:         make(map[string]*latencyStats),
	}
}

// RecordRequest counts a request by route, method and status and tracks its
// latency by route and method.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++

	stats, ok := m.latency[path+"|"+method]
	if !ok {
		stats = &latencyStats{}
		m.latency[path+"|"+method] = stats
	}
	stats.count++
	stats.total += duration
	if duration > stats.max {
		stats.max = duration
	}
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordTransition counts a transition request by outcome.
func (m *Metrics) RecordTransition(outcome TransitionOutcome) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitionCount[outcome]++
}

// RecordFallbackWrite counts notifications diverted to the fallback log.
func (m *Metrics) RecordFallbackWrite() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallbackWrites++
}

// Snapshot copies the current counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		Requests:    map[string]int64{},
		Errors:      map[string]int64{},
		Transitions: map[TransitionOutcome]int64{},
		Latency:     map[string]LatencySnapshot{},
	}
	if m == nil {
		return snap
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range m.requestCount {
		snap.Requests[k] = v
	}
	for k, v := range m.errorCount {
		snap.Errors[k] = v
	}
	for k, v := range m.transitionCount {
		snap.Transitions[k] = v
	}
	for k, v := range m.latency {
		snap.Latency[k] = LatencySnapshot{
			Count: v.count,
			AvgMS: milliseconds(v.total) / float64(v.count),
			MaxMS: milliseconds(v.max),
		}
	}
	snap.FallbackWrites = m.fallbackWrites
	return snap
}

func milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
