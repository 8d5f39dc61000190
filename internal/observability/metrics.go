package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters for the HTTP edge and the
// escalation engine.
type Metrics struct {
	mu            sync.Mutex
	requestCount  map[string]int64
	errorCount    map[string]int64
	ticksRun      int64
	stepsAdvanced int64
	corruptSkips  int64
	paymentsTaken int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount: make(map[string]int64),
		errorCount:   make(map[string]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
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

// RecordTick counts a tick evaluation and whether it advanced a step.
func (m *Metrics) RecordTick(advanced bool) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ticksRun++
	if advanced {
		m.stepsAdvanced++
	}
}

// RecordCorruptSkip counts a sequence skipped during a batch run.
func (m *Metrics) RecordCorruptSkip() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.corruptSkips++
}

// RecordPayment counts an applied payment.
func (m *Metrics) RecordPayment() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paymentsTaken++
}

// Snapshot returns engine counter values for the stats endpoint.
func (m *Metrics) Snapshot() map[string]int64 {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return map[string]int64{
		"ticks_run":      m.ticksRun,
		"steps_advanced": m.stepsAdvanced,
		"corrupt_skips":  m.corruptSkips,
		"payments":       m.paymentsTaken,
	}
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
