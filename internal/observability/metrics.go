package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline stages timed per cycle
const (
	StageTranscription = "transcription"
	StageCompletion    = "completion"
	StageSynthesis     = "synthesis"
)

var (
	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voice_assistant_active_sessions",
		Help: "Number of open browser sessions",
	})

	cyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_assistant_cycles_total",
		Help: "Capture-to-playback cycles by outcome",
	}, []string{"outcome"})

	cycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "voice_assistant_cycle_duration_seconds",
		Help:    "Duration of a full cycle in seconds",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
	})

	stageRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_assistant_stage_requests_total",
		Help: "Backend requests per pipeline stage",
	}, []string{"stage", "status"})

	stageLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "voice_assistant_stage_latency_seconds",
		Help:    "Backend latency per pipeline stage in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0},
	}, []string{"stage"})

	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_assistant_response_cache_lookups_total",
		Help: "Response cache lookups by result",
	}, []string{"result"}) // result: "hit" or "miss"

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_assistant_errors_total",
		Help: "Total number of errors",
	}, []string{"type", "component"})

	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "voice_assistant_circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{"service"})

	audioBytesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_assistant_audio_bytes_total",
		Help: "Total audio bytes processed",
	}, []string{"direction"}) // direction: "in" or "out"
)

// CycleMetrics tracks metrics for a single cycle
type CycleMetrics struct {
	cycleID   string
	startTime time.Time
	stages    map[string]time.Time
	mu        sync.Mutex
}

// NewCycleMetrics creates a new metrics tracker for a cycle
func NewCycleMetrics(cycleID string) *CycleMetrics {
	return &CycleMetrics{
		cycleID:   cycleID,
		startTime: time.Now(),
		stages:    make(map[string]time.Time),
	}
}

// RecordStageStart marks the start of a backend call
func (m *CycleMetrics) RecordStageStart(stage string) {
	m.mu.Lock()
	m.stages[stage] = time.Now()
	m.mu.Unlock()
}

// RecordStageEnd records latency and status of a backend call
func (m *CycleMetrics) RecordStageEnd(stage string, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if start, ok := m.stages[stage]; ok {
		stageLatency.WithLabelValues(stage).Observe(time.Since(start).Seconds())
		delete(m.stages, stage)
	}

	status := "success"
	if !success {
		status = "error"
	}
	stageRequests.WithLabelValues(stage, status).Inc()
}

// RecordCycleEnd records the cycle outcome and total duration
func (m *CycleMetrics) RecordCycleEnd(outcome string) {
	cyclesTotal.WithLabelValues(outcome).Inc()
	cycleDuration.Observe(time.Since(m.startTime).Seconds())
}

// RecordError records an error
func (m *CycleMetrics) RecordError(errorType, component string) {
	errorsTotal.WithLabelValues(errorType, component).Inc()
}

// RecordAudioBytes records audio bytes processed
func (m *CycleMetrics) RecordAudioBytes(direction string, bytes int64) {
	audioBytesProcessed.WithLabelValues(direction).Add(float64(bytes))
}

// RecordCacheLookup counts a response cache hit or miss
func RecordCacheLookup(hit bool) {
	if hit {
		cacheLookups.WithLabelValues("hit").Inc()
		return
	}
	cacheLookups.WithLabelValues("miss").Inc()
}

// SessionOpened and SessionClosed track the active session gauge
func SessionOpened() { activeSessions.Inc() }
func SessionClosed() { activeSessions.Dec() }

// UpdateCircuitBreakerState updates circuit breaker state metric
func UpdateCircuitBreakerState(service string, state int) {
	circuitBreakerState.WithLabelValues(service).Set(float64(state))
}
