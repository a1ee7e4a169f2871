// Package metrics provides Prometheus metrics for the exercise tracker.
package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// frameBuckets covers sub-millisecond to one frame at 30 fps.
var frameBuckets = []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.02, 0.033}

// Manager owns the tracker's Prometheus metrics. A nil or disabled
// Manager accepts every call and records nothing.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	constLabels      map[string]string
	registry         *prometheus.Registry

	pinchEvents      *prometheus.CounterVec
	postureChanges   *prometheus.CounterVec
	repsCompleted    *prometheus.CounterVec
	sessionsStarted  prometheus.Counter
	sessionsFinished prometheus.Counter
	saveErrors       prometheus.Counter
	frameDuration    prometheus.Histogram
	handsTracked     prometheus.Gauge

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) (*Manager, error) {
	m := &Manager{
		namespace:        "mudra",
		subsystem:        "",
		histogramBuckets: frameBuckets,
		enabled:          true,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}
	if !m.enabled {
		return m, nil
	}
	if err := m.initializeMetrics(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) initializeMetrics() (err error) {
	// promauto panics on duplicate registration.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrRegister, r)
		}
	}()

	auto := promauto.With(m.registry)

	m.pinchEvents = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "pinch_events_total",
		Help:        "Pinch events emitted by the engine, by kind and hand",
		ConstLabels: m.constLabels,
	}, []string{"kind", "hand"})

	m.postureChanges = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "posture_changes_total",
		Help:        "Posture label changes, by hand and new label",
		ConstLabels: m.constLabels,
	}, []string{"hand", "label"})

	m.repsCompleted = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "reps_completed_total",
		Help:        "Completed repetitions, by task kind",
		ConstLabels: m.constLabels,
	}, []string{"kind"})

	m.sessionsStarted = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "sessions_started_total",
		Help:        "Sessions started",
		ConstLabels: m.constLabels,
	})

	m.sessionsFinished = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "sessions_completed_total",
		Help:        "Sessions completed and saved",
		ConstLabels: m.constLabels,
	})

	m.saveErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "session_save_errors_total",
		Help:        "Failed attempts to persist a session record",
		ConstLabels: m.constLabels,
	})

	m.frameDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "frame_processing_seconds",
		Help:        "Time spent processing one tracking frame",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	})

	m.handsTracked = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "hands_tracked",
		Help:        "Hands tracked in the most recent frame",
		ConstLabels: m.constLabels,
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_requests_total",
		Help:        "HTTP requests by endpoint, method and status code",
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_seconds",
		Help:        "HTTP request duration in seconds",
		Buckets:     prometheus.DefBuckets,
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.registry.MustRegister(collectors.NewGoCollector())
	return nil
}

func (m *Manager) active() bool { return m != nil && m.enabled }

// Registry returns the registry the metrics are registered on.
func (m *Manager) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	if !m.active() {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordPinchEvent counts one engine event.
func (m *Manager) RecordPinchEvent(kind, hand string) {
	if !m.active() {
		return
	}
	m.pinchEvents.WithLabelValues(kind, hand).Inc()
}

// RecordPostureChange counts one posture label change.
func (m *Manager) RecordPostureChange(hand, label string) {
	if !m.active() {
		return
	}
	m.postureChanges.WithLabelValues(hand, label).Inc()
}

// RecordRepCompleted counts one completed repetition.
func (m *Manager) RecordRepCompleted(kind string) {
	if !m.active() {
		return
	}
	m.repsCompleted.WithLabelValues(kind).Inc()
}

// RecordSessionStarted counts a session start.
func (m *Manager) RecordSessionStarted() {
	if !m.active() {
		return
	}
	m.sessionsStarted.Inc()
}

// RecordSessionCompleted counts a saved session.
func (m *Manager) RecordSessionCompleted() {
	if !m.active() {
		return
	}
	m.sessionsFinished.Inc()
}

// RecordSaveError counts a failed save.
func (m *Manager) RecordSaveError() {
	if !m.active() {
		return
	}
	m.saveErrors.Inc()
}

// ObserveFrame records how long one frame took and how many hands it tracked.
func (m *Manager) ObserveFrame(d time.Duration, tracked int) {
	if !m.active() {
		return
	}
	m.frameDuration.Observe(d.Seconds())
	m.handsTracked.Set(float64(tracked))
}

// RecordHTTPRequest records one served request.
func (m *Manager) RecordHTTPRequest(endpoint, method string, status int, d time.Duration) {
	if !m.active() {
		return
	}
	code := strconv.Itoa(status)
	m.httpRequests.WithLabelValues(endpoint, method, code).Inc()
	m.httpRequestDuration.WithLabelValues(endpoint, method, code).Observe(d.Seconds())
}
