package service

import (
	"fmt"
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/backoffice-authz/internal/models"
)

// Delivery outcomes recorded by the delivery loop.
const (
	DeliveryApplied   = "applied"
	DeliveryFailed    = "failed"
	DeliveryUnhandled = "unhandled"
	DeliverySkipped   = "skipped"
)

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for API consumption.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	submitted       *prometheus.CounterVec
	resolved        *prometheus.CounterVec
	deliveries      *prometheus.CounterVec
	directMutations *prometheus.CounterVec
	gateFailures    prometheus.Counter
	activeLoops     prometheus.Gauge

	requestCount         uint64
	requestDurationTotal uint64
	submittedCount       uint64
	approvedCount        uint64
	deniedCount          uint64
	processedCount       uint64
	deliveryFailures     uint64
	gateFailureCount     uint64
	bypassCount          uint64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	submitted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "authz_requests_submitted_total",
		Help: "Authorization requests created",
	}, []string{"action_key"})

	resolved := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "authz_requests_resolved_total",
		Help: "Authorization requests moved out of PENDING or APPROVED",
	}, []string{"status"})

	deliveries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "authz_deliveries_total",
		Help: "Approved requests handled by delivery loops, by outcome",
	}, []string{"action_key", "outcome"})

	directMutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "authz_direct_mutations_total",
		Help: "Mutations applied without an authorization request",
	}, []string{"action_key", "bypassed"})

	gateFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "authz_gate_failures_total",
		Help: "Rejected approver authentications",
	})

	activeLoops := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "authz_delivery_loops_active",
		Help: "Delivery loops currently attached",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, submitted, resolved, deliveries, directMutations, gateFailures, activeLoops, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		submitted:       submitted,
		resolved:        resolved,
		deliveries:      deliveries,
		directMutations: directMutations,
		gateFailures:    gateFailures,
		activeLoops:     activeLoops,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RequestSubmitted counts a new PENDING request.
func (m *MetricsService) RequestSubmitted(actionKey string) {
	if m == nil {
		return
	}
	m.submitted.WithLabelValues(actionKey).Inc()
	atomic.AddUint64(&m.submittedCount, 1)
}

// RequestTransitioned counts a status change.
func (m *MetricsService) RequestTransitioned(status models.AuthorizationStatus) {
	if m == nil {
		return
	}
	m.resolved.WithLabelValues(string(status)).Inc()
	switch status {
	case models.AuthorizationApproved:
		atomic.AddUint64(&m.approvedCount, 1)
	case models.AuthorizationDenied:
		atomic.AddUint64(&m.deniedCount, 1)
	case models.AuthorizationProcessed:
		atomic.AddUint64(&m.processedCount, 1)
	}
}

// DeliveryObserved counts one delivery attempt outcome.
func (m *MetricsService) DeliveryObserved(actionKey, outcome string) {
	if m == nil {
		return
	}
	m.deliveries.WithLabelValues(actionKey, outcome).Inc()
	if outcome == DeliveryFailed {
		atomic.AddUint64(&m.deliveryFailures, 1)
	}
}

// DirectMutation counts a mutation applied without dual control.
func (m *MetricsService) DirectMutation(actionKey string, bypassed bool) {
	if m == nil {
		return
	}
	m.directMutations.WithLabelValues(actionKey, strconv.FormatBool(bypassed)).Inc()
	if bypassed {
		atomic.AddUint64(&m.bypassCount, 1)
	}
}

// GateFailure counts a rejected approver authentication.
func (m *MetricsService) GateFailure() {
	if m == nil {
		return
	}
	m.gateFailures.Inc()
	atomic.AddUint64(&m.gateFailureCount, 1)
}

// LoopAttached adjusts the active delivery loop gauge by delta.
func (m *MetricsService) LoopAttached(delta int) {
	if m == nil {
		return
	}
	m.activeLoops.Add(float64(delta))
}

// Snapshot returns aggregated workflow counters for the summary endpoint.
func (m *MetricsService) Snapshot() models.WorkflowMetrics {
	if m == nil {
		return models.WorkflowMetrics{}
	}
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	return models.WorkflowMetrics{
		Submitted:                atomic.LoadUint64(&m.submittedCount),
		Approved:                 atomic.LoadUint64(&m.approvedCount),
		Denied:                   atomic.LoadUint64(&m.deniedCount),
		Processed:                atomic.LoadUint64(&m.processedCount),
		DeliveryFailures:         atomic.LoadUint64(&m.deliveryFailures),
		GateFailures:             atomic.LoadUint64(&m.gateFailureCount),
		Bypasses:                 atomic.LoadUint64(&m.bypassCount),
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
