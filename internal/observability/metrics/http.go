package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type ServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	scanTotal      *prometheus.CounterVec
	scanDuration   *prometheus.HistogramVec
	degradeReasons *prometheus.CounterVec
	pollAttempts   *prometheus.HistogramVec
}

func NewServerMetrics(service string) *ServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dermascan",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dermascan",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "dermascan",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	scanTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dermascan",
			Subsystem: "scan",
			Name:      "requests_total",
			Help:      "Total resolved scans by outcome.",
		},
		[]string{"service", "outcome"},
	)
	scanDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dermascan",
			Subsystem: "scan",
			Name:      "duration_seconds",
			Help:      "Scan pipeline duration in seconds by outcome.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 15, 20, 25, 30},
		},
		[]string{"service", "outcome"},
	)
	degradeReasons := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dermascan",
			Subsystem: "scan",
			Name:      "degraded_total",
			Help:      "Total degraded scans by reason.",
		},
		[]string{"service", "reason"},
	)
	pollAttempts := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dermascan",
			Subsystem: "scan",
			Name:      "poll_attempts",
			Help:      "Distribution of vendor status polls per scan.",
			Buckets:   []float64{1, 2, 3, 4, 5, 6, 8, 10, 13},
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		scanTotal,
		scanDuration,
		degradeReasons,
		pollAttempts,
	)

	return &ServerMetrics{
		registry:        registry,
		requestTotal:    requestTotal,
		requestDuration: requestDuration,
		requestInFlight: requestInFlight,
		scanTotal:       scanTotal,
		scanDuration:    scanDuration,
		degradeReasons:  degradeReasons,
		pollAttempts:    pollAttempts,
	}
}

func (m *ServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *ServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := NewStatusRecorder(w)

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.Status()),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// RecordScan tracks one resolved scan. Rejected requests carry no reason or
// poll counts.
func (m *ServerMetrics) RecordScan(service, outcome, reason string, pollAttempts int, duration time.Duration) {
	m.scanTotal.WithLabelValues(service, outcome).Inc()
	m.scanDuration.WithLabelValues(service, outcome).Observe(duration.Seconds())

	if reason != "" {
		m.degradeReasons.WithLabelValues(service, reason).Inc()
	}
	if pollAttempts > 0 {
		m.pollAttempts.WithLabelValues(service).Observe(float64(pollAttempts))
	}
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/scans/"):
		return "/v1/scans/{scan_id}"
	default:
		return path
	}
}

// StatusRecorder captures the response status and body size while forwarding
// the optional ResponseWriter interfaces. Shared by the metrics middleware
// and the HTTP adapter's access log.
type StatusRecorder struct {
	http.ResponseWriter
	status       int
	bytesWritten int
}

func NewStatusRecorder(w http.ResponseWriter) *StatusRecorder {
	return &StatusRecorder{ResponseWriter: w, status: http.StatusOK}
}

func (w *StatusRecorder) Status() int {
	return w.status
}

func (w *StatusRecorder) BytesWritten() int {
	return w.bytesWritten
}

func (w *StatusRecorder) WriteHeader(statusCode int) {
	w.status = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *StatusRecorder) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.bytesWritten += n
	return n, err
}

func (w *StatusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *StatusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *StatusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
