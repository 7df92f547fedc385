package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"jp2kd/internal/decoder"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jp2kd",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"path", "method", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "jp2kd",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"path", "method", "status"},
	)

	httpInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "jp2kd",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "In-flight HTTP requests",
		},
	)

	decoderOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jp2kd",
			Subsystem: "decoder",
			Name:      "operations_total",
			Help:      "Decoder operations by kind and outcome",
		},
		[]string{"op", "outcome"},
	)

	decoderOpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "jp2kd",
			Subsystem: "decoder",
			Name:      "operation_duration_seconds",
			Help:      "Engine time per decoder operation",
			Buckets:   []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"op"},
	)

	decoderLifecycleTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jp2kd",
			Subsystem: "decoder",
			Name:      "lifecycle_events_total",
			Help:      "Decoder init and release events",
		},
		[]string{"event"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal, httpRequestDuration, httpInflight,
		decoderOpsTotal, decoderOpDuration, decoderLifecycleTotal)
}

// statusRecorder wraps http.ResponseWriter to capture status code
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// MetricsMiddleware instruments requests for Prometheus. Mount it with
// Router.Use so the chi route pattern is known once the request is served.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpInflight.Inc()
		defer httpInflight.Dec()

		sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(sr, r)
		path := routePatternOrPath(r)
		statusLabel := strconv.Itoa(sr.status)
		httpRequestsTotal.WithLabelValues(path, r.Method, statusLabel).Inc()
		httpRequestDuration.WithLabelValues(path, r.Method, statusLabel).Observe(time.Since(start).Seconds())
	})
}

// routePatternOrPath returns the chi route pattern if available, otherwise
// falls back to URL path. This avoids high-cardinality label values.
func routePatternOrPath(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

// MetricsPublisher turns coordinator events into Prometheus series.
type MetricsPublisher struct{}

// Publish implements decoder.EventPublisher.
func (MetricsPublisher) Publish(e decoder.Event) {
	switch e.Name {
	case decoder.EventOpDone:
		observeOp(e, "ok")
	case decoder.EventOpFailed:
		observeOp(e, "failed")
	case decoder.EventOpCancelled:
		observeOp(e, "cancelled")
	case decoder.EventOpRejected:
		decoderOpsTotal.WithLabelValues(string(e.Op), "rejected").Inc()
	case decoder.EventInitReady, decoder.EventInitFailed, decoder.EventReleaseDone:
		decoderLifecycleTotal.WithLabelValues(e.Name).Inc()
	}
}

func observeOp(e decoder.Event, outcome string) {
	decoderOpsTotal.WithLabelValues(string(e.Op), outcome).Inc()
	if ms, ok := e.Fields["dur_ms"].(int64); ok && outcome != "cancelled" {
		decoderOpDuration.WithLabelValues(string(e.Op)).Observe(float64(ms) / 1000)
	}
}
