package metrics

import (
	"net"
	"net/http"
	"strconv"
	"sync"

	"github.com/felixge/httpsnoop"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const bytesPerGB = 1024 * 1024 * 1024

// HTTPMetrics counts every response by status class and tracks visitors and
// response traffic. Process and Go runtime gauges are registered alongside.
type HTTPMetrics struct {
	registry *prometheus.Registry

	requests       prometheus.Counter
	successful     prometheus.Counter
	clientErrors   prometheus.Counter
	serverErrors   prometheus.Counter
	notFound       prometheus.Counter
	duration       *prometheus.HistogramVec
	uniqueVisitors prometheus.Gauge
	trafficGB      prometheus.Counter

	mu       sync.Mutex
	visitors map[string]struct{}
}

func NewHTTPMetrics() *HTTPMetrics {
	m := &HTTPMetrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "total_http_requests",
			Help: "Total number of HTTP requests",
		}),
		successful: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "successful_http_requests",
			Help: "Total number of successful HTTP requests",
		}),
		clientErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "client_error_http_requests",
			Help: "Total number of client error HTTP requests",
		}),
		serverErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "server_error_http_requests",
			Help: "Total number of server error HTTP requests",
		}),
		notFound: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "not_found_http_requests",
			Help: "Total number of HTTP 404 requests",
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 1.5},
		}, []string{"method", "status_code"}),
		uniqueVisitors: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "unique_visitors",
			Help: "Number of unique visitors",
		}),
		trafficGB: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "traffic_in_gb",
			Help: "Total traffic in GB",
		}),
		visitors: make(map[string]struct{}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.successful,
		m.clientErrors,
		m.serverErrors,
		m.notFound,
		m.duration,
		m.uniqueVisitors,
		m.trafficGB,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *HTTPMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPMetrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.requests.Inc()
		m.visit(r)

		captured := httpsnoop.CaptureMetrics(next, w, r)

		m.observe(captured.Code)
		m.duration.WithLabelValues(r.Method, strconv.Itoa(captured.Code)).Observe(captured.Duration.Seconds())
		m.trafficGB.Add(float64(captured.Written) / bytesPerGB)
	})
}

func (m *HTTPMetrics) observe(code int) {
	switch {
	case code >= 200 && code < 400:
		m.successful.Inc()
	case code >= 400 && code < 500:
		m.clientErrors.Inc()
		if code == http.StatusNotFound {
			m.notFound.Inc()
		}
	case code >= 500:
		m.serverErrors.Inc()
	}
}

// visit keys a visitor by client address and user agent.
func (m *HTTPMetrics) visit(r *http.Request) {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	key := host + "-" + r.UserAgent()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.visitors[key] = struct{}{}
	m.uniqueVisitors.Set(float64(len(m.visitors)))
}
