package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics mengumpulkan metrik Prometheus untuk aplikasi.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	pagesFetched    prometheus.Counter
	loadsTotal      *prometheus.CounterVec
	downloadsTotal  *prometheus.CounterVec
	loginsTotal     *prometheus.CounterVec
}

// NewMetrics menginisialisasi registry, metrik HTTP, dan metrik dashboard audit.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "inspeksi_http_requests_total",
		Help: "Jumlah permintaan HTTP berdasarkan route dan status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "inspeksi_http_request_duration_seconds",
		Help:    "Durasi permintaan HTTP per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	pages := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "inspeksi_audit_pages_fetched_total",
		Help: "Jumlah halaman /audits/all yang berhasil diambil.",
	})
	loads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "inspeksi_audit_loads_total",
		Help: "Jumlah agregasi daftar audit berdasarkan hasil.",
	}, []string{"outcome"})
	downloads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "inspeksi_document_downloads_total",
		Help: "Jumlah unduhan dokumen berdasarkan route dan hasil.",
	}, []string{"route", "outcome"})
	logins := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "inspeksi_logins_total",
		Help: "Jumlah percobaan login berdasarkan hasil.",
	}, []string{"outcome"})
	registry.MustRegister(requests, duration, pages, loads, downloads, logins)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		pagesFetched:    pages,
		loadsTotal:      loads,
		downloadsTotal:  downloads,
		loginsTotal:     logins,
	}
}

// Handler mengembalikan http.Handler untuk endpoint /metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware mencatat metrik untuk setiap permintaan HTTP.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// PageFetched dipanggil engine setiap satu halaman server diterima.
func (m *Metrics) PageFetched() {
	if m == nil {
		return
	}
	m.pagesFetched.Inc()
}

// LoadCompleted mencatat hasil satu agregasi penuh.
func (m *Metrics) LoadCompleted(outcome string) {
	if m == nil {
		return
	}
	m.loadsTotal.WithLabelValues(outcome).Inc()
}

// DownloadCompleted mencatat hasil unduhan untuk route tertentu.
func (m *Metrics) DownloadCompleted(route, outcome string) {
	if m == nil {
		return
	}
	m.downloadsTotal.WithLabelValues(route, outcome).Inc()
}

// LoginAttempted mencatat hasil login.
func (m *Metrics) LoginAttempted(outcome string) {
	if m == nil {
		return
	}
	m.loginsTotal.WithLabelValues(outcome).Inc()
}

// Registerer mengekspos registry untuk pendaftaran metrik khusus.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
