package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapwatch_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "snapwatch_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	CaptureJobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapwatch_capture_jobs_total",
		Help: "Total capture jobs by terminal status",
	}, []string{"status"})

	CaptureDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "snapwatch_capture_duration_seconds",
		Help:    "Full-page capture duration across all viewports",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
	})

	ViewportCaptures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapwatch_viewport_captures_total",
		Help: "Per-viewport capture outcomes",
	}, []string{"viewport", "status"})

	BrowsersAvailable = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "snapwatch_browsers_available",
		Help: "Browsers currently idle in the pool",
	})

	BrowsersInUse = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "snapwatch_browsers_in_use",
		Help: "Browsers currently held by captures",
	})

	PoolWaiters = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "snapwatch_pool_waiters",
		Help: "Callers blocked waiting for a browser",
	})

	BrowserRespawnsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snapwatch_browser_respawns_total",
		Help: "Browsers relaunched after a crash",
	})

	ScreenshotsDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snapwatch_screenshots_deleted_total",
		Help: "Screenshots removed by retention sweeps",
	})

	GenerationRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapwatch_generation_requests_total",
		Help: "Script generation requests by kind and status",
	}, []string{"kind", "status"})

	GenerationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "snapwatch_generation_duration_seconds",
		Help:    "Script generation request duration",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
	})
)
