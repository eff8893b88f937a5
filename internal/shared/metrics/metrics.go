package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce sync.Once

	analysisStartedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "resumecritic",
		Subsystem: "analysis",
		Name:      "started_total",
		Help:      "Total analyses started.",
	})

	analysisCompletedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "resumecritic",
		Subsystem: "analysis",
		Name:      "completed_total",
		Help:      "Total analyses completed.",
	})

	analysisFailedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "resumecritic",
		Subsystem: "analysis",
		Name:      "failed_total",
		Help:      "Total analyses failed.",
	})

	analysisDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "resumecritic",
		Subsystem: "analysis",
		Name:      "duration_ms",
		Help:      "Analysis duration in milliseconds.",
		Buckets:   []float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000},
	})

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "resumecritic",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency distribution.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	requestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "resumecritic",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
)

func register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			analysisStartedTotal,
			analysisCompletedTotal,
			analysisFailedTotal,
			analysisDuration,
			requestDuration,
			requestTotal,
		)
	})
}

// IncAnalysisStarted increments the started counter.
func IncAnalysisStarted() {
	register()
	analysisStartedTotal.Inc()
}

// IncAnalysisCompleted increments the completed counter.
func IncAnalysisCompleted() {
	register()
	analysisCompletedTotal.Inc()
}

// IncAnalysisFailed increments the failed counter.
func IncAnalysisFailed() {
	register()
	analysisFailedTotal.Inc()
}

// ObserveAnalysisDurationMs records an analysis duration in milliseconds.
func ObserveAnalysisDurationMs(value float64) {
	register()
	if value < 0 {
		value = 0
	}
	analysisDuration.Observe(value)
}

// GinMiddleware records per-request metrics.
func GinMiddleware() gin.HandlerFunc {
	register()
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		requestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
		requestTotal.WithLabelValues(c.Request.Method, path, status).Inc()
	}
}

// Handler exposes the Prometheus metrics endpoint.
func Handler() gin.HandlerFunc {
	register()
	return gin.WrapH(promhttp.Handler())
}
