// Package metrics holds the Prometheus instruments for uploads and resolves.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the upload and resolve pipelines.
type Metrics struct {
	UploadsTotal   *prometheus.CounterVec
	UploadDuration prometheus.Histogram
	UploadBytes    prometheus.Counter

	ResolvesTotal   *prometheus.CounterVec
	ResolveDuration *prometheus.HistogramVec
	CacheHits       prometheus.Counter
}

var (
	metricsOnce     sync.Once
	metricsInstance *Metrics
)

// New returns the process-wide Metrics, registering it on first use.
func New() *Metrics {
	metricsOnce.Do(func() {
		metricsInstance = &Metrics{
			UploadsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
				Namespace: "reclink",
				Subsystem: "upload",
				Name:      "requests_total",
				Help:      "Uploads by outcome",
			}, []string{"outcome"}),
			UploadDuration: promauto.NewHistogram(prometheus.HistogramOpts{
				Namespace: "reclink",
				Subsystem: "upload",
				Name:      "duration_seconds",
				Help:      "Duration of complete uploads including server selection",
				Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12), // 100ms to ~200s
			}),
			UploadBytes: promauto.NewCounter(prometheus.CounterOpts{
				Namespace: "reclink",
				Subsystem: "upload",
				Name:      "bytes_total",
				Help:      "Bytes sent in successful uploads",
			}),
			ResolvesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
				Namespace: "reclink",
				Subsystem: "resolve",
				Name:      "requests_total",
				Help:      "Share page resolutions by outcome",
			}, []string{"outcome"}),
			ResolveDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "reclink",
				Subsystem: "resolve",
				Name:      "duration_seconds",
				Help:      "Duration of share page resolutions",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
			}, []string{"outcome"}),
			CacheHits: promauto.NewCounter(prometheus.CounterOpts{
				Namespace: "reclink",
				Subsystem: "resolve",
				Name:      "cache_hits_total",
				Help:      "Resolutions answered from cache",
			}),
		}
	})
	return metricsInstance
}

// ObserveUpload records one upload attempt.
func (m *Metrics) ObserveUpload(outcome string, start time.Time, size int64) {
	m.UploadsTotal.WithLabelValues(outcome).Inc()
	if outcome == "ok" {
		m.UploadDuration.Observe(time.Since(start).Seconds())
		m.UploadBytes.Add(float64(size))
	}
}

// ObserveResolve records one resolution attempt.
func (m *Metrics) ObserveResolve(outcome string, start time.Time) {
	m.ResolvesTotal.WithLabelValues(outcome).Inc()
	m.ResolveDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
}
