package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RelayRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_runs_total",
		Help: "Download-and-upload runs by outcome and error code",
	}, []string{"outcome", "code"})

	RelayDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "relay_run_duration_seconds",
		Help:    "Duration of a download-and-upload run",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
	})

	StagedBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "relay_staged_bytes",
		Help:    "Size of staged video files",
		Buckets: prometheus.ExponentialBuckets(1<<20, 2, 8),
	})

	UploadAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_upload_attempts_total",
		Help: "Drive upload attempts by credential strategy and outcome",
	}, []string{"strategy", "outcome"})

	TokenRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_token_refreshes_total",
		Help: "Delegated token refreshes by outcome",
	}, []string{"outcome"})

	ScheduledTasks = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "relay_scheduled_tasks",
		Help: "Live scheduled relay tasks",
	})
)

// SetScheduledTasks records the live task count.
func SetScheduledTasks(n int) {
	ScheduledTasks.Set(float64(n))
}
