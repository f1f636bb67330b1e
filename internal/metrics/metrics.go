package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "habitlite_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	LogChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "habitlite_log_changes_total",
			Help: "Total number of counter changes applied to habit logs",
		},
		[]string{"direction"}, // increment, decrement
	)

	StreakJobs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "habitlite_streak_jobs_total",
			Help: "Total number of streak recomputations",
		},
		[]string{"result"}, // success, failed, dropped
	)

	HabitCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "habitlite_habit_cache_lookups_total",
			Help: "Total number of habit list cache lookups",
		},
		[]string{"result"}, // hit, miss, stale, error
	)

	StreakJobDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "habitlite_streak_job_duration_seconds",
			Help:    "Streak recomputation duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 10),
		},
	)
)

func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

func IncrementLogChange(delta int) {
	direction := "increment"
	if delta < 0 {
		direction = "decrement"
	}
	LogChanges.WithLabelValues(direction).Inc()
}

func IncrementStreakJob(result string) {
	StreakJobs.WithLabelValues(result).Inc()
}

func RecordStreakJobDuration(duration time.Duration) {
	StreakJobDuration.Observe(duration.Seconds())
}

func IncrementHabitCacheLookup(result string) {
	HabitCacheLookups.WithLabelValues(result).Inc()
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
