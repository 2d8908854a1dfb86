// Package metrics exposes run instrumentation via Prometheus. The
// endpoint is optional and off by default; runs are short-lived, so the
// scrape surface mostly matters for long backfills.
package metrics

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mpalmer/tsfill/pkg/types"
)

var log = slog.Default()

// Collector holds the per-week counters and timings.
type Collector struct {
	weeksProcessed *prometheus.CounterVec
	tasksFilled    prometheus.Counter
	tasksCleared   prometheus.Counter
	hoursSaved     prometheus.Counter
	weekDuration   prometheus.Histogram
}

// NewCollector registers the run metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		weeksProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tsfill",
			Name:      "weeks_processed_total",
			Help:      "Weeks processed, labeled by result.",
		}, []string{"result"}),
		tasksFilled: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "tsfill",
			Name:      "tasks_filled_total",
			Help:      "Task rows that received hour writes.",
		}),
		tasksCleared: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "tsfill",
			Name:      "tasks_cleared_total",
			Help:      "Unconfigured task rows cleared of hours.",
		}),
		hoursSaved: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "tsfill",
			Name:      "hours_saved_total",
			Help:      "Verified saved hours across all weeks.",
		}),
		weekDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tsfill",
			Name:      "week_duration_seconds",
			Help:      "Wall time spent processing a single week.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
	}
}

// ObserveWeek records one finished week.
func (c *Collector) ObserveWeek(outcome types.WeekOutcome, elapsed time.Duration) {
	result := "success"
	if outcome.Failed() {
		result = "failure"
	}
	c.weeksProcessed.WithLabelValues(result).Inc()
	c.tasksFilled.Add(float64(outcome.FilledTasks))
	c.tasksCleared.Add(float64(outcome.ClearedTasks))
	if !outcome.Failed() {
		c.hoursSaved.Add(outcome.SavedTotal)
	}
	c.weekDuration.Observe(elapsed.Seconds())
}

// StartServer serves the registry on /metrics in the background and
// returns the server so the caller can shut it down.
func StartServer(port int, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}
	go func() {
		log.Info("metrics server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server stopped", "error", err)
		}
	}()
	return srv
}
