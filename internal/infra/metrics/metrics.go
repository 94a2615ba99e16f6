// Package metrics holds the Prometheus collectors shared by the server.
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "sprintcrew"

// Cache lookup results.
const (
	ResultHit  = "hit"
	ResultMiss = "miss"
)

// Post-commit job outcomes.
const (
	JobOK      = "ok"
	JobError   = "error"
	JobPanic   = "panic"
	JobDropped = "dropped"
)

var (
	cacheRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "requests_total",
			Help:      "Count of read-through cache lookups by result.",
		},
		[]string{"result"},
	)
	cacheInvalidations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "invalidated_keys_total",
			Help:      "Count of cache entries removed by invalidation.",
		},
	)
	broadcastPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "broadcast",
			Name:      "published_total",
			Help:      "Count of events published by event name.",
		},
		[]string{"event"},
	)
	broadcastDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "broadcast",
			Name:      "dropped_total",
			Help:      "Count of deliveries dropped because a subscriber was full.",
		},
	)
	broadcastSubscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "broadcast",
			Name:      "subscribers",
			Help:      "Number of live room subscriptions.",
		},
	)
	postCommitJobs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "postcommit",
			Name:      "jobs_total",
			Help:      "Count of post-commit jobs by job name and outcome.",
		},
		[]string{"job", "outcome"},
	)
	transactions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "transactions_total",
			Help:      "Count of write transactions by operation and result.",
		},
		[]string{"op", "result"},
	)
	progressRecomputations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "progress",
			Name:      "recomputations_total",
			Help:      "Count of sprint progress recomputations, by whether the value changed.",
		},
		[]string{"changed"},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Count of HTTP requests by method, route and status code.",
		},
		[]string{"method", "route", "code"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency distribution.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

var (
	registryOnce sync.Once
	registry     *prometheus.Registry
)

// Registry returns the process registry with every collector registered.
func Registry() *prometheus.Registry {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			cacheRequests,
			cacheInvalidations,
			broadcastPublished,
			broadcastDropped,
			broadcastSubscribers,
			postCommitJobs,
			transactions,
			progressRecomputations,
			httpRequests,
			httpDuration,
		)
	})
	return registry
}

// RecordCacheLookup records a cache hit or miss.
func RecordCacheLookup(result string) {
	cacheRequests.WithLabelValues(result).Inc()
}

// RecordCacheInvalidation records n removed entries.
func RecordCacheInvalidation(n int) {
	cacheInvalidations.Add(float64(n))
}

// RecordPublished records one published event.
func RecordPublished(event string) {
	broadcastPublished.WithLabelValues(event).Inc()
}

// RecordDropped records one dropped delivery.
func RecordDropped() {
	broadcastDropped.Inc()
}

// SetSubscribers sets the live subscription gauge.
func SetSubscribers(n int) {
	broadcastSubscribers.Set(float64(n))
}

// RecordJob records a post-commit job outcome.
func RecordJob(job, outcome string) {
	postCommitJobs.WithLabelValues(job, outcome).Inc()
}

// RecordTransaction records a committed or rolled back write transaction.
func RecordTransaction(op string, committed bool) {
	result := "committed"
	if !committed {
		result = "rolled_back"
	}
	transactions.WithLabelValues(op, result).Inc()
}

// RecordRecompute records a progress recomputation.
func RecordRecompute(changed bool) {
	progressRecomputations.WithLabelValues(strconv.FormatBool(changed)).Inc()
}

// RecordHTTPRequest records a served request.
func RecordHTTPRequest(method, route string, code int, elapsed time.Duration) {
	httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
