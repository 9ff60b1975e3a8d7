// Package observability provides Prometheus metrics for the application.
package observability

import (
	"sync"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpOnce sync.Once
	httpProm *fiberprometheus.FiberPrometheus
)

// HTTPMetrics returns the request-level Prometheus middleware. The
// underlying collectors register against the default registry exactly
// once, however many servers a process builds.
func HTTPMetrics() *fiberprometheus.FiberPrometheus {
	httpOnce.Do(func() {
		httpProm = fiberprometheus.New("loom")
	})
	return httpProm
}

var (
	// LoginSuccess counts successful login attempts.
	LoginSuccess = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "loom_login_success_total",
		Help: "Total successful login attempts",
	})

	// LoginFailure counts failed login attempts by reason.
	LoginFailure = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "loom_login_failure_total",
		Help: "Total failed login attempts",
	}, []string{"reason"})

	// RegisterSuccess counts successful registrations.
	RegisterSuccess = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "loom_register_success_total",
		Help: "Total successful registrations",
	})

	// RegisterConflict counts registrations rejected because the
	// username or email was already taken.
	RegisterConflict = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "loom_register_conflict_total",
		Help: "Total registrations rejected due to a uniqueness conflict",
	})

	// PostsCreated counts posts successfully published.
	PostsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "loom_posts_created_total",
		Help: "Total posts successfully published",
	})

	// FeedBuildDuration observes end-to-end feed assembly latency.
	FeedBuildDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "loom_feed_build_duration_seconds",
		Help:    "Duration of dashboard feed assembly",
		Buckets: prometheus.DefBuckets,
	})

	// MalformedChains counts thread-chain references degraded to
	// single-post threads, whether the reference failed validation or
	// pointed at posts that no longer resolve.
	MalformedChains = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "loom_malformed_chain_refs_total",
		Help: "Total thread-chain references that failed validation or resolution",
	})

	// RedisErrors counts Redis command failures by command name.
	RedisErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "loom_redis_errors_total",
		Help: "Total Redis command errors",
	}, []string{"command"})
)

func init() {
	prometheus.MustRegister(
		LoginSuccess,
		LoginFailure,
		RegisterSuccess,
		RegisterConflict,
		PostsCreated,
		FeedBuildDuration,
		MalformedChains,
		RedisErrors,
	)
}
