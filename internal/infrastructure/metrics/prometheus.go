// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "movierec"

var (
	// HTTPRequestsTotal tracks served API requests.
	// Labels:
	//   - method: HTTP method
	//   - route: chi route pattern, e.g. /v1/movies
	//   - status: response status code
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration observes API latency per route.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// CacheOperationsTotal tracks cache operations (get, set, delete).
	// Labels:
	//   - operation: get, set, delete, clear
	//   - status: hit, miss, stale, success, error
	//   - cache_type: memory, redis
	CacheOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_operations_total",
			Help:      "Total number of cache operations",
		},
		[]string{"operation", "status", "cache_type"},
	)

	// ExternalRequestsTotal tracks calls to external collaborators.
	// Labels:
	//   - service: tmdb, catalog
	//   - endpoint: search, details, movie, movies
	//   - outcome: success, error, status, decode
	ExternalRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "external_requests_total",
			Help:      "Total number of requests to external services",
		},
		[]string{"service", "endpoint", "outcome"},
	)

	// EnrichmentsTotal tracks enrichment results.
	// Labels:
	//   - result: enriched, details_unavailable, no_match, lookup_failed
	EnrichmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichments_total",
			Help:      "Total number of catalog item enrichments",
		},
		[]string{"result"},
	)

	// DBQueriesTotal tracks database queries.
	// Labels:
	//   - query_type: select, insert, update
	//   - table: profiles
	DBQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "db_queries_total",
			Help:      "Total number of database queries",
		},
		[]string{"query_type", "table"},
	)

	// SingleflightRequestsTotal tracks singleflight behavior.
	// Labels:
	//   - result: initiated (new execution), shared (reused result)
	SingleflightRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "singleflight_requests_total",
			Help:      "Total number of singleflight requests",
		},
		[]string{"result"},
	)

	// RatingSyncsTotal tracks sign-in rating merges.
	// Labels:
	//   - result: synced, failed
	RatingSyncsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rating_syncs_total",
			Help:      "Total number of local-to-remote rating merges",
		},
		[]string{"result"},
	)

	// RatingsMergedTotal counts local ratings written to a remote profile by a merge.
	RatingsMergedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ratings_merged_total",
			Help:      "Total number of local ratings added to remote profiles",
		},
	)

	// WarmupTasksTotal tracks warm-up task processing in the worker.
	// Labels:
	//   - result: completed, retried, dropped
	WarmupTasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "warmup_tasks_total",
			Help:      "Total number of processed cache warm-up tasks",
		},
		[]string{"result"},
	)

	// PostersMirroredTotal tracks poster mirroring.
	// Labels:
	//   - result: uploaded, exists, error
	PostersMirroredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "posters_mirrored_total",
			Help:      "Total number of poster mirror attempts",
		},
		[]string{"result"},
	)
)

// Cache operation status constants.
const (
	CacheStatusHit     = "hit"
	CacheStatusMiss    = "miss"
	CacheStatusStale   = "stale"
	CacheStatusSuccess = "success"
	CacheStatusError   = "error"
)

// Cache operation type constants.
const (
	CacheOpGet    = "get"
	CacheOpSet    = "set"
	CacheOpDelete = "delete"
	CacheOpClear  = "clear"
)

// Cache type constants.
const (
	CacheTypeMemory = "memory"
	CacheTypeRedis  = "redis"
)

// External service constants.
const (
	ServiceTMDB    = "tmdb"
	ServiceCatalog = "catalog"

	EndpointSearch          = "search"
	EndpointDetails         = "details"
	EndpointTrending        = "trending"
	EndpointRecommendations = "recommendations"
	EndpointMovie           = "movie"
	EndpointMovies          = "movies"

	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeStatus  = "status"
	OutcomeDecode  = "decode"
)

// DB query type constants.
const (
	DBQuerySelect = "select"
	DBQueryInsert = "insert"
	DBQueryUpdate = "update"
)

// Table name constants.
const (
	TableProfiles = "profiles"
)

// Singleflight result constants.
const (
	SingleflightInitiated = "initiated"
	SingleflightShared    = "shared"
)

// Rating sync result constants.
const (
	SyncResultSynced = "synced"
	SyncResultFailed = "failed"
)

// Warm-up and poster result constants.
const (
	WarmupCompleted = "completed"
	WarmupRetried   = "retried"
	WarmupDropped   = "dropped"

	PosterUploaded = "uploaded"
	PosterExists   = "exists"
	PosterError    = "error"
)
