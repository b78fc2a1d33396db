package metrics

import (
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CollectionRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tweetminer_collection_runs_total",
		Help: "Total collection runs",
	}, []string{"type"})
	CollectionErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tweetminer_collection_errors_total",
		Help: "Total failed collection runs",
	}, []string{"type"})
	RecordsCollected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tweetminer_records_collected_total",
		Help: "Tweets collected across runs",
	}, []string{"type"})
	CollectionDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tweetminer_collection_duration_seconds",
		Help:    "Collection run duration seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"type"})
	APIRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tweetminer_api_retries_total",
		Help: "Total API retry attempts",
	}, []string{"endpoint"})
	RateLimited = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tweetminer_rate_limited_total",
		Help: "Requests rejected with a rate limit",
	}, []string{"endpoint"})
	CommandRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tweetminer_command_runs_total",
		Help: "CLI command invocations",
	}, []string{"command"})
	CommandErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tweetminer_command_errors_total",
		Help: "CLI command failures",
	}, []string{"command"})
)

func init() {
	prometheus.MustRegister(CollectionRuns, CollectionErrors, RecordsCollected, CollectionDuration,
		APIRetries, RateLimited, CommandRuns, CommandErrors)
}

// StartServer starts a metrics HTTP server on addr (e.g., ":9090").
func StartServer(addr string) {
	if addr == "" {
		addr = os.Getenv("METRICS_ADDR")
	}
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	go func() { _ = http.ListenAndServe(addr, mux) }()
}

// ObserveCollection records the outcome of one collection run.
func ObserveCollection(typ string, start time.Time, records int, err error) {
	CollectionRuns.WithLabelValues(typ).Inc()
	CollectionDuration.WithLabelValues(typ).Observe(time.Since(start).Seconds())
	if err != nil {
		CollectionErrors.WithLabelValues(typ).Inc()
		return
	}
	RecordsCollected.WithLabelValues(typ).Add(float64(records))
}

// IncAPIRetry increments the retry counter for an endpoint.
func IncAPIRetry(endpoint string) { APIRetries.WithLabelValues(endpoint).Inc() }

func IncRateLimited(endpoint string) { RateLimited.WithLabelValues(endpoint).Inc() }

func IncCommandRun(cmd string)   { CommandRuns.WithLabelValues(cmd).Inc() }
func IncCommandError(cmd string) { CommandErrors.WithLabelValues(cmd).Inc() }
