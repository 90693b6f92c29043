// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promauto"
)

var (
    Runs = promauto.NewCounterVec(prometheus.CounterOpts{
        Name: "issue_sync_runs_total",
        Help: "Pipeline runs by outcome.",
    }, []string{"outcome"})

    IssuesFetched = promauto.NewCounter(prometheus.CounterOpts{
        Name: "issue_sync_issues_fetched_total",
        Help: "Issues returned by bulk fetch.",
    })

    RateLimitWaits = promauto.NewCounter(prometheus.CounterOpts{
        Name: "issue_sync_rate_limit_waits_total",
        Help: "HTTP 429 responses that triggered a backoff sleep.",
    })

    SinkFailures = promauto.NewCounterVec(prometheus.CounterOpts{
        Name: "issue_sync_sink_failures_total",
        Help: "Best-effort sink failures by sink.",
    }, []string{"sink"})

    RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
        Name:    "issue_sync_run_duration_seconds",
        Help:    "Wall time of a pipeline run.",
        Buckets: prometheus.ExponentialBuckets(1, 2, 12),
    })
)
