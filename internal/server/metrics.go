package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	jobsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "obscura",
		Name:      "jobs_started_total",
		Help:      "Planning jobs accepted by the server.",
	})

	jobsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "obscura",
		Name:      "jobs_finished_total",
		Help:      "Planning jobs by terminal status.",
	}, []string{"status"})

	activeJobs = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "obscura",
		Name:      "jobs_active",
		Help:      "Planning jobs currently running.",
	})

	planDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "obscura",
		Name:      "plan_duration_seconds",
		Help:      "End-to-end planning time for completed jobs.",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
	})

	planScore = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "obscura",
		Name:      "plan_weighted_score",
		Help:      "Weighted obscuration score of the most recent completed plan.",
	})
)
