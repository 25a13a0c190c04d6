package scraper

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pagesFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dealmachine_pages_fetched_total",
			Help: "Lead pages fetched, by classification (page, empty, error)",
		},
		[]string{"result"},
	)

	rowsAccepted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dealmachine_rows_accepted_total",
			Help: "Wireless rows accepted after deduplication",
		},
	)

	duplicatesSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dealmachine_duplicates_skipped_total",
			Help: "Wireless candidates dropped because the number was already emitted",
		},
	)

	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dealmachine_runs_total",
			Help: "Scrape runs by outcome kind (success, empty, failure)",
		},
		[]string{"outcome"},
	)

	runDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dealmachine_run_duration_seconds",
			Help:    "Wall time of a scrape run",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		},
	)
)
