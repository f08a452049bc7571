package isr

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	lookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "showcase",
		Subsystem: "isr",
		Name:      "lookups_total",
		Help:      "Snapshot lookups by cache status.",
	}, []string{"status"})

	regenerations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "showcase",
		Subsystem: "isr",
		Name:      "regenerations_total",
		Help:      "Page regenerations by reason and outcome.",
	}, []string{"reason", "outcome"})

	regenSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "showcase",
		Subsystem: "isr",
		Name:      "regeneration_seconds",
		Help:      "Time spent rendering a page.",
		Buckets:   prometheus.DefBuckets,
	})
)
