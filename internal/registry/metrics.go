package registry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fetchTasks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "svindex",
		Subsystem: "registry",
		Name:      "fetch_tasks_total",
		Help:      "Registry fetch tasks by outcome.",
	}, []string{"outcome"})

	rowsMerged = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "svindex",
		Subsystem: "registry",
		Name:      "rows_merged_total",
		Help:      "Cells merged into pull tables (first value wins).",
	})

	areasFiltered = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "svindex",
		Subsystem: "registry",
		Name:      "areas_filtered_total",
		Help:      "Areas dropped by the population and special-use filters.",
	}, []string{"reason"})
)
