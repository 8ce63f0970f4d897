package resolve

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var holesResolvedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "svindex_resolve_holes_total",
	Help: "Holes processed, labeled by the method that settled them.",
}, []string{"method"})
