package layout

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	layoutFallbackTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carousel_layout_fallback_total",
			Help: "Number of layout resolutions that fell back to the default layout.",
		},
		[]string{"reason"},
	)
	layoutCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carousel_layout_cache_total",
			Help: "Stored layout lookups by cache tier and result.",
		},
		[]string{"tier", "result"},
	)
)
