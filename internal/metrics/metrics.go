// Package metrics exposes the Prometheus instrumentation for the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gin-gonic/gin"
)

// Generation kinds reported on GenerationsTotal.
const (
	KindAnalysis = "analysis"
	KindStyle    = "style"
	KindEdit     = "edit"
)

// Generation outcomes reported on GenerationsTotal.
const (
	OutcomeOK          = "ok"
	OutcomeError       = "error"
	OutcomeRateLimited = "rate_limited"
)

var (
	// GenerationsTotal counts model generation attempts by kind and outcome.
	GenerationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stylist_generations_total",
		Help: "Model generation attempts by kind and outcome.",
	}, []string{"kind", "outcome"})

	// HistoryPersistFailures counts background history writes that failed per backend.
	HistoryPersistFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stylist_history_persist_failures_total",
		Help: "Background history persistence failures by backend.",
	}, []string{"backend"})
)

// Handler serves the Prometheus scrape endpoint.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
