package metrics

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every collector exposed on /metrics.
var Registry = prometheus.NewRegistry()

var (
	ingestionStartedTotal = promauto.With(Registry).NewCounter(prometheus.CounterOpts{
		Name: "ingestion_started_total",
		Help: "Total résumé ingestions started",
	})
	ingestionCompletedTotal = promauto.With(Registry).NewCounter(prometheus.CounterOpts{
		Name: "ingestion_completed_total",
		Help: "Total résumé ingestions that stored feedback",
	})
	ingestionFailedTotal = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "ingestion_failed_total",
		Help: "Total résumé ingestions that failed, by stage",
	}, []string{"stage"})
	ingestionDuration = promauto.With(Registry).NewHistogram(prometheus.HistogramOpts{
		Name:    "ingestion_duration_ms",
		Help:    "Ingestion duration in milliseconds",
		Buckets: []float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000},
	})
	presentationLoadsTotal = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "presentation_loads_total",
		Help: "Résumé detail loads, by result",
	}, []string{"result"})
	llmRequestsTotal = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "llm_requests_total",
		Help: "AI feedback requests, by provider and outcome",
	}, []string{"provider", "outcome"})
	transientRefsActive = promauto.With(Registry).NewGauge(prometheus.GaugeOpts{
		Name: "transient_refs_active",
		Help: "Transient blob references currently registered",
	})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// IncIngestionStarted increments the started counter.
func IncIngestionStarted() {
	ingestionStartedTotal.Inc()
}

// IncIngestionCompleted increments the completed counter.
func IncIngestionCompleted() {
	ingestionCompletedTotal.Inc()
}

// IncIngestionFailed increments the failed counter for stage.
func IncIngestionFailed(stage string) {
	ingestionFailedTotal.WithLabelValues(stage).Inc()
}

// ObserveIngestionDuration records an ingestion duration.
func ObserveIngestionDuration(d time.Duration) {
	if d < 0 {
		d = 0
	}
	ingestionDuration.Observe(float64(d.Milliseconds()))
}

// IncPresentationLoad counts a detail load. result is found, missing or degraded.
func IncPresentationLoad(result string) {
	presentationLoadsTotal.WithLabelValues(result).Inc()
}

// IncLLMRequest counts an AI call outcome.
func IncLLMRequest(provider, outcome string) {
	llmRequestsTotal.WithLabelValues(provider, outcome).Inc()
}

// SetTransientRefs reports the number of live transient references.
func SetTransientRefs(n int) {
	transientRefsActive.Set(float64(n))
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
	return gin.WrapH(h)
}
