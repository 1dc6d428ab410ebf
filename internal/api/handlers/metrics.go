package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/historia/cockpit-archive/internal/models"
)

// ReviewMetrics counts review decisions by action and outcome.
type ReviewMetrics struct {
	decisions *prometheus.CounterVec
}

// NewReviewMetrics creates review counters registered on reg.
func NewReviewMetrics(reg prometheus.Registerer) *ReviewMetrics {
	return &ReviewMetrics{
		decisions: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "cockpit",
			Subsystem: "review",
			Name:      "decisions_total",
			Help:      "Review decisions broken down by action and result.",
		}, []string{"action", "result"}),
	}
}

// RecordDecision increments the counter for one decision. Safe on a nil
// receiver so callers need no metrics wiring in tests.
func (m *ReviewMetrics) RecordDecision(action models.ActivityAction, ok bool) {
	if m == nil {
		return
	}
	result := "error"
	if ok {
		result = "ok"
	}
	m.decisions.WithLabelValues(string(action), result).Inc()
}

// HealthPinger reports database reachability for the up gauge.
type HealthPinger interface {
	Ping(ctx context.Context) error
}

// MetricsHandler exposes the Prometheus scrape endpoint.
type MetricsHandler struct {
	registry *prometheus.Registry
	logger   zerolog.Logger
}

// NewMetricsHandler creates a MetricsHandler with its own registry,
// including Go runtime collectors and a database up gauge.
func NewMetricsHandler(pinger HealthPinger, logger zerolog.Logger) *MetricsHandler {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "cockpit",
		Name:      "database_up",
		Help:      "Database reachability (1 = reachable, 0 = unreachable).",
	}, func() float64 {
		if pinger == nil {
			return 0
		}
		if err := pinger.Ping(context.Background()); err != nil {
			return 0
		}
		return 1
	}))

	return &MetricsHandler{
		registry: registry,
		logger:   logger.With().Str("component", "metrics_handler").Logger(),
	}
}

// Registry returns the handler's registry for additional collectors.
func (h *MetricsHandler) Registry() *prometheus.Registry {
	return h.registry
}

// RegisterPublicRoutes registers the scrape endpoint on the engine root.
func (h *MetricsHandler) RegisterPublicRoutes(r *gin.Engine) {
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{})))
}
