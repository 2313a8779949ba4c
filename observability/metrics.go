package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DashboardMetrics records dashboard module telemetry. Implementations must be
// safe for concurrent use.
type DashboardMetrics interface {
	RecordOperationAttempt(ctx context.Context, operation string, entityID string)
	RecordOperationSuccess(ctx context.Context, operation string, entityID string)
	RecordOperationFailure(ctx context.Context, operation string, entityID string)
	RecordOperationDuration(ctx context.Context, operation string, entityID string, duration time.Duration)

	RecordActivityEvent(ctx context.Context, entityID string, kind string)
	RecordRefreshTriggered(ctx context.Context, entityID string, reason string)
	RecordRefreshCoalesced(ctx context.Context, entityID string)
	RecordRefreshFailure(ctx context.Context, entityID string)
	RecordEntityDropped(ctx context.Context, entityID string)
	RecordRenderFailure(ctx context.Context, entityID string)
	RecordSnapshotPublished(ctx context.Context, entityID string, recreated bool)
	SetEntityRegistrySize(size int)
}

// PrometheusMetrics implements DashboardMetrics on a Prometheus registry.
type PrometheusMetrics struct {
	operationAttempts  *prometheus.CounterVec
	operationSuccesses *prometheus.CounterVec
	operationFailures  *prometheus.CounterVec
	operationDuration  *prometheus.HistogramVec

	activityEvents     *prometheus.CounterVec
	refreshesTriggered *prometheus.CounterVec
	refreshesCoalesced prometheus.Counter
	refreshFailures    prometheus.Counter
	entitiesDropped    prometheus.Counter
	renderFailures     prometheus.Counter
	snapshotsPublished *prometheus.CounterVec
	entityRegistrySize prometheus.Gauge
}

// NewPrometheusMetrics registers the dashboard collectors on the given
// registerer and returns the metrics facade.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	factory := promauto.With(reg)
	return &PrometheusMetrics{
		operationAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pulsebot_dashboard_operation_attempts_total",
			Help: "Service operations attempted, by operation name.",
		}, []string{"operation"}),
		operationSuccesses: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pulsebot_dashboard_operation_successes_total",
			Help: "Service operations completed successfully, by operation name.",
		}, []string{"operation"}),
		operationFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pulsebot_dashboard_operation_failures_total",
			Help: "Service operations that returned an error, by operation name.",
		}, []string{"operation"}),
		operationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pulsebot_dashboard_operation_duration_seconds",
			Help:    "Service operation latency, by operation name.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		activityEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pulsebot_activity_events_total",
			Help: "Activity events ingested, by kind.",
		}, []string{"kind"}),
		refreshesTriggered: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pulsebot_refreshes_triggered_total",
			Help: "Dashboard refreshes triggered, by trigger reason.",
		}, []string{"reason"}),
		refreshesCoalesced: factory.NewCounter(prometheus.CounterOpts{
			Name: "pulsebot_refreshes_coalesced_total",
			Help: "Activity events absorbed without triggering a refresh.",
		}),
		refreshFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "pulsebot_refresh_failures_total",
			Help: "Refresh attempts abandoned due to an error.",
		}),
		entitiesDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "pulsebot_entities_dropped_total",
			Help: "Activity events dropped because the entity registry is full.",
		}),
		renderFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "pulsebot_render_failures_total",
			Help: "Chart render failures (non-fatal; snapshot publishes without artwork).",
		}),
		snapshotsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pulsebot_snapshots_published_total",
			Help: "Snapshots published, split by whether the target had to be recreated.",
		}, []string{"recreated"}),
		entityRegistrySize: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pulsebot_entity_registry_size",
			Help: "Number of communities tracked by the refresh coalescer.",
		}),
	}
}

func (m *PrometheusMetrics) RecordOperationAttempt(_ context.Context, operation, _ string) {
	m.operationAttempts.WithLabelValues(operation).Inc()
}

func (m *PrometheusMetrics) RecordOperationSuccess(_ context.Context, operation, _ string) {
	m.operationSuccesses.WithLabelValues(operation).Inc()
}

func (m *PrometheusMetrics) RecordOperationFailure(_ context.Context, operation, _ string) {
	m.operationFailures.WithLabelValues(operation).Inc()
}

func (m *PrometheusMetrics) RecordOperationDuration(_ context.Context, operation, _ string, duration time.Duration) {
	m.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (m *PrometheusMetrics) RecordActivityEvent(_ context.Context, _ string, kind string) {
	m.activityEvents.WithLabelValues(kind).Inc()
}

func (m *PrometheusMetrics) RecordRefreshTriggered(_ context.Context, _ string, reason string) {
	m.refreshesTriggered.WithLabelValues(reason).Inc()
}

func (m *PrometheusMetrics) RecordRefreshCoalesced(_ context.Context, _ string) {
	m.refreshesCoalesced.Inc()
}

func (m *PrometheusMetrics) RecordRefreshFailure(_ context.Context, _ string) {
	m.refreshFailures.Inc()
}

func (m *PrometheusMetrics) RecordEntityDropped(_ context.Context, _ string) {
	m.entitiesDropped.Inc()
}

func (m *PrometheusMetrics) RecordRenderFailure(_ context.Context, _ string) {
	m.renderFailures.Inc()
}

func (m *PrometheusMetrics) RecordSnapshotPublished(_ context.Context, _ string, recreated bool) {
	label := "false"
	if recreated {
		label = "true"
	}
	m.snapshotsPublished.WithLabelValues(label).Inc()
}

func (m *PrometheusMetrics) SetEntityRegistrySize(size int) {
	m.entityRegistrySize.Set(float64(size))
}

// NoOpMetrics is a DashboardMetrics that records nothing. Used in tests.
type NoOpMetrics struct{}

func (NoOpMetrics) RecordOperationAttempt(context.Context, string, string)                {}
func (NoOpMetrics) RecordOperationSuccess(context.Context, string, string)                {}
func (NoOpMetrics) RecordOperationFailure(context.Context, string, string)                {}
func (NoOpMetrics) RecordOperationDuration(context.Context, string, string, time.Duration) {
}
func (NoOpMetrics) RecordActivityEvent(context.Context, string, string)     {}
func (NoOpMetrics) RecordRefreshTriggered(context.Context, string, string)  {}
func (NoOpMetrics) RecordRefreshCoalesced(context.Context, string)          {}
func (NoOpMetrics) RecordRefreshFailure(context.Context, string)            {}
func (NoOpMetrics) RecordEntityDropped(context.Context, string)             {}
func (NoOpMetrics) RecordRenderFailure(context.Context, string)             {}
func (NoOpMetrics) RecordSnapshotPublished(context.Context, string, bool)   {}
func (NoOpMetrics) SetEntityRegistrySize(int)                               {}
