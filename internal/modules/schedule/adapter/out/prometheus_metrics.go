package out

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"confsched/internal/modules/schedule/domain"
	scheduleout "confsched/internal/modules/schedule/port/out"
)

// PrometheusMetrics counts refreshes, mutation outcomes and reported errors
// on a private registry.
type PrometheusMetrics struct {
	registry  *prometheus.Registry
	refreshes *prometheus.CounterVec
	mutations *prometheus.CounterVec
	errors    *prometheus.CounterVec
}

var _ scheduleout.Metrics = (*PrometheusMetrics)(nil)

func NewPrometheusMetrics() *PrometheusMetrics {
	m := &PrometheusMetrics{
		registry: prometheus.NewRegistry(),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "confsched",
			Name:      "refreshes_total",
			Help:      "Dataset refreshes by outcome.",
		}, []string{"ok"}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "confsched",
			Name:      "mutations_total",
			Help:      "Favorite and rating mutations by operation and terminal state.",
		}, []string{"op", "state"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "confsched",
			Name:      "errors_reported_total",
			Help:      "Failures reported on the error channel by kind.",
		}, []string{"kind"}),
	}
	m.registry.MustRegister(m.refreshes, m.mutations, m.errors)
	return m
}

func (m *PrometheusMetrics) RefreshFinished(ok bool) {
	m.refreshes.WithLabelValues(strconv.FormatBool(ok)).Inc()
}

func (m *PrometheusMetrics) MutationFinished(op string, state domain.MutationState) {
	m.mutations.WithLabelValues(op, state.String()).Inc()
}

func (m *PrometheusMetrics) ErrorReported(kind domain.ErrorKind) {
	m.errors.WithLabelValues(kind.String()).Inc()
}

func (m *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
