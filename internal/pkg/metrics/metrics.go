package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"escrow_wallet/internal/app/port"
	"escrow_wallet/internal/domain/entity"
)

// Registry holds the service's prometheus collectors in a private registry.
type Registry struct {
	registry         *prometheus.Registry
	transitionsTotal *prometheus.CounterVec
	rejectionsTotal  *prometheus.CounterVec
	approvalsTotal   *prometheus.CounterVec
	readFailures     *prometheus.CounterVec
}

// New creates the registry with Go runtime and process collectors.
func New() *Registry {
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "escrow_wallet_workflow_transitions_total",
		Help: "Allowance workflow state transitions",
	}, []string{"from", "to"})

	rejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "escrow_wallet_validation_rejections_total",
		Help: "Allowance inputs rejected before submission",
	}, []string{"kind"})

	approvals := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "escrow_wallet_approvals_total",
		Help: "Approve transactions submitted",
	}, []string{"result"})

	reads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "escrow_wallet_read_failures_total",
		Help: "Token reads that failed and were reported as unknown",
	}, []string{"call"})

	r := prometheus.NewRegistry()
	r.MustRegister(
		transitions, rejections, approvals, reads,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	return &Registry{
		registry:         r,
		transitionsTotal: transitions,
		rejectionsTotal:  rejections,
		approvalsTotal:   approvals,
		readFailures:     reads,
	}
}

// Handler serves the registry in the prometheus exposition format.
func (m *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Gatherer exposes the registry, mostly for tests.
func (m *Registry) Gatherer() prometheus.Gatherer {
	return m.registry
}

func (m *Registry) ObserveTransition(from, to entity.WorkflowState) {
	m.transitionsTotal.WithLabelValues(string(from), string(to)).Inc()
}

func (m *Registry) ObserveRejection(kind string) {
	m.rejectionsTotal.WithLabelValues(kind).Inc()
}

func (m *Registry) ObserveApproval(result string) {
	m.approvalsTotal.WithLabelValues(result).Inc()
}

func (m *Registry) ObserveReadFailure(call string) {
	m.readFailures.WithLabelValues(call).Inc()
}

var _ port.Metrics = (*Registry)(nil)
