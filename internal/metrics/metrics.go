package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	statusTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "procurement",
		Name:      "status_transitions_total",
		Help:      "Status transitions applied to procurement entities.",
	}, []string{"entity", "from", "to"})

	workflowDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "procurement",
		Name:      "workflow_decisions_total",
		Help:      "Approval stage decisions by outcome.",
	}, []string{"entity", "decision"})

	workflowsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "procurement",
		Name:      "workflows_created_total",
		Help:      "Approval workflows created by entity type and tier.",
	}, []string{"entity", "tier"})

	unresolvedApprovers = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "procurement",
		Name:      "unresolved_approvers_total",
		Help:      "Approval stages created without a matching approver.",
	}, []string{"role"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "procurement",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "code"})
)

// Transition учитывает смену статуса сущности.
func Transition(entity, from, to string) {
	statusTransitions.WithLabelValues(entity, from, to).Inc()
}

// Decision учитывает решение по этапу согласования.
func Decision(entity, decision string) {
	workflowDecisions.WithLabelValues(entity, decision).Inc()
}

// WorkflowCreated учитывает созданный маршрут.
func WorkflowCreated(entity, tier string) {
	workflowsCreated.WithLabelValues(entity, tier).Inc()
}

// UnresolvedApprover учитывает этап без согласующего.
func UnresolvedApprover(role string) {
	unresolvedApprovers.WithLabelValues(role).Inc()
}

// ObserveRequest учитывает длительность HTTP-запроса.
func ObserveRequest(method string, code int, elapsed time.Duration) {
	httpDuration.WithLabelValues(method, strconv.Itoa(code)).Observe(elapsed.Seconds())
}

// Handler отдает метрики в формате Prometheus.
func Handler() http.Handler {
	return promhttp.Handler()
}
