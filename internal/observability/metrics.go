package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TicketsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "exchangedesk_tickets_created_total",
		Help: "Total number of tickets lodged.",
	})

	TransitionsAppliedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "exchangedesk_transitions_applied_total",
		Help: "Total number of successfully applied stage transitions.",
	},
		[]string{"action"},
	)

	TransitionFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "exchangedesk_transition_failures_total",
		Help: "Total number of rejected transitions by error code.",
	},
		[]string{"action", "code"},
	)

	SLABreachesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "exchangedesk_sla_breaches_total",
		Help: "Total number of tickets escalated for exceeding their stage dwell time.",
	})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "exchangedesk_http_requests_total",
		Help: "Total HTTP requests by path, method and status.",
	},
		[]string{"path", "method", "status"},
	)
)
