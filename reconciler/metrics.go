package reconciler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var actionSweepCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warden_reconciler_actions_swept",
	Help: "Number of scheduled actions executed by the sweep, by kind and outcome",
}, []string{"kind", "outcome"})

var ticketEscalationCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "warden_reconciler_ticket_escalations",
	Help: "Number of tickets escalated by the SLA sweep",
})

var sweepErrorCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warden_reconciler_sweep_errors",
	Help: "Number of sweep passes that failed outright",
}, []string{"sweep"})
