package automod

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var eventProcessDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name: "warden_automod_message_duration_sec",
	Help: "Total duration of automod message processing",
})

var eventProcessCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "warden_automod_messages_processed",
	Help: "Number of messages processed",
})

var eventErrorCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "warden_automod_message_errors",
	Help: "Number of messages which failed processing",
})

var violationCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warden_automod_violations",
	Help: "Number of rule violations recorded",
}, []string{"kind"})

var actionCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warden_automod_actions",
	Help: "Number of response actions taken, by tier",
}, []string{"tier"})

var unappliedCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "warden_automod_unapplied_cases",
	Help: "Number of cases recorded without the platform action applying",
})
