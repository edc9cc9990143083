package antiraid

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var joinProcessCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "warden_antiraid_joins_processed",
	Help: "Number of member joins evaluated",
})

var joinDispositionCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warden_antiraid_join_dispositions",
	Help: "Number of join dispositions, by outcome",
}, []string{"disposition"})

var incidentOpenCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "warden_antiraid_incidents_opened",
	Help: "Number of raid incidents opened",
})
