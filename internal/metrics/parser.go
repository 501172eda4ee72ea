package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ParserPhaseDuration is a gauge with the duration of the last run of
// each builder phase, in seconds.
var ParserPhaseDuration = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name:      "phase_duration_seconds",
	Subsystem: subsystemParser,
	Namespace: namespace,
	Help:      "How long the last run of each builder phase took, in seconds.",
}, []string{"phase"})
