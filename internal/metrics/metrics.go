// Package metrics contains definitions of the prometheus metrics that
// we use in the geolocation database and its builder.
package metrics

// constants with the namespace and the subsystem names that we use in our
// prometheus metrics.
const (
	namespace = "geodb"

	subsystemParser   = "parser"
	subsystemSnapshot = "snapshot"
)
