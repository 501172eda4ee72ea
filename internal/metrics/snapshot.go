package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SnapshotUpdateTime is a gauge with the timestamp of the last
	// successful snapshot load.
	SnapshotUpdateTime = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name:      "update_time",
		Subsystem: subsystemSnapshot,
		Namespace: namespace,
		Help:      "The time when the snapshot was loaded last time.",
	}, []string{"path"})

	// SnapshotUpdateStatus is a gauge with the last snapshot load
	// status.  1 means success, 0 means an error occurred.
	SnapshotUpdateStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name:      "update_status",
		Subsystem: subsystemSnapshot,
		Namespace: namespace,
		Help:      "Status of the last snapshot load. 1 is okay, 0 means that something went wrong.",
	}, []string{"path"})
)

var (
	// snapshotRanges is a gauge with the number of IP ranges in the
	// currently served snapshot per address family.
	snapshotRanges = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name:      "ranges",
		Subsystem: subsystemSnapshot,
		Namespace: namespace,
		Help:      "The number of IP ranges in the currently served snapshot.",
	}, []string{"family"})

	// SnapshotRangesIPv4 is a gauge with the number of IPv4 ranges in
	// the currently served snapshot.
	SnapshotRangesIPv4 = snapshotRanges.With(prometheus.Labels{"family": "ipv4"})

	// SnapshotRangesIPv6 is a gauge with the number of IPv6 ranges in
	// the currently served snapshot.
	SnapshotRangesIPv6 = snapshotRanges.With(prometheus.Labels{"family": "ipv6"})
)
