package api

import (
	"github.com/iulianpascalau/netgazer/aggregator"
	"github.com/iulianpascalau/netgazer/core"
)

// MetricsProvider defines the read-only view over the aggregated metrics
type MetricsProvider interface {
	// Snapshot returns the current value of every known metric, in unspecified order
	Snapshot() []core.Metric

	// GetMetric returns the current value of a label
	GetMetric(label string) (core.Metric, bool)

	// GetHistory returns up to maxLen most recent samples oldest to newest plus
	// the min/max over the entire retained history
	GetHistory(label string, maxLen int) ([]aggregator.HistoryPoint, float64, float64, bool)

	// ParentLabel returns the source label a derived metric was computed from
	ParentLabel(label string) (string, bool)

	// LastTimestamp returns the timestamp of the most recently ingested batch, in microseconds
	LastTimestamp() uint64

	IsInterfaceNil() bool
}
