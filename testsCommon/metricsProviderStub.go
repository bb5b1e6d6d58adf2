package testsCommon

import (
	"github.com/iulianpascalau/netgazer/aggregator"
	"github.com/iulianpascalau/netgazer/core"
)

// MetricsProviderStub -
type MetricsProviderStub struct {
	SnapshotHandler      func() []core.Metric
	GetMetricHandler     func(label string) (core.Metric, bool)
	GetHistoryHandler    func(label string, maxLen int) ([]aggregator.HistoryPoint, float64, float64, bool)
	ParentLabelHandler   func(label string) (string, bool)
	LastTimestampHandler func() uint64
}

// Snapshot -
func (stub *MetricsProviderStub) Snapshot() []core.Metric {
	if stub.SnapshotHandler != nil {
		return stub.SnapshotHandler()
	}

	return make([]core.Metric, 0)
}

// GetMetric -
func (stub *MetricsProviderStub) GetMetric(label string) (core.Metric, bool) {
	if stub.GetMetricHandler != nil {
		return stub.GetMetricHandler(label)
	}

	return core.Metric{}, false
}

// GetHistory -
func (stub *MetricsProviderStub) GetHistory(label string, maxLen int) ([]aggregator.HistoryPoint, float64, float64, bool) {
	if stub.GetHistoryHandler != nil {
		return stub.GetHistoryHandler(label, maxLen)
	}

	return nil, 0, 0, false
}

// ParentLabel -
func (stub *MetricsProviderStub) ParentLabel(label string) (string, bool) {
	if stub.ParentLabelHandler != nil {
		return stub.ParentLabelHandler(label)
	}

	return "", false
}

// LastTimestamp -
func (stub *MetricsProviderStub) LastTimestamp() uint64 {
	if stub.LastTimestampHandler != nil {
		return stub.LastTimestampHandler()
	}

	return 0
}

// IsInterfaceNil -
func (stub *MetricsProviderStub) IsInterfaceNil() bool {
	return stub == nil
}
