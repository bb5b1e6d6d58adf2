package aggregator

import (
	"strings"

	"github.com/iulianpascalau/netgazer/core"
)

// RuleKind identifies the computation an auto metric rule applies
type RuleKind int

const (
	// RuleTimeDifferentiate derives a rate of change from a counter's history
	RuleTimeDifferentiate RuleKind = iota
	// RuleMovingAverage derives the arithmetic mean of the most recent samples
	RuleMovingAverage
	// RuleExpFalloffAverage is recognized but dormant: no consumer requires
	// exponential smoothing yet, so the engine never schedules it
	RuleExpFalloffAverage
)

const (
	rateSuffix    = "-ps"
	averageSuffix = "-avg"

	movingAverageDepth = 32
)

// autoMetricRule names a source metric and the synthetic metric derived from it
type autoMetricRule struct {
	srcLabel string
	dstLabel string
	kind     RuleKind
	depth    int
	alpha    float64
}

// ruleForNewMetric decides, once per newly observed history-tracked metric,
// which derivation rule (if any) its shape triggers. Already-rate metrics are
// averaged instead of differentiated again, and averages are never re-averaged.
func ruleForNewMetric(metric core.Metric) (autoMetricRule, bool) {
	unit := metric.Unit()

	numeratorCountable := unit.Numerator != core.UnitNone && unit.Numerator != core.UnitSeconds
	if unit.Denominator != core.UnitSeconds && numeratorCountable {
		return autoMetricRule{
			srcLabel: metric.Label(),
			dstLabel: metric.Label() + rateSuffix,
			kind:     RuleTimeDifferentiate,
		}, true
	}

	if unit.Denominator == core.UnitSeconds && !strings.HasSuffix(metric.Label(), averageSuffix) {
		return autoMetricRule{
			srcLabel: metric.Label(),
			dstLabel: metric.Label() + averageSuffix,
			kind:     RuleMovingAverage,
			depth:    movingAverageDepth,
		}, true
	}

	return autoMetricRule{}, false
}

// metricFromTimeDiff builds the rate metric between the newest sample and an
// older baseline. The correction factor undoes the scaling baked into raw
// counters: bytes counters arrive kilo-scaled and bits counters mega-scaled.
func metricFromTimeDiff(first Sample, baseline Sample, srcUnit core.MetricUnit, dstLabel string) core.Metric {
	timeDiffSeconds := float64(first.TimestampMicro-baseline.TimestampMicro) * 1e-6
	valueDiff := first.Value.Float64() - baseline.Value.Float64()

	var magnitude core.OrderOfMagnitude
	switch srcUnit.Numerator {
	case core.UnitBytes:
		magnitude = core.MagnitudeKilo
	case core.UnitBits:
		magnitude = core.MagnitudeMega
	default:
		magnitude = core.MagnitudeOne
	}

	correctionFactor := 1 / magnitude.Factor()
	rate := int64((correctionFactor * valueDiff) / timeDiffSeconds)

	return core.NewMetric(
		dstLabel,
		core.NewMetricUnit(srcUnit.Numerator, core.UnitSeconds, magnitude),
		core.IntegerValue(rate),
	)
}
