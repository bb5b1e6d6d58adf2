package aggregator

import (
	"errors"

	"github.com/iulianpascalau/netgazer/core"
	logger "github.com/multiversx/mx-chain-logger-go"
)

var log = logger.GetOrCreate("aggregator")

const (
	// DefaultMaxHistory is the number of samples retained per history-tracked metric
	DefaultMaxHistory = 1024
	// DefaultRateWindowMicros is the minimum time spread required between two
	// samples before a rate is derived from them
	DefaultRateWindowMicros = 250000
)

// ErrInvalidMaxHistory signals a non-positive history capacity
var ErrInvalidMaxHistory = errors.New("max history must be positive")

// ErrInvalidRateWindow signals a zero rate window
var ErrInvalidRateWindow = errors.New("rate window must be positive")

// HistoryPoint is one plottable history sample
type HistoryPoint struct {
	TimestampSeconds float64
	Value            float64
}

// metricEntry is the stored record for one label. history is nil for metrics
// whose unit shape is not worth rate-tracking; the decision is made once, at
// first observation, and never changes.
type metricEntry struct {
	current     core.Metric
	history     *sampleRing
	parentLabel string
}

// MetricAggregator ingests timestamped metric batches, keeps a bounded
// per-metric history and synthesizes derived metrics through its auto rule
// list. It is not safe for concurrent use: synchronization is the caller's
// responsibility.
type MetricAggregator struct {
	metrics          map[string]*metricEntry
	lastTimestamp    uint64
	rules            []autoMetricRule
	maxHistory       int
	rateWindowMicros uint64
}

// NewMetricAggregator creates an empty aggregator
func NewMetricAggregator(maxHistory int, rateWindowMicros uint64) (*MetricAggregator, error) {
	if maxHistory <= 0 {
		return nil, ErrInvalidMaxHistory
	}
	if rateWindowMicros == 0 {
		return nil, ErrInvalidRateWindow
	}

	return &MetricAggregator{
		metrics:          make(map[string]*metricEntry),
		maxHistory:       maxHistory,
		rateWindowMicros: rateWindowMicros,
	}, nil
}

// HandleMetrics applies one producer batch: it records the batch timestamp,
// upserts every metric and then runs a single full pass of the auto rule list.
// Metrics generated by rules re-enter the same upsert path, so they can gate
// rules of their own on later batches.
func (a *MetricAggregator) HandleMetrics(timestampMicro uint64, metrics []core.Metric) {
	a.lastTimestamp = timestampMicro

	for _, metric := range metrics {
		a.upsert(metric, "")
	}

	a.runAutoRules()
}

func (a *MetricAggregator) upsert(metric core.Metric, parentLabel string) {
	entry, found := a.metrics[metric.Label()]
	if found {
		entry.current = metric
		if entry.history != nil {
			entry.history.push(Sample{
				TimestampMicro: a.lastTimestamp,
				Value:          metric.Value(),
			})
		}

		return
	}

	entry = &metricEntry{
		current:     metric,
		parentLabel: parentLabel,
	}

	if shouldTrackHistory(metric.Unit()) {
		entry.history = newSampleRing(a.maxHistory)
		entry.history.push(Sample{
			TimestampMicro: a.lastTimestamp,
			Value:          metric.Value(),
		})

		if metric.Value().IsNumeric() {
			rule, ok := ruleForNewMetric(metric)
			if ok {
				log.Trace("created auto metric rule",
					"source", rule.srcLabel, "destination", rule.dstLabel, "kind", rule.kind)

				a.rules = append(a.rules, rule)
			}
		}
	}

	a.metrics[metric.Label()] = entry
}

// shouldTrackHistory keeps history only for countable quantities: those are
// the ones worth rate-tracking
func shouldTrackHistory(unit core.MetricUnit) bool {
	switch unit.Numerator {
	case core.UnitBytes, core.UnitBits, core.UnitPackets, core.UnitNone:
		return true
	default:
		return false
	}
}

// runAutoRules evaluates the rule list in creation order against the current
// store state, single pass, no fixpoint. Rules appended during the pass (by
// generated metrics creating new entries) first run on the next batch.
func (a *MetricAggregator) runAutoRules() {
	numRules := len(a.rules)

	for i := 0; i < numRules; i++ {
		rule := a.rules[i]

		entry, found := a.metrics[rule.srcLabel]
		if !found || entry.history == nil {
			continue
		}

		var generated core.Metric
		var hasGenerated bool

		switch rule.kind {
		case RuleTimeDifferentiate:
			generated, hasGenerated = a.runTimeDifferentiate(rule, entry)
		case RuleMovingAverage:
			generated, hasGenerated = a.runMovingAverage(rule, entry)
		default:
			// RuleExpFalloffAverage stays dormant
		}

		if hasGenerated {
			a.upsert(generated, rule.srcLabel)
		}
	}
}

// runTimeDifferentiate scans the history from the newest sample backwards and
// differentiates against the oldest sample whose distance to the newest one
// meets the rate window, i.e. the widest available window, not the narrowest.
func (a *MetricAggregator) runTimeDifferentiate(rule autoMetricRule, entry *metricEntry) (core.Metric, bool) {
	history := entry.history
	if history.len() < 2 {
		return core.Metric{}, false
	}

	first := history.at(0)

	var baseline Sample
	var found bool
	for i := 1; i < history.len(); i++ {
		candidate := history.at(i)

		if first.TimestampMicro-candidate.TimestampMicro >= a.rateWindowMicros {
			baseline = candidate
			found = true
		}
	}

	if !found {
		return core.Metric{}, false
	}

	return metricFromTimeDiff(first, baseline, entry.current.Unit(), rule.dstLabel), true
}

// runMovingAverage averages up to depth most recent samples, keeping the
// source's unit unchanged
func (a *MetricAggregator) runMovingAverage(rule autoMetricRule, entry *metricEntry) (core.Metric, bool) {
	history := entry.history
	if history.len() == 0 {
		return core.Metric{}, false
	}

	window := rule.depth
	if history.len() < window {
		window = history.len()
	}

	sum := 0.0
	for i := 0; i < window; i++ {
		sum += history.at(i).Value.Float64()
	}

	return core.NewMetric(
		rule.dstLabel,
		entry.current.Unit(),
		core.NumberValue(sum/float64(window)),
	), true
}

// GetMetric returns the current value of a label
func (a *MetricAggregator) GetMetric(label string) (core.Metric, bool) {
	entry, found := a.metrics[label]
	if !found {
		return core.Metric{}, false
	}

	return entry.current, true
}

// ParentLabel returns the label of the metric this one was derived from,
// empty for originally ingested metrics
func (a *MetricAggregator) ParentLabel(label string) (string, bool) {
	entry, found := a.metrics[label]
	if !found {
		return "", false
	}

	return entry.parentLabel, true
}

// GetHistory returns up to maxLen most recent samples ordered oldest to
// newest, with timestamps converted to seconds, plus the minimum and maximum
// value across the entire retained history so callers can keep a stable axis
// while paging a shorter window. Only history-tracked metrics whose current
// value is numeric are exposed.
func (a *MetricAggregator) GetHistory(label string, maxLen int) ([]HistoryPoint, float64, float64, bool) {
	entry, found := a.metrics[label]
	if !found || entry.history == nil || !entry.current.Value().IsNumeric() {
		return nil, 0, 0, false
	}

	history := entry.history
	if history.len() == 0 || maxLen <= 0 {
		return nil, 0, 0, false
	}

	count := maxLen
	if history.len() < count {
		count = history.len()
	}

	points := make([]HistoryPoint, 0, count)
	for i := count - 1; i >= 0; i-- {
		sample := history.at(i)
		points = append(points, HistoryPoint{
			TimestampSeconds: float64(sample.TimestampMicro) / 1e6,
			Value:            sample.Value.Float64(),
		})
	}

	minValue := history.at(0).Value.Float64()
	maxValue := minValue
	for i := 1; i < history.len(); i++ {
		v := history.at(i).Value.Float64()
		if v < minValue {
			minValue = v
		}
		if v > maxValue {
			maxValue = v
		}
	}

	return points, minValue, maxValue, true
}

// WalkMetrics invokes the handler with the current value of every known
// metric, in unspecified order
func (a *MetricAggregator) WalkMetrics(handler func(metric core.Metric)) {
	for _, entry := range a.metrics {
		handler(entry.current)
	}
}

// Snapshot returns the current value of every known metric, in unspecified order
func (a *MetricAggregator) Snapshot() []core.Metric {
	snapshot := make([]core.Metric, 0, len(a.metrics))
	for _, entry := range a.metrics {
		snapshot = append(snapshot, entry.current)
	}

	return snapshot
}

// LastTimestamp returns the timestamp of the most recently ingested batch, in microseconds
func (a *MetricAggregator) LastTimestamp() uint64 {
	return a.lastTimestamp
}
