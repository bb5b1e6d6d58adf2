package core

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// ErrMissingLabel signals a metric entry without a usable label field
var ErrMissingLabel = errors.New("missing metric label")

// ErrInvalidValue signals a value object whose type tag is unknown or whose payload does not match it
var ErrInvalidValue = errors.New("invalid metric value")

// Metric is an immutable labeled, typed, unit-tagged measurement. The label is
// the global unique key.
type Metric struct {
	label string
	unit  MetricUnit
	value MetricValue
}

// NewMetric creates a metric value object
func NewMetric(label string, unit MetricUnit, value MetricValue) Metric {
	return Metric{
		label: label,
		unit:  unit,
		value: value,
	}
}

// Label returns the metric's unique label
func (m Metric) Label() string {
	return m.label
}

// Unit returns the metric's unit
func (m Metric) Unit() MetricUnit {
	return m.unit
}

// Value returns the metric's value
func (m Metric) Value() MetricValue {
	return m.value
}

// String returns the display form "<label>: <value> <unit>"
func (m Metric) String() string {
	return fmt.Sprintf("%s: %s %s", m.label, m.value.String(), m.unit.String())
}

// MetricBatch is one timestamped set of metrics delivered together by a producer
type MetricBatch struct {
	Source         string
	TimestampMicro uint64
	Metrics        []Metric
}

// NewMetricBatch assembles a batch
func NewMetricBatch(source string, timestampMicro uint64, metrics []Metric) *MetricBatch {
	return &MetricBatch{
		Source:         source,
		TimestampMicro: timestampMicro,
		Metrics:        metrics,
	}
}

// ParseValue converts the tagged JSON representation {"type": ..., "value": ...}
// into a typed metric value
func ParseValue(obj gjson.Result) (MetricValue, error) {
	typeField := obj.Get("type")
	if typeField.Type != gjson.String {
		return EmptyValue(), fmt.Errorf("%w: type field is missing or has wrong type", ErrInvalidValue)
	}

	valueField := obj.Get("value")

	switch typeField.String() {
	case "empty":
		return EmptyValue(), nil
	case "string":
		if valueField.Type != gjson.String {
			return EmptyValue(), fmt.Errorf("%w: could not convert value to string", ErrInvalidValue)
		}

		return StringValue(valueField.String()), nil
	case "integer":
		if valueField.Type != gjson.Number {
			return EmptyValue(), fmt.Errorf("%w: could not convert value to integer", ErrInvalidValue)
		}

		return IntegerValue(valueField.Int()), nil
	case "number":
		if valueField.Type != gjson.Number {
			return EmptyValue(), fmt.Errorf("%w: could not convert value to number", ErrInvalidValue)
		}

		return NumberValue(valueField.Float()), nil
	default:
		return EmptyValue(), fmt.Errorf("%w: unknown type %q", ErrInvalidValue, typeField.String())
	}
}

// ParseMetric converts one JSON entry {"label": ..., "unit": ..., "value": {...}}
// into a metric. The unit is parsed leniently, label and value are not.
func ParseMetric(obj gjson.Result) (Metric, error) {
	labelField := obj.Get("label")
	if labelField.Type != gjson.String || len(labelField.String()) == 0 {
		return Metric{}, ErrMissingLabel
	}

	value, err := ParseValue(obj.Get("value"))
	if err != nil {
		return Metric{}, err
	}

	return NewMetric(labelField.String(), ParseUnit(obj.Get("unit").String()), value), nil
}
