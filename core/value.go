package core

import "strconv"

// ValueKind identifies the concrete type carried by a MetricValue
type ValueKind int

const (
	ValueEmpty ValueKind = iota
	ValueInteger
	ValueNumber
	ValueString
)

// MetricValue is a typed measurement value. The zero value is the empty value.
type MetricValue struct {
	kind    ValueKind
	integer int64
	number  float64
	text    string
}

// EmptyValue creates a value holding nothing
func EmptyValue() MetricValue {
	return MetricValue{kind: ValueEmpty}
}

// IntegerValue creates a value holding a signed integer
func IntegerValue(v int64) MetricValue {
	return MetricValue{kind: ValueInteger, integer: v}
}

// NumberValue creates a value holding a floating point number
func NumberValue(v float64) MetricValue {
	return MetricValue{kind: ValueNumber, number: v}
}

// StringValue creates a value holding free text
func StringValue(v string) MetricValue {
	return MetricValue{kind: ValueString, text: v}
}

// Kind returns the concrete type carried by this value
func (v MetricValue) Kind() ValueKind {
	return v.kind
}

// Integer returns the held integer, 0 for any other kind
func (v MetricValue) Integer() int64 {
	if v.kind != ValueInteger {
		return 0
	}

	return v.integer
}

// Number returns the held float, 0 for any other kind
func (v MetricValue) Number() float64 {
	if v.kind != ValueNumber {
		return 0
	}

	return v.number
}

// Text returns the held string, empty for any other kind
func (v MetricValue) Text() string {
	if v.kind != ValueString {
		return ""
	}

	return v.text
}

// Float64 coerces the value for arithmetic use: empty and string values
// never participate in derivations and coerce to 0
func (v MetricValue) Float64() float64 {
	switch v.kind {
	case ValueInteger:
		return float64(v.integer)
	case ValueNumber:
		return v.number
	default:
		return 0
	}
}

// IsNumeric returns true for integer and number values
func (v MetricValue) IsNumeric() bool {
	return v.kind == ValueInteger || v.kind == ValueNumber
}

// String returns the display form of the value
func (v MetricValue) String() string {
	switch v.kind {
	case ValueInteger:
		return strconv.FormatInt(v.integer, 10)
	case ValueNumber:
		return strconv.FormatFloat(v.number, 'f', -1, 64)
	case ValueString:
		return `"` + v.text + `"`
	default:
		return ""
	}
}
