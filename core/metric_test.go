package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestMetricValueCoercion(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0.0, EmptyValue().Float64())
	assert.Equal(t, 12.0, IntegerValue(12).Float64())
	assert.Equal(t, 3.5, NumberValue(3.5).Float64())
	assert.Equal(t, 0.0, StringValue("37").Float64()) // strings never participate in arithmetic

	assert.False(t, EmptyValue().IsNumeric())
	assert.True(t, IntegerValue(0).IsNumeric())
	assert.True(t, NumberValue(0).IsNumeric())
	assert.False(t, StringValue("x").IsNumeric())
}

func TestMetricValueString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", EmptyValue().String())
	assert.Equal(t, "-42", IntegerValue(-42).String())
	assert.Equal(t, "1.25", NumberValue(1.25).String())
	assert.Equal(t, `"up"`, StringValue("up").String())
}

func TestOrderOfMagnitude(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1000.0, MagnitudeKilo.Factor())
	assert.Equal(t, 1e6, MagnitudeMega.Factor())
	assert.Equal(t, 1.0, MagnitudeOne.Factor())
	assert.Equal(t, -9, MagnitudeNano.Exponent())
	assert.Equal(t, "T", MagnitudeTera.Abbreviation())
	assert.Equal(t, "", MagnitudeOne.Abbreviation())

	m, err := ParseOrderOfMagnitude("M")
	assert.Nil(t, err)
	assert.Equal(t, MagnitudeMega, m)

	_, err = ParseOrderOfMagnitude("x")
	assert.ErrorIs(t, err, ErrInvalidOrderOfMagnitude)
}

func TestParseUnit(t *testing.T) {
	t.Parallel()

	t.Run("plain tokens", func(t *testing.T) {
		assert.Equal(t, NewMetricUnit(UnitPackets, UnitNone, MagnitudeOne), ParseUnit("pkts"))
		assert.Equal(t, NewMetricUnit(UnitBits, UnitNone, MagnitudeOne), ParseUnit("bits"))
		assert.Equal(t, NewMetricUnit(UnitBytes, UnitNone, MagnitudeOne), ParseUnit("bytes"))
		assert.Equal(t, NewMetricUnit(UnitSeconds, UnitNone, MagnitudeOne), ParseUnit("sec"))
	})
	t.Run("magnitude prefixes", func(t *testing.T) {
		assert.Equal(t, NewMetricUnit(UnitBits, UnitNone, MagnitudeMega), ParseUnit("Mbits"))
		assert.Equal(t, NewMetricUnit(UnitBytes, UnitNone, MagnitudeKilo), ParseUnit("kbytes"))
		assert.Equal(t, NewMetricUnit(UnitSeconds, UnitNone, MagnitudeMilli), ParseUnit("msec"))
	})
	t.Run("unrecognized text yields the neutral unit", func(t *testing.T) {
		assert.Equal(t, NeutralUnit(), ParseUnit(""))
		assert.Equal(t, NeutralUnit(), ParseUnit("furlongs"))
		assert.Equal(t, NeutralUnit(), ParseUnit("XYbits"))
	})
}

func TestMetricUnitString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "kbytes", NewMetricUnit(UnitBytes, UnitNone, MagnitudeKilo).String())
	assert.Equal(t, "Mbits/sec", NewMetricUnit(UnitBits, UnitSeconds, MagnitudeMega).String())
	assert.Equal(t, "pkts/sec", NewMetricUnit(UnitPackets, UnitSeconds, MagnitudeOne).String())
	assert.Equal(t, "", NeutralUnit().String())
}

func TestParseValue(t *testing.T) {
	t.Parallel()

	t.Run("integer", func(t *testing.T) {
		value, err := ParseValue(gjson.Parse(`{"type": "integer", "value": 123456}`))
		require.NoError(t, err)
		assert.Equal(t, IntegerValue(123456), value)
	})
	t.Run("number", func(t *testing.T) {
		value, err := ParseValue(gjson.Parse(`{"type": "number", "value": 1.5}`))
		require.NoError(t, err)
		assert.Equal(t, NumberValue(1.5), value)
	})
	t.Run("string", func(t *testing.T) {
		value, err := ParseValue(gjson.Parse(`{"type": "string", "value": "up"}`))
		require.NoError(t, err)
		assert.Equal(t, StringValue("up"), value)
	})
	t.Run("empty", func(t *testing.T) {
		value, err := ParseValue(gjson.Parse(`{"type": "empty"}`))
		require.NoError(t, err)
		assert.Equal(t, EmptyValue(), value)
	})
	t.Run("missing type field should error", func(t *testing.T) {
		_, err := ParseValue(gjson.Parse(`{"value": 1}`))
		assert.ErrorIs(t, err, ErrInvalidValue)
	})
	t.Run("unknown type should error", func(t *testing.T) {
		_, err := ParseValue(gjson.Parse(`{"type": "bool", "value": true}`))
		assert.ErrorIs(t, err, ErrInvalidValue)
	})
	t.Run("mismatched payload should error", func(t *testing.T) {
		_, err := ParseValue(gjson.Parse(`{"type": "integer", "value": "not a number"}`))
		assert.ErrorIs(t, err, ErrInvalidValue)
	})
}

func TestParseMetric(t *testing.T) {
	t.Parallel()

	t.Run("should work", func(t *testing.T) {
		entry := gjson.Parse(`{"label": "eth0-rx", "unit": "kbytes", "value": {"type": "integer", "value": 1000}}`)

		metric, err := ParseMetric(entry)
		require.NoError(t, err)
		assert.Equal(t, "eth0-rx", metric.Label())
		assert.Equal(t, NewMetricUnit(UnitBytes, UnitNone, MagnitudeKilo), metric.Unit())
		assert.Equal(t, IntegerValue(1000), metric.Value())
		assert.Equal(t, "eth0-rx: 1000 kbytes", metric.String())
	})
	t.Run("missing label should error", func(t *testing.T) {
		_, err := ParseMetric(gjson.Parse(`{"unit": "bits", "value": {"type": "integer", "value": 1}}`))
		assert.ErrorIs(t, err, ErrMissingLabel)
	})
	t.Run("bad value should error", func(t *testing.T) {
		_, err := ParseMetric(gjson.Parse(`{"label": "m", "unit": "bits", "value": {}}`))
		assert.ErrorIs(t, err, ErrInvalidValue)
	})
	t.Run("unknown unit is lenient", func(t *testing.T) {
		metric, err := ParseMetric(gjson.Parse(`{"label": "m", "unit": "bogons", "value": {"type": "empty"}}`))
		require.NoError(t, err)
		assert.Equal(t, NeutralUnit(), metric.Unit())
	})
}
