package core

import (
	"errors"
	"math"
)

// RawUnit is the physical quantity a metric counts
type RawUnit int

const (
	UnitNone RawUnit = iota
	UnitPackets
	UnitBits
	UnitBytes
	UnitSeconds
)

// String returns the compact token used in display and parsing
func (u RawUnit) String() string {
	switch u {
	case UnitPackets:
		return "pkts"
	case UnitBits:
		return "bits"
	case UnitBytes:
		return "bytes"
	case UnitSeconds:
		return "sec"
	default:
		return ""
	}
}

// OrderOfMagnitude is a decimal scaling applied to a unit
type OrderOfMagnitude int

const (
	MagnitudeNano OrderOfMagnitude = iota
	MagnitudeMicro
	MagnitudeMilli
	MagnitudeOne
	MagnitudeKilo
	MagnitudeMega
	MagnitudeGiga
	MagnitudeTera
)

// ErrInvalidOrderOfMagnitude signals that a magnitude abbreviation could not be recognized
var ErrInvalidOrderOfMagnitude = errors.New("invalid order of magnitude")

// Exponent returns the decimal exponent of the magnitude
func (m OrderOfMagnitude) Exponent() int {
	switch m {
	case MagnitudeNano:
		return -9
	case MagnitudeMicro:
		return -6
	case MagnitudeMilli:
		return -3
	case MagnitudeKilo:
		return 3
	case MagnitudeMega:
		return 6
	case MagnitudeGiga:
		return 9
	case MagnitudeTera:
		return 12
	default:
		return 0
	}
}

// Factor returns the scalar multiplier of the magnitude (10^exponent)
func (m OrderOfMagnitude) Factor() float64 {
	return math.Pow10(m.Exponent())
}

// Abbreviation returns the 1-character display prefix, empty for MagnitudeOne
func (m OrderOfMagnitude) Abbreviation() string {
	switch m {
	case MagnitudeNano:
		return "n"
	case MagnitudeMicro:
		return "u"
	case MagnitudeMilli:
		return "m"
	case MagnitudeKilo:
		return "k"
	case MagnitudeMega:
		return "M"
	case MagnitudeGiga:
		return "G"
	case MagnitudeTera:
		return "T"
	default:
		return ""
	}
}

// ParseOrderOfMagnitude converts a 1-character abbreviation into its magnitude
func ParseOrderOfMagnitude(abbr string) (OrderOfMagnitude, error) {
	switch abbr {
	case "n":
		return MagnitudeNano, nil
	case "u":
		return MagnitudeMicro, nil
	case "m":
		return MagnitudeMilli, nil
	case "k":
		return MagnitudeKilo, nil
	case "M":
		return MagnitudeMega, nil
	case "G":
		return MagnitudeGiga, nil
	case "T":
		return MagnitudeTera, nil
	default:
		return MagnitudeOne, ErrInvalidOrderOfMagnitude
	}
}

// MetricUnit expresses a measurement unit as a numerator/denominator pair of
// physical quantities plus a decimal order of magnitude
type MetricUnit struct {
	Numerator   RawUnit
	Denominator RawUnit
	Magnitude   OrderOfMagnitude
}

// NeutralUnit returns the unit used when nothing better is known
func NeutralUnit() MetricUnit {
	return MetricUnit{
		Numerator:   UnitNone,
		Denominator: UnitNone,
		Magnitude:   MagnitudeOne,
	}
}

// NewMetricUnit assembles a unit from its parts
func NewMetricUnit(numerator RawUnit, denominator RawUnit, magnitude OrderOfMagnitude) MetricUnit {
	return MetricUnit{
		Numerator:   numerator,
		Denominator: denominator,
		Magnitude:   magnitude,
	}
}

// String returns the canonical short display form: <abbrev><numerator>[/<denominator>]
func (u MetricUnit) String() string {
	if u.Denominator == UnitNone {
		return u.Magnitude.Abbreviation() + u.Numerator.String()
	}

	return u.Magnitude.Abbreviation() + u.Numerator.String() + "/" + u.Denominator.String()
}

// ParseUnit converts a compact unit token (such as "bytes", "Mbits", "pkts" or
// "sec", with an optional 1-character magnitude prefix) into a unit. Parsing is
// lenient: unrecognized text yields the neutral unit instead of an error so a
// single odd entry never fails a whole batch.
func ParseUnit(token string) MetricUnit {
	for offset := 0; offset < 2 && offset <= len(token); offset++ {
		prefix := token[:offset]
		remainder := token[offset:]

		magnitude, err := ParseOrderOfMagnitude(prefix)
		if err != nil {
			magnitude = MagnitudeOne
		}

		switch remainder {
		case "pkts":
			return NewMetricUnit(UnitPackets, UnitNone, magnitude)
		case "bits":
			return NewMetricUnit(UnitBits, UnitNone, magnitude)
		case "bytes":
			return NewMetricUnit(UnitBytes, UnitNone, magnitude)
		case "sec":
			return NewMetricUnit(UnitSeconds, UnitNone, magnitude)
		}
	}

	return NeutralUnit()
}
