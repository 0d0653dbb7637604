// Package fixed provides the signed fixed-point representations used by
// the Jaguar setpoint and PID gain wire formats, plus the small numeric
// helpers shared across the regulator, command, and message layers.
package fixed

import (
	"golang.org/x/exp/constraints"
)

// Q8_8 is an 8.8 signed fixed-point value (amperes for current setpoints).
type Q8_8 int16

// Q8_8FromFloat converts a float to Q8.8, truncating toward zero.
func Q8_8FromFloat(f float32) Q8_8 {
	return Q8_8(f * 256)
}

// Float returns the value as a float32.
func (q Q8_8) Float() float32 {
	return float32(q) / 256
}

// Q16_16 is a 16.16 signed fixed-point value (revolutions, rev/s, or a PID
// gain).
type Q16_16 int32

// Q16_16FromFloat converts a float to Q16.16, truncating toward zero.
func Q16_16FromFloat(f float64) Q16_16 {
	return Q16_16(f * 65536)
}

// Float returns the value as a float64.
func (q Q16_16) Float() float64 {
	return float64(q) / 65536
}

// Mul multiplies two Q16.16 values, keeping Q16.16 scale.
func (q Q16_16) Mul(o Q16_16) Q16_16 {
	return Q16_16((int64(q) * int64(o)) >> 16)
}

// Clamp constrains v to [lo, hi].
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Sign returns -1, 0, or 1.
func Sign[T constraints.Signed](v T) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// Abs16 returns the absolute value of a signed 16-bit duty/setpoint,
// saturating at MaxInt16 for MinInt16 (whose magnitude has no positive
// int16 representation).
func Abs16(v int16) int16 {
	if v == -32768 {
		return 32767
	}
	if v < 0 {
		return -v
	}
	return v
}

// RampToward advances actual by at most rate toward target, in either
// direction, without overshoot. rate must be non-negative.
func RampToward(actual, target, rate int32) int32 {
	if actual == target {
		return actual
	}
	delta := target - actual
	if delta > 0 {
		if delta > rate {
			return actual + rate
		}
		return target
	}
	if -delta > rate {
		return actual - rate
	}
	return target
}
