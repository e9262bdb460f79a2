// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package common contains functions used across multiple packages. For
// example, decoding the left aligned two's complement temperature registers
// of LM75 style sensors.
package common

import "math"

// FixedStep returns the value in degrees of one least significant bit of a
// field with frac fractional bits.
func FixedStep(frac uint) float64 {
	return 1 / float64(uint16(1)<<frac)
}

// FixedRange returns the smallest and largest values a two's complement field
// of width bits, frac of them fractional, can hold.
func FixedRange(width, frac uint) (lo, hi float64) {
	half := int(1) << (width - 1)
	step := FixedStep(frac)
	return -float64(half) * step, float64(half-1) * step
}

// DecodeFixed interprets the width most significant bits of word as a two's
// complement fixed point number with frac fractional bits. The low 16-width
// bits of word are ignored.
//
// This is the layout used by LM75 style sensors, where the temperature
// register is left aligned in a big endian 16 bit word.
func DecodeFixed(word uint16, width, frac uint) float64 {
	mask := uint16(1)<<width - 1
	fracMask := uint16(1)<<frac - 1
	field := (word >> (16 - width)) & mask
	step := FixedStep(frac)

	if field&(1<<(width-1)) == 0 {
		return float64(field>>frac) + float64(field&fracMask)*step
	}
	// Negative: invert and add one over the field width to get the magnitude.
	mag := (^field + 1) & mask
	integer := float64(mag >> frac)
	fraction := float64(mag&fracMask) * step
	return -integer - fraction
}

// EncodeFixed is the inverse of DecodeFixed. The magnitude of c is truncated
// toward zero; any non-zero remainder sets the fractional bits to the step
// count rounded up, without carrying into the integer part. With a single
// fractional bit this means any remainder encodes as one half.
//
// Values outside FixedRange saturate. NaN encodes as zero.
func EncodeFixed(c float64, width, frac uint) uint16 {
	if math.IsNaN(c) {
		return 0
	}
	lo, hi := FixedRange(width, frac)
	if c < lo {
		c = lo
	} else if c > hi {
		c = hi
	}

	mask := uint16(1)<<width - 1
	steps := uint16(1) << frac
	integer, rem := math.Modf(math.Abs(c))

	var fraction uint16
	if rem != 0 {
		fraction = uint16(math.Ceil(rem * float64(steps)))
		if fraction >= steps {
			fraction = steps - 1
		}
	}
	field := uint16(integer)<<frac | fraction
	if c < 0 {
		field = ^field + 1
	}
	return (field & mask) << (16 - width)
}
