// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gx21m15

import (
	"github.com/GermanBionicSystems/thermo/common"
	"periph.io/x/conn/v3/physic"
)

const (
	// The temperature register holds an 11 bit two's complement value with
	// 3 fractional bits.
	temperatureBits     uint = 11
	temperatureFracBits uint = 3

	// The hysteresis and over-shutdown registers hold a 9 bit two's
	// complement value with a single fractional bit.
	thresholdBits     uint = 9
	thresholdFracBits uint = 1
)

// DecodeTemperature converts the two bytes read from the temperature register
// to degrees Celsius. The resolution is 0.125°C.
func DecodeTemperature(msb, lsb byte) float64 {
	return common.DecodeFixed(uint16(msb)<<8|uint16(lsb), temperatureBits, temperatureFracBits)
}

// DecodeThreshold converts the two bytes read from the hysteresis or
// over-shutdown register to degrees Celsius. The resolution is 0.5°C.
func DecodeThreshold(msb, lsb byte) float64 {
	return common.DecodeFixed(uint16(msb)<<8|uint16(lsb), thresholdBits, thresholdFracBits)
}

// EncodeThreshold converts c degrees Celsius to the two bytes written to the
// hysteresis or over-shutdown register. The low 7 bits are always zero.
//
// The value is truncated toward zero, and any remaining fraction sets the
// 0.5°C bit: 25.25 and 25.9 are both written as 25.5. Pass multiples of 0.5
// to get back exactly what was written. Values outside -128..127.5 saturate.
func EncodeThreshold(c float64) [2]byte {
	w := common.EncodeFixed(c, thresholdBits, thresholdFracBits)
	return [2]byte{byte(w >> 8), byte(w)}
}

func celsiusToTemperature(c float64) physic.Temperature {
	return physic.ZeroCelsius + physic.Temperature(c*float64(physic.Celsius))
}
