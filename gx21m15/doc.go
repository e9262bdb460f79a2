// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package gx21m15 provides a driver for the GX21M15 I²C digital temperature
// sensor and thermal watchdog. The device is register compatible with the
// LM75.
//
// Range: -55°C - 125°C
//
// Resolution: 0.125°C (temperature), 0.5°C (hysteresis and over-shutdown
// thresholds)
//
// # Registers
//
//	0x00 Temperature     2 bytes  read-only   11 bit, left aligned
//	0x01 Configuration   1 byte   read/write
//	0x02 Hysteresis      2 bytes  read/write  9 bit, left aligned
//	0x03 Over-shutdown   2 bytes  read/write  9 bit, left aligned
//
// The OS (alert) pin itself is not handled by this package. Connect it to a
// GPIO with edge detection if you need it.
//
// A command line tool is available in cmd/gx21m15.
package gx21m15
