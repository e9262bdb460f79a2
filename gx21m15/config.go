// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gx21m15

import "fmt"

// AlertMode selects how the OS output behaves when the temperature crosses
// the over-shutdown threshold.
type AlertMode byte

// AlertPolarity selects the active level of the OS output.
type AlertPolarity byte

// FaultQueue is the number of consecutive faults required before the OS
// output asserts.
type FaultQueue byte

const (
	// ModeComparator drives OS active while the temperature is above the
	// over-shutdown threshold, until it drops below the hysteresis threshold.
	ModeComparator AlertMode = 0
	// ModeInterrupt pulses OS active on each crossing. Reading any register
	// clears it.
	ModeInterrupt AlertMode = 1

	PolarityActiveLow  AlertPolarity = 0
	PolarityActiveHigh AlertPolarity = 1
)

const (
	FaultQueue1 FaultQueue = iota
	FaultQueue2
	FaultQueue4
	FaultQueue8
)

const (
	_SHUTDOWN_BIT    = 0
	_MODE_BIT        = 1
	_POLARITY_BIT    = 2
	_FAULT_QUEUE_POS = 3

	_FAULT_QUEUE_MASK byte = 0x03 << _FAULT_QUEUE_POS
)

// Len returns the number of consecutive faults the setting stands for.
func (q FaultQueue) Len() int {
	return 1 << (q & 0x03)
}

func (q FaultQueue) String() string {
	return fmt.Sprintf("%d", q.Len())
}

func (m AlertMode) String() string {
	if m == ModeInterrupt {
		return "interrupt"
	}
	return "comparator"
}

func (p AlertPolarity) String() string {
	if p == PolarityActiveHigh {
		return "active-high"
	}
	return "active-low"
}

// Config is the content of the configuration register.
//
// The zero value is the power on default: normal operation, comparator mode,
// OS active low and a fault queue of 1. Config is a value type; the With
// methods return a modified copy.
//
//	cfg := gx21m15.Config(0).WithAlertMode(gx21m15.ModeInterrupt).WithFaultQueue(gx21m15.FaultQueue4)
type Config byte

func (c Config) withBit(bit uint, on bool) Config {
	c &^= 1 << bit
	if on {
		c |= 1 << bit
	}
	return c
}

// WithShutdown returns c with the shutdown bit set or cleared. In shutdown
// the device stops converting but keeps its registers accessible.
func (c Config) WithShutdown(shutdown bool) Config {
	return c.withBit(_SHUTDOWN_BIT, shutdown)
}

// WithAlertMode returns c with the OS operation mode set to m.
func (c Config) WithAlertMode(m AlertMode) Config {
	return c.withBit(_MODE_BIT, m&0x01 != 0)
}

// WithPolarity returns c with the OS polarity set to p.
func (c Config) WithPolarity(p AlertPolarity) Config {
	return c.withBit(_POLARITY_BIT, p&0x01 != 0)
}

// WithFaultQueue returns c with the fault queue length set to q.
func (c Config) WithFaultQueue(q FaultQueue) Config {
	b := byte(c) &^ _FAULT_QUEUE_MASK
	b |= (byte(q) << _FAULT_QUEUE_POS) & _FAULT_QUEUE_MASK
	return Config(b)
}

// Shutdown reports whether the shutdown bit is set.
func (c Config) Shutdown() bool {
	return c&(1<<_SHUTDOWN_BIT) != 0
}

// AlertMode returns the OS operation mode.
func (c Config) AlertMode() AlertMode {
	return AlertMode((c >> _MODE_BIT) & 0x01)
}

// Polarity returns the OS output polarity.
func (c Config) Polarity() AlertPolarity {
	return AlertPolarity((c >> _POLARITY_BIT) & 0x01)
}

// FaultQueue returns the fault queue length. All four bit patterns are valid.
func (c Config) FaultQueue() FaultQueue {
	return FaultQueue((byte(c) & _FAULT_QUEUE_MASK) >> _FAULT_QUEUE_POS)
}

// Byte returns the raw register value.
func (c Config) Byte() byte {
	return byte(c)
}

func (c Config) String() string {
	return fmt.Sprintf("shutdown=%t mode=%s polarity=%s faultqueue=%s", c.Shutdown(), c.AlertMode(), c.Polarity(), c.FaultQueue())
}
