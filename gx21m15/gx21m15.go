// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gx21m15

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

const (
	// DefaultAddress is the bus address with A2, A1 and A0 tied to ground.
	// The device answers on 0x48 - 0x4f.
	DefaultAddress i2c.Addr = 0x48

	// Addresses of registers to read/write.
	_REGISTER_TEMPERATURE   byte = 0x00
	_REGISTER_CONFIGURATION byte = 0x01
	_REGISTER_HYSTERESIS    byte = 0x02
	_REGISTER_OVER_SHUTDOWN byte = 0x03

	_DEGREES_RESOLUTION physic.Temperature = 125 * physic.MilliKelvin

	// A conversion takes up to 100ms. Sampling faster returns the same value.
	minSampleInterval = 100 * time.Millisecond

	// The minimum temperature the device can measure.
	MinimumTemperature physic.Temperature = physic.ZeroCelsius - 55*physic.Kelvin
	// The maximum temperature the device can measure.
	MaximumTemperature physic.Temperature = physic.ZeroCelsius + 125*physic.Kelvin
)

var (
	errInvalidInterval = errors.New("gx21m15: invalid duration. minimum 100ms")
	errSensing         = errors.New("gx21m15: already sensing continuously")
)

// Opts holds register values written by NewI2C.
//
// A nil field leaves the register as the device has it.
type Opts struct {
	Config       *Config
	Hysteresis   *physic.Temperature
	OverShutdown *physic.Temperature
}

// Dev represents a GX21M15 sensor.
//
// Each register accessor is a single bus transaction. Errors from the bus are
// returned unchanged.
type Dev struct {
	d  *i2c.Dev
	mu sync.Mutex

	stop chan struct{}
	wg   sync.WaitGroup
}

// New returns a GX21M15 sensor on the specified bus and address. It doesn't
// communicate with the device.
func New(bus i2c.Bus, addr i2c.Addr) (*Dev, error) {
	return &Dev{d: &i2c.Dev{Bus: bus, Addr: uint16(addr)}}, nil
}

// NewI2C returns a GX21M15 sensor and writes the registers set in opts, in
// the order configuration, hysteresis, over-shutdown. If opts is nil the
// device is left untouched.
func NewI2C(bus i2c.Bus, addr i2c.Addr, opts *Opts) (*Dev, error) {
	dev, err := New(bus, addr)
	if err != nil {
		return nil, err
	}
	if opts == nil {
		return dev, nil
	}
	if opts.Config != nil {
		if err := dev.SetConfig(*opts.Config); err != nil {
			return nil, err
		}
	}
	if opts.Hysteresis != nil {
		if err := dev.SetHysteresis(*opts.Hysteresis); err != nil {
			return nil, err
		}
	}
	if opts.OverShutdown != nil {
		if err := dev.SetOverShutdown(*opts.OverShutdown); err != nil {
			return nil, err
		}
	}
	return dev, nil
}

// readRegister selects reg and reads len(r) bytes back in one transaction.
func (dev *Dev) readRegister(reg byte, r []byte) error {
	return dev.d.Tx([]byte{reg}, r)
}

// writeRegister writes reg followed by payload in one transaction.
func (dev *Dev) writeRegister(reg byte, payload ...byte) error {
	w := make([]byte, 1, 1+len(payload))
	w[0] = reg
	w = append(w, payload...)
	return dev.d.Tx(w, nil)
}

func (dev *Dev) readThreshold(reg byte) (physic.Temperature, error) {
	var r [2]byte
	if err := dev.readRegister(reg, r[:]); err != nil {
		return 0, err
	}
	return celsiusToTemperature(DecodeThreshold(r[0], r[1])), nil
}

func (dev *Dev) writeThreshold(reg byte, t physic.Temperature) error {
	b := EncodeThreshold(t.Celsius())
	return dev.writeRegister(reg, b[0], b[1])
}

func (dev *Dev) readTemperature() (physic.Temperature, error) {
	var r [2]byte
	if err := dev.readRegister(_REGISTER_TEMPERATURE, r[:]); err != nil {
		return 0, err
	}
	return celsiusToTemperature(DecodeTemperature(r[0], r[1])), nil
}

// Temperature returns the last converted temperature.
func (dev *Dev) Temperature() (physic.Temperature, error) {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.readTemperature()
}

// Config reads the configuration register.
func (dev *Dev) Config() (Config, error) {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	var r [1]byte
	if err := dev.readRegister(_REGISTER_CONFIGURATION, r[:]); err != nil {
		return 0, err
	}
	return Config(r[0]), nil
}

// SetConfig writes the configuration register.
func (dev *Dev) SetConfig(c Config) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.writeRegister(_REGISTER_CONFIGURATION, c.Byte())
}

// Hysteresis returns the temperature below which the OS output is released.
func (dev *Dev) Hysteresis() (physic.Temperature, error) {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.readThreshold(_REGISTER_HYSTERESIS)
}

// SetHysteresis writes the hysteresis threshold. The register has a 0.5°C
// resolution, see EncodeThreshold.
func (dev *Dev) SetHysteresis(t physic.Temperature) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.writeThreshold(_REGISTER_HYSTERESIS, t)
}

// OverShutdown returns the temperature above which the OS output asserts.
func (dev *Dev) OverShutdown() (physic.Temperature, error) {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.readThreshold(_REGISTER_OVER_SHUTDOWN)
}

// SetOverShutdown writes the over-shutdown threshold. The register has a
// 0.5°C resolution, see EncodeThreshold.
func (dev *Dev) SetOverShutdown(t physic.Temperature) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.writeThreshold(_REGISTER_OVER_SHUTDOWN, t)
}

// Sense reads the temperature from the device and writes the value to the
// specified env variable. Implements physic.SenseEnv.
func (dev *Dev) Sense(env *physic.Env) error {
	t, err := dev.Temperature()
	if err == nil {
		env.Temperature = t
	}
	return err
}

// SenseContinuous returns measurements on a continuous basis. Implements
// physic.SenseEnv.
//
// The channel is closed when Halt() is called or a read fails. After a read
// failure SenseContinuous may be called again.
func (dev *Dev) SenseContinuous(interval time.Duration) (<-chan physic.Env, error) {
	if interval < minSampleInterval {
		return nil, errInvalidInterval
	}
	dev.mu.Lock()
	defer dev.mu.Unlock()
	if dev.stop != nil {
		return nil, errSensing
	}

	sensing := make(chan physic.Env)
	dev.stop = make(chan struct{})
	dev.wg.Add(1)
	go func(stop chan struct{}) {
		defer dev.wg.Done()
		defer close(sensing)
		dev.sensingContinuous(interval, sensing, stop)
		// The loop also ends on a read error, with nobody calling Halt.
		// Release the slot unless Halt or a new start already did.
		dev.mu.Lock()
		if dev.stop == stop {
			dev.stop = nil
		}
		dev.mu.Unlock()
	}(dev.stop)
	return sensing, nil
}

func (dev *Dev) sensingContinuous(interval time.Duration, sensing chan<- physic.Env, stop <-chan struct{}) {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		e := physic.Env{}
		if err := dev.Sense(&e); err != nil {
			return
		}
		select {
		case sensing <- e:
		case <-stop:
			return
		}
		select {
		case <-stop:
			return
		case <-t.C:
		}
	}
}

// Precision returns the resolution of the temperature register, 0.125°C.
func (dev *Dev) Precision(env *physic.Env) {
	env.Temperature = _DEGREES_RESOLUTION
	env.Pressure = 0
	env.Humidity = 0
}

// Halt stops a SenseContinuous operation in progress. It doesn't put the
// device in shutdown, use SetConfig for that. Implements conn.Resource.
func (dev *Dev) Halt() error {
	dev.mu.Lock()
	stop := dev.stop
	dev.stop = nil
	dev.mu.Unlock()
	if stop != nil {
		close(stop)
		dev.wg.Wait()
	}
	return nil
}

func (dev *Dev) String() string {
	return fmt.Sprintf("gx21m15: %s", dev.d.String())
}

var _ conn.Resource = &Dev{}
var _ physic.SenseEnv = &Dev{}
