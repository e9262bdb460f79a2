// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gx21m15

import (
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/i2c/i2ctest"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

const addr uint16 = uint16(DefaultAddress)

var errBus = errors.New("bus: remote I/O error")

// liveDevice is set when the register tests run against real hardware. Set the
// GX21M15 environment variable to enable it.
var liveDevice bool
var liveBus i2c.Bus

func init() {
	liveDevice = os.Getenv("GX21M15") != ""
	if !liveDevice {
		return
	}
	if _, err := host.Init(); err != nil {
		fmt.Println(err)
	}
	bus, err := i2creg.Open("")
	if err != nil {
		fmt.Println(err)
		liveDevice = false
		return
	}
	// Add the recorder to dump the data stream when we're using a live device.
	liveBus = &i2ctest.Record{Bus: bus}
}

// failBus fails every transaction with errBus.
type failBus struct{}

func (failBus) String() string                    { return "failBus" }
func (failBus) Tx(addr uint16, w, r []byte) error { return errBus }
func (failBus) SetSpeed(f physic.Frequency) error { return nil }

func newPlayback(t *testing.T, ops []i2ctest.IO) (*Dev, *i2ctest.Playback) {
	pb := &i2ctest.Playback{Ops: ops, DontPanic: true}
	dev, err := New(pb, DefaultAddress)
	if err != nil {
		t.Fatal(err)
	}
	return dev, pb
}

// getDev returns a device on the live bus if there is one, otherwise on a
// Playback of playbackOps. At the end of the test the playback is checked for
// unused operations, or the recorded live traffic is logged.
func getDev(t *testing.T, playbackOps []i2ctest.IO) *Dev {
	if liveDevice {
		recorder := liveBus.(*i2ctest.Record)
		// Clear the operations buffer.
		recorder.Ops = make([]i2ctest.IO, 0, 16)
		t.Cleanup(func() { t.Logf("%#v", recorder.Ops) })
		dev, err := New(liveBus, DefaultAddress)
		if err != nil {
			t.Fatal(err)
		}
		return dev
	}
	dev, pb := newPlayback(t, playbackOps)
	t.Cleanup(func() {
		if err := pb.Close(); err != nil {
			t.Error(err)
		}
	})
	return dev
}

func TestTemperature(t *testing.T) {
	if liveDevice {
		temp, err := getDev(t, nil).Temperature()
		if err != nil {
			t.Fatal(err)
		}
		if temp < MinimumTemperature || temp > MaximumTemperature {
			t.Errorf("Temperature() %s out of the device range", temp)
		}
		return
	}
	tests := []struct {
		bits     []byte
		expected physic.Temperature
	}{
		{[]byte{0x7f, 0x00}, physic.ZeroCelsius + 127*physic.Kelvin},
		{[]byte{0x19, 0x00}, physic.ZeroCelsius + 25*physic.Kelvin},
		{[]byte{0x19, 0x20}, physic.ZeroCelsius + 25*physic.Kelvin + 125*physic.MilliKelvin},
		{[]byte{0x00, 0x00}, physic.ZeroCelsius},
		{[]byte{0xff, 0xe0}, physic.ZeroCelsius - 125*physic.MilliKelvin},
		{[]byte{0xe7, 0x00}, physic.ZeroCelsius - 25*physic.Kelvin},
		{[]byte{0xc9, 0x00}, physic.ZeroCelsius - 55*physic.Kelvin},
	}
	ops := make([]i2ctest.IO, 0, len(tests))
	for _, test := range tests {
		ops = append(ops, i2ctest.IO{Addr: addr, W: []byte{_REGISTER_TEMPERATURE}, R: test.bits})
	}
	dev := getDev(t, ops)
	for _, test := range tests {
		temp, err := dev.Temperature()
		if err != nil {
			t.Fatal(err)
		}
		if temp != test.expected {
			t.Errorf("Temperature() bits %#v expected %s received %s", test.bits, test.expected, temp)
		}
	}
}

func TestConfigRegister(t *testing.T) {
	dev := getDev(t, []i2ctest.IO{
		{Addr: addr, W: []byte{_REGISTER_CONFIGURATION}, R: []byte{0x12}},
		{Addr: addr, W: []byte{_REGISTER_CONFIGURATION, 0x13}},
		{Addr: addr, W: []byte{_REGISTER_CONFIGURATION}, R: []byte{0x13}},
		{Addr: addr, W: []byte{_REGISTER_CONFIGURATION, 0x12}},
	})
	c, err := dev.Config()
	if err != nil {
		t.Fatal(err)
	}
	if !liveDevice && (c.AlertMode() != ModeInterrupt || c.FaultQueue() != FaultQueue4 || c.Shutdown() || c.Polarity() != PolarityActiveLow) {
		t.Errorf("unexpected config read %s", c)
	}
	if err := dev.SetConfig(c.WithShutdown(true)); err != nil {
		t.Fatal(err)
	}
	if res, err := dev.Config(); err != nil || res != c.WithShutdown(true) {
		t.Errorf("Config() expected %s received %s, err=%v", c.WithShutdown(true), res, err)
	}
	// Put back what the device had.
	if err := dev.SetConfig(c); err != nil {
		t.Error(err)
	}
}

func TestThresholdRegisters(t *testing.T) {
	hyst := physic.ZeroCelsius + 75*physic.Kelvin
	overShutdown := physic.ZeroCelsius + 80*physic.Kelvin + 500*physic.MilliKelvin
	negative := physic.ZeroCelsius - 25*physic.Kelvin
	dev := getDev(t, []i2ctest.IO{
		{Addr: addr, W: []byte{_REGISTER_HYSTERESIS}, R: []byte{0x4b, 0x00}},
		{Addr: addr, W: []byte{_REGISTER_OVER_SHUTDOWN}, R: []byte{0x50, 0x00}},
		{Addr: addr, W: []byte{_REGISTER_HYSTERESIS, 0x4b, 0x00}},
		{Addr: addr, W: []byte{_REGISTER_OVER_SHUTDOWN, 0x50, 0x80}},
		{Addr: addr, W: []byte{_REGISTER_HYSTERESIS}, R: []byte{0x4b, 0x00}},
		{Addr: addr, W: []byte{_REGISTER_OVER_SHUTDOWN}, R: []byte{0x50, 0x80}},
		{Addr: addr, W: []byte{_REGISTER_HYSTERESIS, 0xe7, 0x00}},
		{Addr: addr, W: []byte{_REGISTER_HYSTERESIS}, R: []byte{0xe7, 0x00}},
		{Addr: addr, W: []byte{_REGISTER_HYSTERESIS, 0x4b, 0x00}},
		{Addr: addr, W: []byte{_REGISTER_OVER_SHUTDOWN, 0x50, 0x00}},
	})
	origHyst, err := dev.Hysteresis()
	if err != nil {
		t.Fatal(err)
	}
	origOverShutdown, err := dev.OverShutdown()
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		if err := dev.SetHysteresis(origHyst); err != nil {
			t.Error(err)
		}
		if err := dev.SetOverShutdown(origOverShutdown); err != nil {
			t.Error(err)
		}
	}()

	if err := dev.SetHysteresis(hyst); err != nil {
		t.Fatal(err)
	}
	if err := dev.SetOverShutdown(overShutdown); err != nil {
		t.Fatal(err)
	}
	if res, err := dev.Hysteresis(); err != nil || res != hyst {
		t.Errorf("Hysteresis() expected %s received %s, err=%v", hyst, res, err)
	}
	if res, err := dev.OverShutdown(); err != nil || res != overShutdown {
		t.Errorf("OverShutdown() expected %s received %s, err=%v", overShutdown, res, err)
	}
	if err := dev.SetHysteresis(negative); err != nil {
		t.Fatal(err)
	}
	if res, err := dev.Hysteresis(); err != nil || res != negative {
		t.Errorf("Hysteresis() expected %s received %s, err=%v", negative, res, err)
	}
}

func TestNewI2C(t *testing.T) {
	cfg := Config(0).WithPolarity(PolarityActiveHigh).WithFaultQueue(FaultQueue2)
	hyst := physic.ZeroCelsius + 70*physic.Kelvin
	overShutdown := physic.ZeroCelsius + 75*physic.Kelvin
	record := &i2ctest.Record{}
	dev, err := NewI2C(record, DefaultAddress, &Opts{Config: &cfg, Hysteresis: &hyst, OverShutdown: &overShutdown})
	if err != nil {
		t.Fatal(err)
	}
	expected := []i2ctest.IO{
		{Addr: addr, W: []byte{_REGISTER_CONFIGURATION, 0x0c}},
		{Addr: addr, W: []byte{_REGISTER_HYSTERESIS, 0x46, 0x00}},
		{Addr: addr, W: []byte{_REGISTER_OVER_SHUTDOWN, 0x4b, 0x00}},
	}
	if diff := cmp.Diff(expected, record.Ops); diff != "" {
		t.Errorf("NewI2C() transactions mismatch (-want +got):\n%s", diff)
	}

	record.Ops = nil
	if _, err = NewI2C(record, DefaultAddress, nil); err != nil {
		t.Error(err)
	}
	if len(record.Ops) != 0 {
		t.Errorf("NewI2C(nil opts) wrote to the device: %#v", record.Ops)
	}
	if len(dev.String()) == 0 {
		t.Error("invalid String() result")
	}
}

func TestTransportErrors(t *testing.T) {
	dev, err := New(failBus{}, DefaultAddress)
	if err != nil {
		t.Fatal(err)
	}
	errs := map[string]error{}
	_, errs["Temperature"] = dev.Temperature()
	_, errs["Config"] = dev.Config()
	errs["SetConfig"] = dev.SetConfig(0)
	_, errs["Hysteresis"] = dev.Hysteresis()
	errs["SetHysteresis"] = dev.SetHysteresis(physic.ZeroCelsius)
	_, errs["OverShutdown"] = dev.OverShutdown()
	errs["SetOverShutdown"] = dev.SetOverShutdown(physic.ZeroCelsius)
	errs["Sense"] = dev.Sense(&physic.Env{})
	for name, err := range errs {
		if err != errBus {
			t.Errorf("%s() expected bus error returned unchanged, received %v", name, err)
		}
	}

	overShutdown := physic.ZeroCelsius
	if _, err := NewI2C(failBus{}, DefaultAddress, &Opts{OverShutdown: &overShutdown}); err != errBus {
		t.Errorf("NewI2C() expected bus error, received %v", err)
	}
}

func TestSense(t *testing.T) {
	dev, pb := newPlayback(t, []i2ctest.IO{
		{Addr: addr, W: []byte{_REGISTER_TEMPERATURE}, R: []byte{0x19, 0x80}},
	})
	env := physic.Env{Humidity: 5 * physic.PercentRH}
	if err := dev.Sense(&env); err != nil {
		t.Fatal(err)
	}
	expected := physic.ZeroCelsius + 25*physic.Kelvin + 500*physic.MilliKelvin
	if env.Temperature != expected {
		t.Errorf("Sense() expected %s received %s", expected, env.Temperature)
	}
	if env.Humidity != 5*physic.PercentRH {
		t.Error("Sense() modified humidity")
	}
	if err := pb.Close(); err != nil {
		t.Error(err)
	}
}

func TestPrecision(t *testing.T) {
	dev := Dev{}
	env := physic.Env{}
	dev.Precision(&env)
	if env.Temperature != 125*physic.MilliKelvin {
		t.Errorf("incorrect temperature precision value got %d expected %d", env.Temperature, 125*physic.MilliKelvin)
	}
	if env.Pressure != 0 || env.Humidity != 0 {
		t.Error("this device only measures temperature")
	}
}

func TestSenseContinuous(t *testing.T) {
	readings := [][]byte{{0x19, 0x00}, {0x19, 0x20}, {0x19, 0x40}}
	ops := make([]i2ctest.IO, 0, len(readings))
	for _, r := range readings {
		ops = append(ops, i2ctest.IO{Addr: addr, W: []byte{_REGISTER_TEMPERATURE}, R: r})
	}
	dev, _ := newPlayback(t, ops)

	if _, err := dev.SenseContinuous(10 * time.Millisecond); err == nil {
		t.Error("expected error for interval below the conversion time")
	}

	ch, err := dev.SenseContinuous(minSampleInterval)
	if err != nil {
		t.Fatal(err)
	}
	if _, err = dev.SenseContinuous(time.Second); err == nil {
		t.Error("expected an error for attempting concurrent SenseContinuous")
	}

	for i, r := range readings {
		env, ok := <-ch
		if !ok {
			t.Fatalf("channel closed after %d readings", i)
		}
		expected := celsiusToTemperature(DecodeTemperature(r[0], r[1]))
		if env.Temperature != expected {
			t.Errorf("reading %d expected %s received %s", i, expected, env.Temperature)
		}
	}
	if err := dev.Halt(); err != nil {
		t.Error(err)
	}
	for range ch {
	}
	// Halt is idempotent.
	if err := dev.Halt(); err != nil {
		t.Error(err)
	}
}

func TestSenseContinuousStopsOnError(t *testing.T) {
	dev, err := New(failBus{}, DefaultAddress)
	if err != nil {
		t.Fatal(err)
	}
	ch, err := dev.SenseContinuous(minSampleInterval)
	if err != nil {
		t.Fatal(err)
	}
	waitClosed(t, ch)

	// A failed run doesn't need Halt before sensing again.
	ch, err = dev.SenseContinuous(minSampleInterval)
	if err != nil {
		t.Fatalf("SenseContinuous() after a bus error: %v", err)
	}
	waitClosed(t, ch)
	if err := dev.Halt(); err != nil {
		t.Error(err)
	}
}

func waitClosed(t *testing.T, ch <-chan physic.Env) {
	t.Helper()
	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected closed channel on bus error")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed on bus error")
	}
}
