// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// gx21m15 reads and configures a GX21M15 temperature sensor.
//
//	gx21m15 -bus 1
//	gx21m15 -hyst 75 -os 80 -queue 4
//	gx21m15 -watch 1s
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/GermanBionicSystems/thermo/gauge"
	"github.com/GermanBionicSystems/thermo/gx21m15"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

// celsiusFlag is a temperature flag in °C that records whether it was set.
type celsiusFlag struct {
	t   physic.Temperature
	set bool
}

func (f *celsiusFlag) String() string {
	if !f.set {
		return ""
	}
	return f.t.String()
}

func (f *celsiusFlag) Set(s string) error {
	c, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	if math.IsNaN(c) || c < -128 || c > 127.5 {
		return errors.New("out of range -128..127.5")
	}
	f.t = physic.ZeroCelsius + physic.Temperature(c*float64(physic.Celsius))
	f.set = true
	return nil
}

func parseQueue(n int) (gx21m15.FaultQueue, error) {
	switch n {
	case 1:
		return gx21m15.FaultQueue1, nil
	case 2:
		return gx21m15.FaultQueue2, nil
	case 4:
		return gx21m15.FaultQueue4, nil
	case 8:
		return gx21m15.FaultQueue8, nil
	}
	return 0, fmt.Errorf("invalid fault queue length %d, use 1, 2, 4 or 8", n)
}

// configFlags are the flags that edit the configuration register.
var configFlags = []string{"shutdown", "interrupt", "active-high", "queue"}

// applyConfig returns c with the fields named in set replaced by the flag
// values. Fields whose flag wasn't given keep the value read from the device.
func applyConfig(c gx21m15.Config, set map[string]bool, shutdown, interrupt, activeHigh bool, q gx21m15.FaultQueue) gx21m15.Config {
	if set["shutdown"] {
		c = c.WithShutdown(shutdown)
	}
	if set["interrupt"] {
		mode := gx21m15.ModeComparator
		if interrupt {
			mode = gx21m15.ModeInterrupt
		}
		c = c.WithAlertMode(mode)
	}
	if set["active-high"] {
		pol := gx21m15.PolarityActiveLow
		if activeHigh {
			pol = gx21m15.PolarityActiveHigh
		}
		c = c.WithPolarity(pol)
	}
	if set["queue"] {
		c = c.WithFaultQueue(q)
	}
	return c
}

func anySet(set map[string]bool, names []string) bool {
	for _, n := range names {
		if set[n] {
			return true
		}
	}
	return false
}

func watch(dev *gx21m15.Dev, interval time.Duration) error {
	hyst, err := dev.Hysteresis()
	if err != nil {
		return err
	}
	overShutdown, err := dev.OverShutdown()
	if err != nil {
		return err
	}
	low, high := hyst, overShutdown
	if low >= high {
		low, high = gx21m15.MinimumTemperature, gx21m15.MaximumTemperature
	}

	ch, err := dev.SenseContinuous(interval)
	if err != nil {
		return err
	}
	g := gauge.New(nil, &gauge.Opts{Width: 30})
	defer g.Halt()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	defer signal.Stop(sig)
	for {
		select {
		case e, ok := <-ch:
			if !ok {
				return errors.New("sensor stopped responding")
			}
			if err := g.Draw(e.Temperature, low, high); err != nil {
				return err
			}
		case <-sig:
			return dev.Halt()
		}
	}
}

func mainImpl() error {
	busName := flag.String("bus", "", "I²C bus to use")
	addr := flag.Uint("addr", uint(gx21m15.DefaultAddress), "I²C address of the device")
	var hyst, overShutdown celsiusFlag
	flag.Var(&hyst, "hyst", "set the hysteresis threshold, in °C")
	flag.Var(&overShutdown, "os", "set the over-shutdown threshold, in °C")
	shutdown := flag.Bool("shutdown", false, "set or, with =false, clear shutdown mode")
	interrupt := flag.Bool("interrupt", false, "OS output in interrupt mode, =false for comparator")
	activeHigh := flag.Bool("active-high", false, "OS output active high, =false for active low")
	queue := flag.Int("queue", 1, "consecutive faults before OS asserts: 1, 2, 4 or 8")
	interval := flag.Duration("watch", 0, "read continuously at this interval and draw a gauge")
	flag.Parse()
	if flag.NArg() != 0 {
		return errors.New("unexpected argument, try -help")
	}
	if *addr > 0x7f {
		return fmt.Errorf("invalid address 0x%x", *addr)
	}

	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	q, err := parseQueue(*queue)
	if err != nil {
		return err
	}

	if _, err := host.Init(); err != nil {
		return err
	}
	bus, err := i2creg.Open(*busName)
	if err != nil {
		return err
	}
	defer bus.Close()

	opts := &gx21m15.Opts{}
	if hyst.set {
		opts.Hysteresis = &hyst.t
	}
	if overShutdown.set {
		opts.OverShutdown = &overShutdown.t
	}
	dev, err := gx21m15.NewI2C(bus, i2c.Addr(*addr), opts)
	if err != nil {
		return err
	}
	if anySet(set, configFlags) {
		c, err := dev.Config()
		if err != nil {
			return err
		}
		if err := dev.SetConfig(applyConfig(c, set, *shutdown, *interrupt, *activeHigh, q)); err != nil {
			return err
		}
	}

	if *interval != 0 {
		return watch(dev, *interval)
	}

	c, err := dev.Config()
	if err != nil {
		return err
	}
	h, err := dev.Hysteresis()
	if err != nil {
		return err
	}
	o, err := dev.OverShutdown()
	if err != nil {
		return err
	}
	t, err := dev.Temperature()
	if err != nil {
		return err
	}
	fmt.Printf("%s\n", dev)
	fmt.Printf("Config:        %s\n", c)
	fmt.Printf("Hysteresis:    %s\n", h)
	fmt.Printf("Over-shutdown: %s\n", o)
	fmt.Printf("Temperature:   %s\n", t)
	return nil
}

func main() {
	if err := mainImpl(); err != nil {
		log.Fatalf("gx21m15: %v", err)
	}
}
