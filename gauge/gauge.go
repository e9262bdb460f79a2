// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package gauge draws a temperature as a horizontal bar on the terminal
// using ANSI color codes.
//
// The bar spans a low and a high temperature, typically the hysteresis and
// over-shutdown thresholds of a thermal watchdog, and shades from blue to
// red as it fills.
package gauge

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"io"

	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"periph.io/x/conn/v3/physic"
)

const defaultWidth = 20

var errRange = errors.New("gauge: low must be below high")

// Opts represents the options available for the gauge.
type Opts struct {
	// Width is the number of cells of the bar. Defaults to 20.
	Width   int
	Palette *ansi256.Palette

	_ struct{}
}

// Gauge writes a single line, refreshed in place, to a terminal.
type Gauge struct {
	w       io.Writer
	width   int
	palette ansi256.Palette

	buf bytes.Buffer
}

// New returns a Gauge writing to w. If w is nil, it writes to stdout,
// translating escape codes on terminals that need it.
func New(w io.Writer, opts *Opts) *Gauge {
	if opts == nil {
		opts = &Opts{}
	}
	p := opts.Palette
	if p == nil {
		p = ansi256.Default
	}
	if w == nil {
		w = colorable.NewColorableStdout()
	}
	width := opts.Width
	if width <= 0 {
		width = defaultWidth
	}
	return &Gauge{w: w, width: width, palette: *p}
}

func (g *Gauge) String() string {
	return fmt.Sprintf("Gauge{%d}", g.width)
}

// Draw renders t on a bar going from low to high. Values outside the range
// are drawn as an empty or full bar.
func (g *Gauge) Draw(t, low, high physic.Temperature) error {
	if low >= high {
		return errRange
	}
	filled := g.filled(t, low, high)

	// Reuse the buffer so drawing in a loop doesn't allocate.
	g.buf.Reset()
	_, _ = g.buf.WriteString("\r\033[0m")
	for i := 0; i < g.width; i++ {
		c := color.NRGBA{A: 255}
		if i < filled {
			c = ramp(i, g.width)
		}
		_, _ = io.WriteString(&g.buf, g.palette.Block(c))
	}
	_, _ = g.buf.WriteString("\033[0m ")
	_, _ = g.buf.WriteString(t.String())
	_, err := g.buf.WriteTo(g.w)
	return err
}

// Halt resets the terminal attributes and ends the line.
func (g *Gauge) Halt() error {
	_, err := g.w.Write([]byte("\033[0m\n"))
	return err
}

// filled returns the number of cells to light up.
func (g *Gauge) filled(t, low, high physic.Temperature) int {
	switch {
	case t <= low:
		return 0
	case t >= high:
		return g.width
	}
	n := int(int64(t-low) * int64(g.width) / int64(high-low))
	if n == 0 {
		// Anything above low shows at least one cell.
		n = 1
	}
	return n
}

// ramp returns the color of cell i out of n: blue, through green, to red.
func ramp(i, n int) color.NRGBA {
	if n == 1 {
		return color.NRGBA{R: 255, A: 255}
	}
	// Position on the bar, 0 to 510.
	p := i * 510 / (n - 1)
	if p <= 255 {
		return color.NRGBA{G: uint8(p), B: uint8(255 - p), A: 255}
	}
	return color.NRGBA{R: uint8(p - 255), G: uint8(510 - p), A: 255}
}
