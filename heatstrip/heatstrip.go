// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package heatstrip prints the state of a sensor bank as one line of colored
// cells on a terminal, using ANSI color codes.
//
// Each slot is one cell, colored from blue at Opts.Min to red at Opts.Max,
// followed by its temperature. Slots without a valid temperature are gray.
package heatstrip

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"os"

	"github.com/GermanBionicSystems/ds18x20bank/tempbank"
	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"periph.io/x/conn/v3/physic"
)

// Opts represents the options available for the strip.
type Opts struct {
	Palette *ansi256.Palette
	// Min and Max bound the color scale. Defaults to 0°C and 50°C.
	Min, Max physic.Temperature
	// NoColor disables ANSI codes, for logs and dumb terminals.
	NoColor bool

	_ struct{}
}

// Dev writes bank snapshots to a terminal.
type Dev struct {
	w        io.Writer
	palette  ansi256.Palette
	min, max physic.Temperature
	color    bool

	buf bytes.Buffer
}

// New returns a Dev that writes to w. When w is nil, it writes to stdout
// through go-colorable so it also works on Windows consoles.
func New(w io.Writer, opts *Opts) *Dev {
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
	d := &Dev{
		w:       w,
		palette: *p,
		min:     opts.Min,
		max:     opts.Max,
		color:   !opts.NoColor,
	}
	if d.min == 0 && d.max == 0 {
		d.min = physic.ZeroCelsius
		d.max = physic.ZeroCelsius + 50*physic.Celsius
	}
	return d
}

// IsTerminal returns true when f is a terminal, so ANSI codes are useful.
func IsTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (d *Dev) String() string {
	return "HeatStrip"
}

// Halt implements conn.Resource.
//
// It resets the terminal attributes.
func (d *Dev) Halt() error {
	if !d.color {
		return nil
	}
	_, err := d.w.Write([]byte("\033[0m"))
	return err
}

// Show writes one line describing every slot.
func (d *Dev) Show(st []tempbank.Status) error {
	// This code is designed to minimize the amount of memory allocated per call.
	d.buf.Reset()
	if d.color {
		_, _ = d.buf.WriteString("\r\033[0m")
	}
	for i, s := range st {
		if i != 0 {
			_ = d.buf.WriteByte(' ')
		}
		if d.color {
			_, _ = io.WriteString(&d.buf, d.palette.Block(d.ColorOf(s)))
			_, _ = d.buf.WriteString("\033[0m")
		}
		_, _ = fmt.Fprintf(&d.buf, "%2d:%s", s.Slot, label(s))
	}
	_ = d.buf.WriteByte('\n')
	_, err := d.buf.WriteTo(d.w)
	return err
}

// ColorOf returns the color of the cell of a slot.
func (d *Dev) ColorOf(s tempbank.Status) color.NRGBA {
	if !s.Valid {
		return color.NRGBA{0x40, 0x40, 0x40, 255}
	}
	f := 0.
	if d.max > d.min {
		f = float64(s.Temperature-d.min) / float64(d.max-d.min)
	}
	if f < 0 {
		f = 0
	} else if f > 1 {
		f = 1
	}
	g := 1 - 2*f
	if g < 0 {
		g = -g
	}
	return color.NRGBA{byte(255 * f), byte(255 * (1 - g)), byte(255 * (1 - f)), 255}
}

func label(s tempbank.Status) string {
	switch {
	case s.Valid:
		return fmt.Sprintf("%6.2f", s.Celsius())
	case s.State == tempbank.Absent:
		return "absent"
	default:
		return "    --"
	}
}

var _ fmt.Stringer = &Dev{}
