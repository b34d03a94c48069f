// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package heatstrip

import (
	"bytes"
	"image/color"
	"strings"
	"testing"

	"github.com/GermanBionicSystems/ds18x20bank/tempbank"
	"github.com/maruel/ansi256"
	"periph.io/x/conn/v3/physic"
)

func celsius(c int) physic.Temperature {
	return physic.Temperature(c)*physic.Celsius + physic.ZeroCelsius
}

var snapshot = []tempbank.Status{
	{Slot: 0, State: tempbank.OK, Temperature: celsius(21) + 500*physic.MilliCelsius, Valid: true},
	{Slot: 1, State: tempbank.Absent},
	{Slot: 2, State: tempbank.OK, Errors: 4},
}

func TestShow_noColor(t *testing.T) {
	var b bytes.Buffer
	d := New(&b, &Opts{NoColor: true})
	if err := d.Show(snapshot); err != nil {
		t.Fatal(err)
	}
	if s := b.String(); s != " 0: 21.50  1:absent  2:    --\n" {
		t.Fatalf("%q", s)
	}
	if err := d.Halt(); err != nil {
		t.Fatal(err)
	}
	if b.Len() != len(" 0: 21.50  1:absent  2:    --\n") {
		t.Fatal("Halt() wrote codes with color disabled")
	}
}

func TestShow_color(t *testing.T) {
	var b bytes.Buffer
	d := New(&b, nil)
	if err := d.Show(snapshot[:2]); err != nil {
		t.Fatal(err)
	}
	s := b.String()
	if !strings.HasPrefix(s, "\r\033[0m") {
		t.Fatalf("%q", s)
	}
	if !strings.Contains(s, ansi256.Default.Block(d.ColorOf(snapshot[0]))) {
		t.Fatalf("missing cell for slot 0 in %q", s)
	}
	if !strings.Contains(s, ansi256.Default.Block(color.NRGBA{0x40, 0x40, 0x40, 255})) {
		t.Fatalf("missing gray cell for slot 1 in %q", s)
	}
	b.Reset()
	if err := d.Halt(); err != nil {
		t.Fatal(err)
	}
	if b.String() != "\033[0m" {
		t.Fatalf("%q", b.String())
	}
}

func TestColorOf(t *testing.T) {
	d := New(&bytes.Buffer{}, nil)
	data := []struct {
		t    physic.Temperature
		want color.NRGBA
	}{
		{celsius(-10), color.NRGBA{0, 0, 255, 255}},
		{celsius(0), color.NRGBA{0, 0, 255, 255}},
		{celsius(25), color.NRGBA{127, 255, 127, 255}},
		{celsius(50), color.NRGBA{255, 0, 0, 255}},
		{celsius(90), color.NRGBA{255, 0, 0, 255}},
	}
	for i, line := range data {
		if c := d.ColorOf(tempbank.Status{Temperature: line.t, Valid: true}); c != line.want {
			t.Fatalf("#%d: %v != %v", i, c, line.want)
		}
	}
}

func TestString(t *testing.T) {
	if s := New(&bytes.Buffer{}, nil).String(); s != "HeatStrip" {
		t.Fatal(s)
	}
}
