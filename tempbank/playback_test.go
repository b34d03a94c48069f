// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package tempbank

import (
	"errors"
	"math"
	"testing"

	"github.com/GermanBionicSystems/ds18x20bank/ds18b20"
	"periph.io/x/conn/v3/onewire"
	"periph.io/x/conn/v3/onewire/onewiretest"
)

// These tests run the bank against the real ds18b20 protocol over recorded
// bus transactions.

const sensorAddr onewire.Address = 0x740000070e41ac28

var (
	opSearch       = onewiretest.IO{W: []uint8{0xf0}}
	opConvert      = onewiretest.IO{W: []uint8{0x55, 0x28, 0xac, 0x41, 0xe, 0x7, 0x0, 0x0, 0x74, 0x44}, Pull: true}
	opReadSpad30   = onewiretest.IO{W: []uint8{0x55, 0x28, 0xac, 0x41, 0xe, 0x7, 0x0, 0x0, 0x74, 0xbe}, R: []uint8{0xe0, 0x1, 0x0, 0x0, 0x3f, 0xff, 0x10, 0x10, 0x3f}}
	playbackSensor = []onewire.Address{sensorAddr}
)

type playbackPort []*onewiretest.Playback

func (p playbackPort) String() string { return "playback" }

func (p playbackPort) Bus(pin int) (onewire.Bus, error) {
	return p[pin], nil
}

func TestPlayback_read(t *testing.T) {
	port := playbackPort{
		{Ops: []onewiretest.IO{opSearch, opSearch, opReadSpad30}, Devices: playbackSensor, DontPanic: true},
		{Ops: []onewiretest.IO{opSearch, opSearch}, DontPanic: true},
	}
	b, err := New(port, 2, nil)
	if !errors.Is(err, ErrROMAbsent) {
		t.Fatalf("expected pin 1 to be absent, got %v", err)
	}
	if rom, ok := b.ROM(0); !ok || rom != sensorAddr {
		t.Fatalf("ROM(0) = %#x, %t", rom, ok)
	}
	err = b.UpdateTemperatures()
	if len(joined(err)) != 1 || !errors.Is(err, ErrROMAbsent) {
		t.Fatalf("expected only pin 1 to fail, got %v", err)
	}
	if got := b.Temperature(0); got != 30 {
		t.Fatalf("expected 30°C, got %f", got)
	}
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
}

// Reading right after starting the conversion fails and, with the strictest
// threshold, discards the temperature on the first failure.
func TestPlayback_noSettle(t *testing.T) {
	port := playbackPort{
		{Ops: []onewiretest.IO{opSearch, opSearch, opConvert, opSearch}, Devices: playbackSensor, DontPanic: true},
	}
	calls := 0
	b, err := New(port, 1, &Opts{OnSensorError: func(int) { calls++ }})
	if err != nil {
		t.Fatal(err)
	}
	if err := b.StartConversions(); err != nil {
		t.Fatal(err)
	}
	err = b.UpdateTemperatures()
	if !errors.Is(err, ErrNotReady) || !errors.Is(err, ds18b20.ErrBusy) {
		t.Fatalf("expected busy sensor, got %v", err)
	}
	if got := b.Temperature(0); !math.IsNaN(got) {
		t.Fatalf("expected NaN, got %f", got)
	}
	if calls != 1 {
		t.Fatalf("expected one hook call, got %d", calls)
	}
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
}
