// Copyright 2020 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/GermanBionicSystems/ds18x20bank/ds18b20"
	"github.com/GermanBionicSystems/ds18x20bank/internal/config"
	"github.com/GermanBionicSystems/ds18x20bank/tempbank"
	"github.com/google/go-cmp/cmp"
	"periph.io/x/conn/v3/onewire"
	"periph.io/x/conn/v3/onewire/onewiretest"
)

func TestOpenPort_netlink(t *testing.T) {
	p, closePort, err := openPort(config.PortConfig{Kind: config.PortNetlink, Name: "P1", Masters: []uint32{1, 2}})
	if err != nil {
		t.Fatal(err)
	}
	if s := p.String(); s != "netlink(P1)" {
		t.Fatal(s)
	}
	if err := closePort(); err != nil {
		t.Fatal(err)
	}
}

func TestOpenPort_errors(t *testing.T) {
	if _, _, err := openPort(config.PortConfig{Kind: config.PortNetlink, Pins: []string{"NOT_A_PIN"}, Masters: []uint32{1}}); err == nil {
		t.Fatal("unknown pin accepted")
	}
	if _, _, err := openPort(config.PortConfig{Kind: "spi"}); err == nil {
		t.Fatal("unknown kind accepted")
	}
}

func TestUseColor(t *testing.T) {
	if !useColor(config.ColorAlways) {
		t.Fatal("always")
	}
	if useColor(config.ColorNever) {
		t.Fatal("never")
	}
}

func TestCycle(t *testing.T) {
	b, err := tempbank.New(nil, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := cycle(context.Background(), b, time.Millisecond); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := cycle(ctx, b, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatal(err)
	}
}

type playbackPort []*onewiretest.Playback

func (p playbackPort) String() string { return "playback" }

func (p playbackPort) Bus(pin int) (onewire.Bus, error) {
	return p[pin], nil
}

func TestConfigureSensors(t *testing.T) {
	const addr onewire.Address = 0x740000070e41ac28
	match := []uint8{0x55, 0x28, 0xac, 0x41, 0xe, 0x7, 0x0, 0x0, 0x74}
	port := playbackPort{
		{
			Ops: []onewiretest.IO{
				{W: []uint8{0xf0}},
				// Scratchpad at 10 bits, 12 bits wanted.
				{W: append(append([]uint8{}, match...), 0xbe), R: []uint8{0xe0, 0x1, 0x0, 0x0, 0x3f, 0xff, 0x10, 0x10, 0x3f}},
				{W: append(append([]uint8{}, match...), 0x4e, 0, 0, 0x7f)},
				{W: append(append([]uint8{}, match...), 0x48), Pull: true},
			},
			Devices:   []onewire.Address{addr},
			DontPanic: true,
		},
		// Empty pin, not configured.
		{Ops: []onewiretest.IO{{W: []uint8{0xf0}}}, DontPanic: true},
	}
	sensor, err := ds18b20.NewProtocol(12)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := tempbank.New(port, 2, &tempbank.Opts{Sensor: sensor})
	if b == nil {
		t.Fatal("no bank")
	}
	if err := configureSensors(b, sensor); err != nil {
		t.Fatal(err)
	}
	for i, p := range port {
		if err := p.Close(); err != nil {
			t.Fatalf("pin %d: %v", i, err)
		}
	}
}

func TestIdleLow(t *testing.T) {
	pins := []string{"GPIO4", "", "GPIO22", "GPIO23"}
	if diff := cmp.Diff([]int{2}, idleLow(0x9, pins, 4)); diff != "" {
		t.Fatal(diff)
	}
	// Only bank slots are reported.
	if low := idleLow(0, pins, 1); len(low) != 1 || low[0] != 0 {
		t.Fatal(low)
	}
	if low := idleLow(0, nil, 4); low != nil {
		t.Fatal(low)
	}
}
