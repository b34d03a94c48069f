// Copyright 2020 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package config

import (
	"errors"
	"fmt"

	"github.com/GermanBionicSystems/ds18x20bank/tempbank"
)

// Validate checks configuration correctness and reports every problem found.
// It does not mutate the configuration.
func Validate(cfg *Config) error {
	var errs []error
	fail := func(format string, a ...any) {
		errs = append(errs, fmt.Errorf("config: "+format, a...))
	}

	b := cfg.Bank
	if b.Slots < 0 || b.Slots > tempbank.MaxSlots {
		fail("bank.slots %d out of range [0, %d]", b.Slots, tempbank.MaxSlots)
	}
	// The error count saturates at MaxErrorCount; a larger threshold would
	// never be crossed.
	if b.ErrorThreshold >= tempbank.MaxErrorCount {
		fail("bank.error_threshold %d must be below %d", b.ErrorThreshold, tempbank.MaxErrorCount)
	}
	if b.Resolution < 9 || b.Resolution > 12 {
		fail("bank.resolution %d must be 9..12 bits", b.Resolution)
	}
	if b.IntervalMs <= 0 {
		fail("bank.interval_ms must be positive")
	}
	if b.SettleMs < 0 || b.SettleMs >= b.IntervalMs {
		fail("bank.settle_ms %d must be in [0, interval_ms)", b.SettleMs)
	}

	p := cfg.Port
	switch p.Kind {
	case PortNetlink:
		if len(p.Pins) != 0 && len(p.Pins) != len(p.Masters) {
			fail("port: %d pins but %d masters", len(p.Pins), len(p.Masters))
		}
		if b.Slots > len(p.Masters) {
			fail("port: %d slots but %d masters", b.Slots, len(p.Masters))
		}
		seen := map[uint32]bool{}
		for _, m := range p.Masters {
			if seen[m] {
				fail("port: w1 bus master %d used twice", m)
			}
			seen[m] = true
		}
	case PortDS2482:
		if len(p.Addresses) > 2 {
			fail("port: at most 2 DS2482-800, got %d", len(p.Addresses))
		}
		seen := map[uint16]bool{}
		for _, a := range p.Addresses {
			switch a {
			case 0x18, 0x19, 0x20, 0x21:
			default:
				fail("port: invalid DS2482 address %#x", a)
			}
			if seen[a] {
				fail("port: DS2482 address %#x used twice", a)
			}
			seen[a] = true
		}
	default:
		fail("port.kind %q must be %q or %q", p.Kind, PortNetlink, PortDS2482)
	}

	if m := cfg.Modbus; m != nil {
		if m.Endpoint == "" {
			fail("modbus.endpoint required")
		}
		if m.TimeoutMs < 0 {
			fail("modbus.timeout_ms must not be negative")
		}
	}

	if r := cfg.Render; r != nil {
		if r.PNG == "" {
			fail("render.png required")
		}
		if r.Width < 64 || r.Height < 64 {
			fail("render: %dx%d is too small", r.Width, r.Height)
		}
	}

	switch cfg.Display.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		fail("display.color %q must be auto, always or never", cfg.Display.Color)
	}

	return errors.Join(errs...)
}
