// Copyright 2020 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package config

import (
	"time"

	"github.com/GermanBionicSystems/ds18x20bank/ds18b20"
)

// Normalize fills in defaults. It is idempotent.
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	b := &cfg.Bank
	if b.Resolution == 0 {
		b.Resolution = 12
	}
	if b.IntervalMs == 0 {
		b.IntervalMs = 5000
	}
	if b.SettleMs == 0 && b.Resolution >= 9 && b.Resolution <= 12 {
		b.SettleMs = int(ds18b20.ConversionTime(b.Resolution) / time.Millisecond)
	}

	p := &cfg.Port
	if p.Kind == "" {
		p.Kind = PortNetlink
	}
	if p.Kind == PortDS2482 && len(p.Addresses) == 0 {
		p.Addresses = []uint16{0x18}
	}
	// Slots default to the width of the port.
	if b.Slots == 0 {
		switch p.Kind {
		case PortNetlink:
			b.Slots = len(p.Masters)
		case PortDS2482:
			b.Slots = 8 * len(p.Addresses)
		}
	}

	if m := cfg.Modbus; m != nil {
		if m.UnitID == 0 {
			m.UnitID = 1
		}
		if m.TimeoutMs == 0 {
			m.TimeoutMs = 1000
		}
	}

	if r := cfg.Render; r != nil {
		if r.Width == 0 {
			r.Width = 640
		}
		if r.Height == 0 {
			r.Height = 320
		}
	}

	if cfg.Display.Color == "" {
		cfg.Display.Color = ColorAuto
	}
}

// Interval returns the duty cycle period.
func (b BankConfig) Interval() time.Duration {
	return time.Duration(b.IntervalMs) * time.Millisecond
}

// Settle returns the wait between starting the conversions and reading them.
func (b BankConfig) Settle() time.Duration {
	return time.Duration(b.SettleMs) * time.Millisecond
}

// Timeout returns the Modbus request timeout.
func (m ModbusConfig) Timeout() time.Duration {
	return time.Duration(m.TimeoutMs) * time.Millisecond
}
