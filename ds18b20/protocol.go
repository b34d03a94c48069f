// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ds18b20

import (
	"errors"
	"time"

	"periph.io/x/conn/v3/onewire"
	"periph.io/x/conn/v3/physic"
)

// Protocol issues addressed commands to DS18B20/DS18S20 sensors without
// blocking for the conversion.
//
// It remembers when each addressed conversion was started so that a read
// issued before the conversion time elapsed fails with ErrBusy instead of
// returning the previous measurement.
//
// Protocol is not safe for concurrent use.
type Protocol struct {
	resolution int
	families   []Family
	started    map[onewire.Address]time.Time
	now        func() time.Time
}

// NewProtocol returns a Protocol accepting DS18B20 and DS18S20 devices.
//
// resolutionBits is the resolution the sensors are configured with; it only
// determines how long a conversion is considered in progress. Use New to
// change the resolution stored in a sensor.
func NewProtocol(resolutionBits int, families ...Family) (*Protocol, error) {
	if !validResolution(resolutionBits) {
		return nil, errors.New("ds18b20: invalid resolutionBits")
	}
	if len(families) == 0 {
		families = []Family{DS18B20, DS18S20}
	}
	return &Protocol{
		resolution: resolutionBits,
		families:   families,
		started:    map[onewire.Address]time.Time{},
		now:        time.Now,
	}, nil
}

func (p *Protocol) String() string {
	return "ds18b20.Protocol"
}

// Is reports whether addr belongs to a family accepted by p.
func (p *Protocol) Is(addr onewire.Address) bool {
	f := FamilyOf(addr)
	for _, a := range p.families {
		if a == f {
			return true
		}
	}
	return false
}

// Configure sets the resolution of the DS18B20 at addr to the one of p,
// storing it in the sensor EEPROM when it differs. The returned Dev drives
// the sensor alone.
func (p *Protocol) Configure(o onewire.Bus, addr onewire.Address) (*Dev, error) {
	if !p.Is(addr) {
		return nil, ErrWrongFamily
	}
	return New(o, addr, p.resolution)
}

// Start starts a temperature conversion on the device at addr and returns
// immediately. The bus is left in strong pull-up mode to power parasitic
// devices.
func (p *Protocol) Start(o onewire.Bus, addr onewire.Address) error {
	if !p.Is(addr) {
		return ErrWrongFamily
	}
	if err := p.dev(o, addr).Start(); err != nil {
		return err
	}
	p.started[addr] = p.now()
	return nil
}

// Read reads the result of the last conversion of the device at addr.
func (p *Protocol) Read(o onewire.Bus, addr onewire.Address) (physic.Temperature, error) {
	if !p.Is(addr) {
		return 0, ErrWrongFamily
	}
	if p.busy(addr, p.now()) {
		return 0, ErrBusy
	}
	delete(p.started, addr)
	return p.dev(o, addr).LastTemp()
}

// AllDone reports whether every conversion started through p has had the
// time to complete.
func (p *Protocol) AllDone() bool {
	now := p.now()
	for addr := range p.started {
		if p.busy(addr, now) {
			return false
		}
	}
	return true
}

// dev returns a handle to the device without touching the bus.
func (p *Protocol) dev(o onewire.Bus, addr onewire.Address) *Dev {
	return &Dev{onewire: onewire.Dev{Bus: o, Addr: addr}, resolution: p.resolution}
}

func (p *Protocol) busy(addr onewire.Address, now time.Time) bool {
	t, ok := p.started[addr]
	return ok && now.Sub(t) < conversionTime(FamilyOf(addr), p.resolution)
}
