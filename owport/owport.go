// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package owport provides ports for tempbank: groups of pins that each carry
// their own 1-wire bus.
//
// Netlink uses the GPIO pins of the host, each driven by a Linux w1-gpio bus
// master. DS2482 uses the channels of one or two DS2482-800 bridges.
package owport

import (
	"errors"
	"fmt"

	"github.com/GermanBionicSystems/ds18x20bank/ds248x"
	"github.com/GermanBionicSystems/ds18x20bank/tempbank"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/onewire"
	"periph.io/x/host/v3/netlink"
)

// Netlink is a port of host GPIO pins, each one used by its own w1-gpio
// kernel bus master, e.g. one "dtoverlay=w1-gpio,gpiopin=N" line per pin on a
// Raspberry Pi.
type Netlink struct {
	name    string
	pins    []gpio.PinIO
	masters []uint32
}

// NewNetlink returns a port whose pin i is pins[i], driven by the w1 bus
// master masters[i] as listed by the kernel (w1_bus_masterN).
//
// A nil pin is not configured; use it when the kernel driver does not let go
// of the pin.
func NewNetlink(name string, pins []gpio.PinIO, masters []uint32) (*Netlink, error) {
	if len(pins) != len(masters) {
		return nil, fmt.Errorf("owport: %d pins but %d bus masters", len(pins), len(masters))
	}
	if len(pins) > tempbank.MaxSlots {
		return nil, fmt.Errorf("owport: %d pins, a port has at most %d", len(pins), tempbank.MaxSlots)
	}
	return &Netlink{name: name, pins: pins, masters: masters}, nil
}

func (n *Netlink) String() string {
	return "netlink(" + n.name + ")"
}

// Len returns the number of pins.
func (n *Netlink) Len() int {
	return len(n.masters)
}

// Bus implements tempbank.Port.
//
// The pin is set as an input with pull-up so the data line idles high.
func (n *Netlink) Bus(pin int) (onewire.Bus, error) {
	if pin < 0 || pin >= len(n.masters) {
		return nil, fmt.Errorf("owport: %s has no pin %d", n, pin)
	}
	if p := n.pins[pin]; p != nil {
		if err := p.In(gpio.PullUp, gpio.NoEdge); err != nil {
			return nil, fmt.Errorf("owport: configuring %s: %w", p, err)
		}
	}
	return openMaster(n.masters[pin])
}

// Levels reads the level of every pin, pin i in bit i. Unconfigured pins
// read as low.
//
// An idle 1-wire line is high; a low bit points to a missing pull-up or a
// shorted line.
func (n *Netlink) Levels() uint16 {
	var v uint16
	for i, p := range n.pins {
		if p != nil && p.Read() == gpio.High {
			v |= 1 << uint(i)
		}
	}
	return v
}

// DS2482 is a port made of the channels of DS2482 bridges, in order. Two
// DS2482-800 give a full port of 16 pins.
type DS2482 struct {
	devs []*ds248x.Dev
	n    int
}

// NewDS2482 returns a port using all the channels of devs.
func NewDS2482(devs ...*ds248x.Dev) (*DS2482, error) {
	if len(devs) == 0 {
		return nil, errors.New("owport: no DS2482")
	}
	n := 0
	for _, d := range devs {
		n += d.Variant().Channels()
	}
	if n > tempbank.MaxSlots {
		return nil, fmt.Errorf("owport: %d channels, a port has at most %d", n, tempbank.MaxSlots)
	}
	return &DS2482{devs: devs, n: n}, nil
}

func (p *DS2482) String() string {
	s := "ds2482("
	for i, d := range p.devs {
		if i != 0 {
			s += ","
		}
		s += d.String()
	}
	return s + ")"
}

// Len returns the number of pins.
func (p *DS2482) Len() int {
	return p.n
}

// Bus implements tempbank.Port.
func (p *DS2482) Bus(pin int) (onewire.Bus, error) {
	if pin < 0 || pin >= p.n {
		return nil, fmt.Errorf("owport: %s has no pin %d", p, pin)
	}
	ch := pin
	for _, d := range p.devs {
		if c := d.Variant().Channels(); ch >= c {
			ch -= c
			continue
		}
		c, err := d.Channel(ch)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	return nil, fmt.Errorf("owport: %s has no pin %d", p, pin)
}

var openMaster = func(id uint32) (onewire.Bus, error) {
	o, err := netlink.New(id)
	if err != nil {
		return nil, err
	}
	return o, nil
}

var _ tempbank.Port = &Netlink{}
var _ tempbank.Port = &DS2482{}
