// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package tempbank

import (
	"math"

	"periph.io/x/conn/v3/onewire"
	"periph.io/x/conn/v3/physic"
)

// MaxErrorCount is the ceiling of the consecutive error count of a slot.
const MaxErrorCount = math.MaxUint8

// ROMState is the connectivity state of a slot. It only describes the ROM
// number, not whether the sensor delivers valid temperatures.
type ROMState uint8

const (
	Unknown ROMState = iota // never searched
	OK                      // a device answered the last search
	Absent                  // no device answered the last search
)

func (r ROMState) String() string {
	switch r {
	case Unknown:
		return "Unknown"
	case OK:
		return "OK"
	case Absent:
		return "Absent"
	default:
		return "ROMState(?)"
	}
}

type slot struct {
	pin    int
	bus    onewire.Bus
	rom    onewire.Address // valid when state == OK
	state  ROMState
	temp   physic.Temperature // valid when valid is set
	valid  bool
	errors uint8 // consecutive failed reads
}

// satInc increments n, sticking at MaxErrorCount.
func satInc(n uint8) uint8 {
	if n == MaxErrorCount {
		return n
	}
	return n + 1
}

// Status is a copy of the state of one slot.
type Status struct {
	Slot        int
	Pin         int
	ROM         onewire.Address
	State       ROMState
	Temperature physic.Temperature
	Valid       bool
	Errors      uint8
}

// Celsius returns the temperature in °C, or NaN when it is not valid.
func (s Status) Celsius() float64 {
	if !s.Valid {
		return math.NaN()
	}
	return s.Temperature.Celsius()
}

// The accessors below panic when i is out of range, like a slice index.

// Pin returns the pin of slot i on the port.
func (b *Bank) Pin(i int) int {
	return b.slots[i].pin
}

// Bus returns the 1-wire bus of slot i. It is owned by the bank and closed
// by Close.
func (b *Bank) Bus(i int) onewire.Bus {
	return b.slots[i].bus
}

// Temperature returns the last accepted temperature of slot i in °C, or NaN
// when there is no trustworthy value.
func (b *Bank) Temperature(i int) float64 {
	return b.status(i).Celsius()
}

// Sense returns the last accepted temperature of slot i and whether it is
// valid.
func (b *Bank) Sense(i int) (physic.Temperature, bool) {
	s := &b.slots[i]
	if !s.valid {
		return 0, false
	}
	return s.temp, true
}

// ROMState returns the connectivity state of slot i.
func (b *Bank) ROMState(i int) ROMState {
	return b.slots[i].state
}

// ROM returns the address of the sensor of slot i, if known.
func (b *Bank) ROM(i int) (onewire.Address, bool) {
	s := &b.slots[i]
	return s.rom, s.state == OK
}

// ErrorCount returns the number of consecutive failed reads of slot i.
func (b *Bank) ErrorCount(i int) uint8 {
	return b.slots[i].errors
}

// Snapshot returns the status of every slot.
func (b *Bank) Snapshot() []Status {
	out := make([]Status, len(b.slots))
	for i := range b.slots {
		out[i] = b.status(i)
	}
	return out
}

func (b *Bank) status(i int) Status {
	s := &b.slots[i]
	st := Status{
		Slot:   i,
		Pin:    s.pin,
		State:  s.state,
		Valid:  s.valid,
		Errors: s.errors,
	}
	if s.state == OK {
		st.ROM = s.rom
	}
	if s.valid {
		st.Temperature = s.temp
	}
	return st
}
