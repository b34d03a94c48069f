// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package tempbank

import (
	"errors"
	"fmt"
	"io"

	"github.com/GermanBionicSystems/ds18x20bank/ds18b20"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/onewire"
	"periph.io/x/conn/v3/physic"
)

// MaxSlots is the width of a port. Larger banks are clamped to it.
const MaxSlots = 16

// Port hands out the 1-wire bus of each pin of a port.
type Port interface {
	String() string
	// Bus configures pin and returns the 1-wire bus wired to it. It is called
	// once per slot by New; the bank owns the returned bus and closes it in
	// Close if it implements io.Closer.
	Bus(pin int) (onewire.Bus, error)
}

// Sensor is the protocol spoken to the sensors. ds18b20.Protocol implements
// it.
type Sensor interface {
	// Start starts a conversion on the device at addr without waiting for it.
	Start(o onewire.Bus, addr onewire.Address) error
	// Read returns the result of the last conversion of the device at addr.
	Read(o onewire.Bus, addr onewire.Address) (physic.Temperature, error)
}

// Opts holds the configuration of a Bank.
type Opts struct {
	// ErrorThreshold is the number of consecutive failed reads tolerated
	// before the temperature of a slot is discarded and its ROM searched
	// again. Until then the previous temperature is kept.
	//
	// With 0 the ROM is searched again on every update and the first failed
	// read discards the temperature. A negative value also searches the ROM
	// every time.
	ErrorThreshold int
	// Sensor defaults to a ds18b20.Protocol for 12 bits resolution.
	Sensor Sensor
	// OnSensorError is called with the slot index every time the temperature
	// of a slot is discarded. Defaults to a no-op.
	OnSensorError func(slot int)
}

// DefaultOpts is the strictest policy: any error discards the temperature.
var DefaultOpts = Opts{
	ErrorThreshold: 0,
}

// Bank is a set of slots on the first n pins of a port.
type Bank struct {
	port  Port
	opts  Opts
	slots []slot
}

// New binds the first n pins of p to slots and searches each slot for its
// sensor.
//
// n is clamped to MaxSlots. A bank of 0 slots is valid and every batch
// operation on it succeeds.
//
// The returned bank is usable as long as it is not nil. The error is nil only
// when every slot found a sensor; otherwise it joins one *SlotError of kind
// ErrROMAbsent per empty slot, and those slots are searched again later on
// demand. When a pin cannot be bound the bank is nil and the error matches
// ErrAllocation.
func New(p Port, n int, opts *Opts) (*Bank, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: invalid slot count %d", ErrAllocation, n)
	}
	if n > MaxSlots {
		n = MaxSlots
	}
	if p == nil && n != 0 {
		return nil, fmt.Errorf("%w: no port", ErrAllocation)
	}
	o := DefaultOpts
	if opts != nil {
		o = *opts
	}
	if o.Sensor == nil {
		s, err := ds18b20.NewProtocol(12)
		if err != nil {
			return nil, err
		}
		o.Sensor = s
	}
	if o.OnSensorError == nil {
		o.OnSensorError = func(int) {}
	}

	b := &Bank{port: p, opts: o, slots: make([]slot, n)}
	for i := range b.slots {
		bus, err := p.Bus(i)
		if err != nil {
			_ = b.Close()
			return nil, fmt.Errorf("%w: pin %d of %s: %w", ErrAllocation, i, p, err)
		}
		b.slots[i] = slot{pin: i, bus: bus}
	}
	var errs []error
	for i := range b.slots {
		if err := b.CheckROM(i, true); err != nil {
			errs = append(errs, err)
		}
	}
	return b, errors.Join(errs...)
}

func (b *Bank) String() string {
	name := "<nil>"
	if b.port != nil {
		name = b.port.String()
	}
	return fmt.Sprintf("tempbank{%s, %d slots}", name, len(b.slots))
}

// Halt implements conn.Resource.
func (b *Bank) Halt() error {
	return nil
}

// Close releases the slots and closes their buses. The bank has no slot
// afterwards.
func (b *Bank) Close() error {
	var errs []error
	for i := range b.slots {
		if c, ok := b.slots[i].bus.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	b.slots = nil
	return errors.Join(errs...)
}

// Len returns the number of slots.
func (b *Bank) Len() int {
	return len(b.slots)
}

// CheckROM makes sure slot i has the ROM number of its sensor.
//
// The bus is searched when force is set, when the slot has no valid ROM or
// when its consecutive read errors reached Opts.ErrorThreshold. Otherwise the
// known ROM is trusted and the bus is not touched.
//
// On failure the slot is marked Absent and its temperature discarded.
// Opts.OnSensorError is called when a valid temperature was discarded.
func (b *Bank) CheckROM(i int, force bool) error {
	s, err := b.slot(i)
	if err != nil {
		return err
	}
	wasValid := s.valid
	if err := b.checkROM(i, force); err != nil {
		if wasValid {
			b.opts.OnSensorError(i)
		}
		return err
	}
	return nil
}

// checkROM is CheckROM without the notification.
func (b *Bank) checkROM(i int, force bool) error {
	s := &b.slots[i]
	if !force && s.state == OK && !b.exhausted(s) {
		return nil
	}
	devices, err := s.bus.Search(false)
	if len(devices) == 0 {
		s.state = Absent
		s.rom = 0
		s.valid = false
		return b.slotError(i, ErrROMAbsent, err)
	}
	s.rom = devices[0]
	s.state = OK
	return nil
}

// StartConversion starts a temperature conversion on slot i.
//
// The sensor is not asked when the slot has no ROM and none can be found.
// Otherwise the result only tells whether the device at the ROM is a
// supported sensor; a missing sensor is detected by the next update.
func (b *Bank) StartConversion(i int) error {
	if err := b.CheckROM(i, false); err != nil {
		return err
	}
	s := &b.slots[i]
	if err := b.opts.Sensor.Start(s.bus, s.rom); err != nil {
		return b.slotError(i, classify(err), err)
	}
	return nil
}

// StartConversions calls StartConversion on every slot, even after a failure.
// The error joins the errors of all failed slots.
func (b *Bank) StartConversions() error {
	var errs []error
	for i := range b.slots {
		if err := b.StartConversion(i); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// UpdateTemperature reads the temperature of slot i.
//
// A conversion must have been started and completed beforehand.
//
// When the slot has no sensor the temperature is discarded and
// Opts.OnSensorError is called. A failed read increments the error count of
// the slot; the previous temperature is kept until the count exceeds
// Opts.ErrorThreshold, then it is discarded and Opts.OnSensorError is called.
// The next update searches the ROM again. A successful read resets the count.
func (b *Bank) UpdateTemperature(i int) error {
	s, err := b.slot(i)
	if err != nil {
		return err
	}
	// The hook is called on every failed search here, once per update.
	if err := b.checkROM(i, b.exhausted(s)); err != nil {
		b.invalidate(i)
		return err
	}
	t, err := b.opts.Sensor.Read(s.bus, s.rom)
	if err != nil {
		s.errors = satInc(s.errors)
		if int(s.errors) > b.opts.ErrorThreshold {
			b.invalidate(i)
		}
		return b.slotError(i, classify(err), err)
	}
	s.errors = 0
	s.temp = t
	s.valid = true
	return nil
}

// UpdateTemperatures calls UpdateTemperature on every slot, even after a
// failure. The error joins the errors of all failed slots.
func (b *Bank) UpdateTemperatures() error {
	var errs []error
	for i := range b.slots {
		if err := b.UpdateTemperature(i); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

//

func (b *Bank) slot(i int) (*slot, error) {
	if i < 0 || i >= len(b.slots) {
		return nil, fmt.Errorf("tempbank: slot %d out of range [0, %d)", i, len(b.slots))
	}
	return &b.slots[i], nil
}

// exhausted reports whether the slot used up its error budget.
func (b *Bank) exhausted(s *slot) bool {
	return int(s.errors) >= b.opts.ErrorThreshold
}

func (b *Bank) invalidate(i int) {
	b.slots[i].valid = false
	b.opts.OnSensorError(i)
}

func (b *Bank) slotError(i int, kind, err error) error {
	return &SlotError{Slot: i, Pin: b.slots[i].pin, Kind: kind, Err: err}
}

var _ conn.Resource = &Bank{}
