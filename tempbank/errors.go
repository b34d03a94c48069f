// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package tempbank

import (
	"errors"
	"fmt"

	"github.com/GermanBionicSystems/ds18x20bank/ds18b20"
)

var (
	// ErrAllocation is returned by New when the bank cannot be built. The
	// returned bank is nil.
	ErrAllocation = errors.New("tempbank: cannot allocate slots")
	// ErrROMAbsent means no device answered the ROM search on a slot.
	ErrROMAbsent = errors.New("tempbank: no sensor present")
	// ErrWrongFamily means the device at the slot's address is not a
	// supported sensor.
	ErrWrongFamily = errors.New("tempbank: wrong device family")
	// ErrNotReady means the read happened before the conversion completed, or
	// no conversion was requested.
	ErrNotReady = errors.New("tempbank: conversion not ready")
	// ErrProtocol covers malformed responses, checksum errors and transport
	// failures.
	ErrProtocol = errors.New("tempbank: protocol or checksum error")
)

// SlotError is the error reported for a single slot.
//
// errors.Is matches both Kind, one of the sentinel errors of this package,
// and the underlying error from the bus or the sensor protocol.
type SlotError struct {
	Slot int
	Pin  int
	Kind error
	Err  error
}

func (e *SlotError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s (slot %d, pin %d)", e.Kind, e.Slot, e.Pin)
	}
	return fmt.Sprintf("%s (slot %d, pin %d): %s", e.Kind, e.Slot, e.Pin, e.Err)
}

func (e *SlotError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// classify maps an error returned by a Sensor to a sentinel error of this
// package.
func classify(err error) error {
	for _, kind := range []error{ErrROMAbsent, ErrWrongFamily, ErrNotReady, ErrProtocol} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	switch {
	case errors.Is(err, ds18b20.ErrWrongFamily):
		return ErrWrongFamily
	case errors.Is(err, ds18b20.ErrBusy), errors.Is(err, ds18b20.ErrNoConversion):
		return ErrNotReady
	default:
		return ErrProtocol
	}
}
