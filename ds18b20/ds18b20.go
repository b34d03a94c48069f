// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package ds18b20 talks to Dallas Semi / Maxim DS18B20 and DS18S20
// temperature sensors on a 1-wire bus.
//
// Dev drives a single sensor. Protocol tracks the conversions of many Dev
// sharing buses, which lets a caller start the conversions of several sensors
// at once and read them all later.
package ds18b20

import (
	"errors"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/onewire"
	"periph.io/x/conn/v3/physic"
)

// Family code of the specific device type
type Family byte

func (f Family) String() string {
	switch f {
	case DS18S20:
		return "DS18S20"
	case DS18B20:
		return "DS18B20"
	default:
		return "unknown"
	}
}

const DS18B20 Family = 0x28
const DS18S20 Family = 0x10

// FamilyOf returns the family code stored in the low byte of a 1-wire
// address.
func FamilyOf(addr onewire.Address) Family {
	return Family(addr & 0xFF)
}

// Errors returned by the addressed operations. All of them implement
// onewire.BusError since they describe the state of the sensor, not of the
// bus master.
var (
	// ErrWrongFamily is returned when the address does not belong to a
	// supported sensor.
	ErrWrongFamily error = busError("ds18b20: wrong device family")
	// ErrBusy is returned when a read is attempted while a conversion started
	// by Protocol.Start is still running.
	ErrBusy error = busError("ds18b20: conversion in progress")
	// ErrNoConversion is returned when the sensor still holds its power-on
	// value of 85°C.
	ErrNoConversion error = busError("ds18b20: has not performed a temperature conversion (insufficient pull-up?)")
	// ErrCRC is returned when the scratchpad CRC does not match.
	ErrCRC error = busError("ds18b20: incorrect scratchpad CRC")
	// ErrNoResponse is returned when the scratchpad read back as all ones.
	ErrNoResponse error = busError("ds18b20: device did not respond")
)

// ConversionTime returns the worst case time a conversion takes at the given
// resolution: 9bits:94ms, 10bits:188ms, 11bits:376ms, 12bits:752ms, datasheet
// p.6.
func ConversionTime(bits int) time.Duration {
	return (94 << uint(bits-9)) * time.Millisecond
}

// conversionTime returns the worst case conversion time of a device. The
// DS18S20 always converts at its full resolution.
func conversionTime(f Family, bits int) time.Duration {
	if f == DS18S20 {
		return ConversionTime(12)
	}
	return ConversionTime(bits)
}

// New returns an object that communicates over 1-wire to the DS18B20 sensor
// with the specified 64-bit address.
//
// resolutionBits must be in the range 9..12 and determines how many bits of
// precision the readings have. The resolution affects the conversion time:
// 9bits:94ms, 10bits:188ms, 11bits:375ms, 12bits:750ms.
//
// A resolution of 10 bits corresponds to 0.25C and tends to be a good
// compromise between conversion time and the device's inherent accuracy of
// +/-0.5C.
func New(o onewire.Bus, addr onewire.Address, resolutionBits int) (*Dev, error) {
	if !validResolution(resolutionBits) {
		return nil, errors.New("ds18b20: invalid resolutionBits")
	}

	d := &Dev{onewire: onewire.Dev{Bus: o, Addr: addr}, resolution: resolutionBits}

	// Start by reading the scratchpad memory, this will tell us whether we can
	// talk to the device correctly and also how it's configured.
	spad, err := readScratchpad(&d.onewire)
	if err != nil {
		return nil, err
	}

	// Change the resolution, if necessary (datasheet p.6). The DS18S20 has no
	// configuration register.
	if d.Family() != DS18S20 && int(spad[4]>>5) != resolutionBits-9 {
		if err := d.onewire.Tx([]byte{cmdWriteScratchpad, 0, 0, byte((resolutionBits-9)<<5) | 0x1f}, nil); err != nil {
			return nil, err
		}
		// Copy the scratchpad to EEPROM to save the values.
		if err := d.onewire.TxPower([]byte{cmdCopyScratchpad}, nil); err != nil {
			return nil, err
		}
		// Wait for the write to complete.
		sleep(10 * time.Millisecond)
	}

	return d, nil
}

// Dev is a handle to a Dallas Semi / Maxim DS18B20 temperature sensor on a
// 1-wire bus.
type Dev struct {
	onewire    onewire.Dev // device on 1-wire bus
	resolution int         // resolution in bits (9..12)
}

func (d *Dev) Family() Family {
	return FamilyOf(d.onewire.Addr)
}

func (d *Dev) String() string {
	return d.Family().String() + "{" + d.onewire.String() + "}"
}

// Halt implements conn.Resource.
func (d *Dev) Halt() error {
	return nil
}

// Start starts a temperature conversion and returns without waiting for it.
//
// The bus is left in strong pull-up mode to power parasitic devices. Read the
// result with LastTemp once ConversionTime has elapsed.
func (d *Dev) Start() error {
	return d.onewire.TxPower([]byte{cmdConvert}, nil)
}

// Sense implements physic.SenseEnv.
func (d *Dev) Sense(e *physic.Env) error {
	if err := d.Start(); err != nil {
		return err
	}
	sleep(conversionTime(d.Family(), d.resolution))
	t, err := d.LastTemp()
	if err != nil {
		return err
	}
	e.Temperature = t
	return nil
}

// SenseContinuous implements physic.SenseEnv.
func (d *Dev) SenseContinuous(time.Duration) (<-chan physic.Env, error) {
	return nil, errors.New("ds18b20: not implemented")
}

// Precision implements physic.SenseEnv.
func (d *Dev) Precision(e *physic.Env) {
	e.Temperature = physic.Kelvin / 16
}

// LastTemp reads the temperature resulting from the last conversion from the
// device.
//
// It is useful in combination with Start.
func (d *Dev) LastTemp() (physic.Temperature, error) {
	spad, err := readScratchpad(&d.onewire)
	if err != nil {
		return 0, err
	}
	return checkPowerOn(parseTemperature(d.Family(), spad))
}

// checkPowerOn rejects the power-on value.
//
// The device powers up with a value of 85°C, so if we read that odds are very
// high that either no conversion was performed or that the conversion failed
// due to lack of power. This prevents reading a temp of exactly 85°C.
func checkPowerOn(c physic.Temperature) (physic.Temperature, error) {
	if c == 85*physic.Celsius+physic.ZeroCelsius {
		return 0, ErrNoConversion
	}
	return c, nil
}

// parseTemperature decodes the scratchpad, handling the extended resolution
// calculation of the DS18S20.
func parseTemperature(f Family, spad []byte) physic.Temperature {
	// spad[1] is MSB and spad[0] is LSB of the raw temperature value
	rawTemp := int16(spad[1])<<8 | int16(spad[0])

	if f == DS18S20 && spad[7] != 0 {
		// TEMPERATURE = TEMP_READ - 0.25 + (COUNT_PER_C-COUNT_REMAIN)/COUNT_PER_C
		// with TEMP_READ having its 0.5°C bit truncated, COUNT_PER_C = spad[7]
		// (fixed at 16) and COUNT_REMAIN = spad[6]. Result is in 1/16°C.
		mask := 0xFFFE
		rawTemp = ((rawTemp & int16(mask)) << 3) + 12 - int16(spad[6])
	}
	// rawTemp has 4 fractional bits, datasheet p.4.
	v := physic.Temperature(rawTemp)
	return v*physic.Kelvin/16 + physic.ZeroCelsius
}

// busError implements error and onewire.BusError.
type busError string

func (e busError) Error() string  { return string(e) }
func (e busError) BusError() bool { return true }

// readScratchpad reads the 9 bytes of scratchpad and checks the CRC.
// It returns the 8 bytes of scratchpad data (excluding the CRC byte).
func readScratchpad(d *onewire.Dev) ([]byte, error) {
	var spad [9]byte
	if err := d.Tx([]byte{cmdReadScratchpad}, spad[:]); err != nil {
		return nil, err
	}

	if !onewire.CheckCRC(spad[:]) {
		for _, s := range spad {
			if s != 0xff {
				return nil, ErrCRC
			}
		}
		return nil, ErrNoResponse
	}

	return spad[:8], nil
}

func validResolution(bits int) bool {
	return bits >= 9 && bits <= 12
}

const (
	cmdConvert         = 0x44
	cmdReadScratchpad  = 0xbe
	cmdWriteScratchpad = 0x4e
	cmdCopyScratchpad  = 0x48
)

var sleep = time.Sleep

var _ conn.Resource = &Dev{}
var _ physic.SenseEnv = &Dev{}
