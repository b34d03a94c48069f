// Copyright 2020 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package publish mirrors the bank status into Modbus holding registers.
//
// Register layout, starting at the configured address:
//
//	0            number of slots
//	1            bitmask of slots with a valid temperature
//	2+4*i        slot i temperature, centi-°C as int16, NoTemperature if invalid
//	2+4*i+1      slot i ROM state (0 Unknown, 1 OK, 2 Absent)
//	2+4*i+2      slot i consecutive read errors
//	2+4*i+3      slot i family code, 0 when the ROM is unknown
package publish

import (
	"errors"
	"math"
	"sync"
	"time"

	"github.com/GermanBionicSystems/ds18x20bank/tempbank"
	"github.com/goburrow/modbus"
)

const (
	HeaderSize  = 2
	RegsPerSlot = 4

	// NoTemperature is written for slots without a trustworthy value.
	NoTemperature uint16 = 0x8000
)

// Encode converts a bank snapshot into the register block.
// No IO. No side effects.
func Encode(st []tempbank.Status) []uint16 {
	regs := make([]uint16, HeaderSize+RegsPerSlot*len(st))
	regs[0] = uint16(len(st))
	for i, s := range st {
		r := regs[HeaderSize+RegsPerSlot*i:]
		r[0] = centiCelsius(s)
		if r[0] != NoTemperature {
			regs[1] |= 1 << uint(i)
		}
		r[1] = uint16(s.State)
		r[2] = uint16(s.Errors)
		r[3] = uint16(s.ROM & 0xff)
	}
	return regs
}

func centiCelsius(s tempbank.Status) uint16 {
	c := s.Celsius()
	if math.IsNaN(c) {
		return NoTemperature
	}
	v := math.Round(c * 100)
	if v > math.MaxInt16 {
		v = math.MaxInt16
	} else if v < math.MinInt16+1 {
		v = math.MinInt16 + 1
	}
	return uint16(int16(v))
}

// registerWriter is the subset of modbus.Client used.
type registerWriter interface {
	WriteMultipleRegisters(address, quantity uint16, value []byte) ([]byte, error)
}

// Publisher writes register blocks to one Modbus TCP server.
type Publisher struct {
	mu      sync.Mutex
	close   func() error
	client  registerWriter
	address uint16
}

// Dial connects to the Modbus TCP server at endpoint.
func Dial(endpoint string, unitID uint8, address uint16, timeout time.Duration) (*Publisher, error) {
	if endpoint == "" {
		return nil, errors.New("publish: endpoint required")
	}
	h := modbus.NewTCPClientHandler(endpoint)
	h.Timeout = timeout
	h.SlaveId = unitID
	if err := h.Connect(); err != nil {
		return nil, err
	}
	return &Publisher{close: h.Close, client: modbus.NewClient(h), address: address}, nil
}

// Publish writes the snapshot in one request.
func (p *Publisher) Publish(st []tempbank.Status) error {
	regs := Encode(st)
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := p.client.WriteMultipleRegisters(p.address, uint16(len(regs)), packRegisters(regs))
	return err
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.close == nil {
		return nil
	}
	return p.close()
}

func packRegisters(regs []uint16) []byte {
	out := make([]byte, len(regs)*2)
	for i, r := range regs {
		out[2*i] = byte(r >> 8)
		out[2*i+1] = byte(r)
	}
	return out
}
