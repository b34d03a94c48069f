// Copyright 2020 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package config holds the YAML configuration of the tempbank command.
package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the whole tempbank.yaml file.
type Config struct {
	Bank    BankConfig    `yaml:"bank"`
	Port    PortConfig    `yaml:"port"`
	Modbus  *ModbusConfig `yaml:"modbus"`
	Render  *RenderConfig `yaml:"render"`
	Display DisplayConfig `yaml:"display"`
}

// ---- BANK ----

// BankConfig sizes the bank and sets its read cycle.
type BankConfig struct {
	Slots          int `yaml:"slots"`
	ErrorThreshold int `yaml:"error_threshold"`
	Resolution     int `yaml:"resolution"`  // bits, 9..12
	IntervalMs     int `yaml:"interval_ms"` // duty cycle period
	SettleMs       int `yaml:"settle_ms"`   // wait between start and read; 0 = conversion time
}

// ---- PORT ----

// Port kinds.
const (
	PortNetlink = "netlink"
	PortDS2482  = "ds2482"
)

// PortConfig selects the hardware carrying the 1-wire buses.
type PortConfig struct {
	Kind string `yaml:"kind"`
	Name string `yaml:"name"`

	// netlink: one GPIO name ("" to leave the pin alone) and one w1 bus master
	// per slot.
	Pins    []string `yaml:"pins"`
	Masters []uint32 `yaml:"masters"`

	// ds2482: I²C bus name ("" for the first one) and chip addresses.
	I2CBus    string   `yaml:"i2c_bus"`
	Addresses []uint16 `yaml:"addresses"`
}

// ---- OUTPUTS ----

// ModbusConfig enables the holding-register mirror.
type ModbusConfig struct {
	Endpoint  string `yaml:"endpoint"`
	UnitID    uint8  `yaml:"unit_id"`
	Address   uint16 `yaml:"address"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

// RenderConfig enables the PNG chart written after every cycle.
type RenderConfig struct {
	PNG    string `yaml:"png"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
}

// Color modes of the terminal status line.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// DisplayConfig controls the terminal status line.
type DisplayConfig struct {
	Color string `yaml:"color"`
}

// Load reads, normalizes and validates the file at path. Unknown keys are
// rejected.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

// Parse is Load on an in-memory document.
func Parse(raw []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	Normalize(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
