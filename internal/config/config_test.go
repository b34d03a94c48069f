// Copyright 2020 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

const netlinkYAML = `
bank:
  error_threshold: 2
  resolution: 10
port:
  kind: netlink
  name: P1
  pins: [GPIO4, "", GPIO22]
  masters: [1, 2, 3]
modbus:
  endpoint: 127.0.0.1:502
render:
  png: /tmp/bank.png
`

func TestParse_defaults(t *testing.T) {
	cfg, err := Parse([]byte(netlinkYAML))
	if err != nil {
		t.Fatal(err)
	}
	want := &Config{
		Bank: BankConfig{Slots: 3, ErrorThreshold: 2, Resolution: 10, IntervalMs: 5000, SettleMs: 188},
		Port: PortConfig{
			Kind:    PortNetlink,
			Name:    "P1",
			Pins:    []string{"GPIO4", "", "GPIO22"},
			Masters: []uint32{1, 2, 3},
		},
		Modbus:  &ModbusConfig{Endpoint: "127.0.0.1:502", UnitID: 1, TimeoutMs: 1000},
		Render:  &RenderConfig{PNG: "/tmp/bank.png", Width: 640, Height: 320},
		Display: DisplayConfig{Color: ColorAuto},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("Parse() mismatch (-want +got):\n%s", diff)
	}
	if cfg.Bank.Settle() != 188*time.Millisecond || cfg.Bank.Interval() != 5*time.Second {
		t.Fatal(cfg.Bank.Settle(), cfg.Bank.Interval())
	}
	if cfg.Modbus.Timeout() != time.Second {
		t.Fatal(cfg.Modbus.Timeout())
	}
}

func TestParse_ds2482(t *testing.T) {
	cfg, err := Parse([]byte("port:\n  kind: ds2482\n  addresses: [0x18, 0x19]\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Bank.Slots != 16 {
		t.Fatalf("expected 16 slots, got %d", cfg.Bank.Slots)
	}
	if cfg.Bank.SettleMs != 752 {
		t.Fatalf("expected 752ms settle time, got %d", cfg.Bank.SettleMs)
	}
	if cfg.Modbus != nil || cfg.Render != nil {
		t.Fatal("optional outputs enabled")
	}
}

func TestParse_unknownKey(t *testing.T) {
	if _, err := Parse([]byte("bank:\n  slot: 3\n")); err == nil {
		t.Fatal("unknown key accepted")
	}
}

func TestValidate(t *testing.T) {
	data := []struct {
		name string
		yaml string
		want string
	}{
		{"slots", "bank: {slots: 17}\nport: {masters: [1]}", "bank.slots 17"},
		{"threshold", "bank: {error_threshold: 255}\nport: {masters: [1]}", "bank.error_threshold"},
		{"resolution", "bank: {resolution: 8}\nport: {masters: [1]}", "bank.resolution 8"},
		{"settle", "bank: {interval_ms: 500, settle_ms: 750}\nport: {masters: [1]}", "bank.settle_ms"},
		{"masters", "bank: {slots: 2}\nport: {masters: [1]}", "2 slots but 1 masters"},
		{"pins", "port: {pins: [GPIO4], masters: [1, 2]}", "1 pins but 2 masters"},
		{"duplicate", "port: {masters: [1, 1]}", "used twice"},
		{"address", "port: {kind: ds2482, addresses: [0x30]}", "invalid DS2482 address 0x30"},
		{"kind", "port: {kind: spi}", `port.kind "spi"`},
		{"modbus", "port: {masters: [1]}\nmodbus: {unit_id: 3}", "modbus.endpoint required"},
		{"render", "port: {masters: [1]}\nrender: {png: a.png, width: 10}", "10x320 is too small"},
		{"color", "port: {masters: [1]}\ndisplay: {color: blue}", `display.color "blue"`},
	}
	for _, line := range data {
		t.Run(line.name, func(t *testing.T) {
			_, err := Parse([]byte(line.yaml))
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), line.want) {
				t.Fatalf("expected %q in %q", line.want, err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tempbank.yaml")
	if err := os.WriteFile(path, []byte(netlinkYAML), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port.Name != "P1" {
		t.Fatal(cfg.Port.Name)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("missing file accepted")
	}
}
