// Copyright 2020 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// tempbank reads a bank of DS18x20 sensors periodically and prints, publishes
// and renders their temperatures.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GermanBionicSystems/ds18x20bank/ds18b20"
	"github.com/GermanBionicSystems/ds18x20bank/ds248x"
	"github.com/GermanBionicSystems/ds18x20bank/heatstrip"
	"github.com/GermanBionicSystems/ds18x20bank/internal/config"
	"github.com/GermanBionicSystems/ds18x20bank/internal/publish"
	"github.com/GermanBionicSystems/ds18x20bank/internal/render"
	"github.com/GermanBionicSystems/ds18x20bank/owport"
	"github.com/GermanBionicSystems/ds18x20bank/tempbank"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

func main() {
	cfgPath := flag.String("config", "tempbank.yaml", "Path to the YAML configuration")
	once := flag.Bool("once", false, "Read the bank once and exit")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal(err)
	}
	if _, err := host.Init(); err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, cfg, *once); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, cfg *config.Config, once bool) error {
	port, closePort, err := openPort(cfg.Port)
	if err != nil {
		return err
	}
	defer closePort()

	sensor, err := ds18b20.NewProtocol(cfg.Bank.Resolution)
	if err != nil {
		return err
	}
	bank, err := tempbank.New(port, cfg.Bank.Slots, &tempbank.Opts{
		ErrorThreshold: cfg.Bank.ErrorThreshold,
		Sensor:         sensor,
		OnSensorError: func(slot int) {
			log.Printf("slot %d: temperature discarded", slot)
		},
	})
	if bank == nil {
		return err
	}
	defer bank.Close()
	if err != nil {
		// Empty slots are searched again on later cycles.
		log.Print(err)
	}
	log.Printf("%s: %d slots", bank, bank.Len())
	if err := configureSensors(bank, sensor); err != nil {
		log.Print(err)
	}
	if nl, ok := port.(*owport.Netlink); ok {
		if low := idleLow(nl.Levels(), cfg.Port.Pins, bank.Len()); len(low) != 0 {
			log.Printf("%s: pins %v idle low, missing pull-up or shorted line", nl, low)
		}
	}

	var pub *publish.Publisher
	if m := cfg.Modbus; m != nil {
		if pub, err = publish.Dial(m.Endpoint, m.UnitID, m.Address, m.Timeout()); err != nil {
			return fmt.Errorf("modbus %s: %w", m.Endpoint, err)
		}
		defer pub.Close()
	}

	strip := heatstrip.New(nil, &heatstrip.Opts{NoColor: !useColor(cfg.Display.Color)})
	defer strip.Halt()

	t := time.NewTicker(cfg.Bank.Interval())
	defer t.Stop()
	for {
		if err := cycle(ctx, bank, cfg.Bank.Settle()); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			log.Print(err)
		}
		st := bank.Snapshot()
		if err := strip.Show(st); err != nil {
			log.Print(err)
		}
		if pub != nil {
			if err := pub.Publish(st); err != nil {
				log.Printf("modbus: %v", err)
			}
		}
		if r := cfg.Render; r != nil {
			if err := render.SavePNG(r.PNG, st, r.Width, r.Height); err != nil {
				log.Printf("render: %v", err)
			}
		}
		if once {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}

// cycle starts every conversion, waits for them and reads the results.
func cycle(ctx context.Context, bank *tempbank.Bank, settle time.Duration) error {
	errStart := bank.StartConversions()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(settle):
	}
	return errors.Join(errStart, bank.UpdateTemperatures())
}

// configureSensors writes the configured resolution to every sensor found, so
// their conversion time matches the settle time.
func configureSensors(bank *tempbank.Bank, sensor *ds18b20.Protocol) error {
	var errs []error
	for i := 0; i < bank.Len(); i++ {
		rom, ok := bank.ROM(i)
		if !ok {
			continue
		}
		if _, err := sensor.Configure(bank.Bus(i), rom); err != nil {
			errs = append(errs, fmt.Errorf("slot %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// idleLow returns the slots whose configured pin reads low. Pins left to the
// kernel are skipped since their level is not read.
func idleLow(levels uint16, pins []string, n int) []int {
	var low []int
	for i := 0; i < n && i < len(pins); i++ {
		if pins[i] != "" && levels&(1<<uint(i)) == 0 {
			low = append(low, i)
		}
	}
	return low
}

func openPort(c config.PortConfig) (tempbank.Port, func() error, error) {
	nop := func() error { return nil }
	switch c.Kind {
	case config.PortNetlink:
		if len(c.Pins) > len(c.Masters) {
			return nil, nil, fmt.Errorf("%d pins but %d masters", len(c.Pins), len(c.Masters))
		}
		pins := make([]gpio.PinIO, len(c.Masters))
		for i, name := range c.Pins {
			if name == "" {
				continue
			}
			if pins[i] = gpioreg.ByName(name); pins[i] == nil {
				return nil, nil, fmt.Errorf("failed to find pin %q", name)
			}
		}
		p, err := owport.NewNetlink(c.Name, pins, c.Masters)
		if err != nil {
			return nil, nil, err
		}
		return p, nop, nil
	case config.PortDS2482:
		b, err := i2creg.Open(c.I2CBus)
		if err != nil {
			return nil, nil, err
		}
		devs := make([]*ds248x.Dev, 0, len(c.Addresses))
		for _, addr := range c.Addresses {
			d, err := ds248x.New(b, addr, nil)
			if err != nil {
				b.Close()
				return nil, nil, err
			}
			devs = append(devs, d)
		}
		p, err := owport.NewDS2482(devs...)
		if err != nil {
			b.Close()
			return nil, nil, err
		}
		return p, b.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown port kind %q", c.Kind)
	}
}

func useColor(mode string) bool {
	switch mode {
	case config.ColorAlways:
		return true
	case config.ColorNever:
		return false
	default:
		return heatstrip.IsTerminal(os.Stdout)
	}
}
