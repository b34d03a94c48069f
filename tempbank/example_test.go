// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package tempbank_test

import (
	"fmt"
	"log"
	"time"

	"github.com/GermanBionicSystems/ds18x20bank/ds18b20"
	"github.com/GermanBionicSystems/ds18x20bank/ds248x"
	"github.com/GermanBionicSystems/ds18x20bank/owport"
	"github.com/GermanBionicSystems/ds18x20bank/tempbank"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

func Example() {
	// Make sure periph is initialized.
	if _, err := host.Init(); err != nil {
		log.Fatal(err)
	}

	// A DS2482-800 at the default address gives a port of 8 pins.
	b, err := i2creg.Open("")
	if err != nil {
		log.Fatalf("failed to open I²C: %v", err)
	}
	defer b.Close()
	d, err := ds248x.New(b, 0x18, nil)
	if err != nil {
		log.Fatal(err)
	}
	port, err := owport.NewDS2482(d)
	if err != nil {
		log.Fatal(err)
	}

	// Tolerate 2 consecutive failed reads per sensor before discarding its
	// temperature.
	bank, err := tempbank.New(port, 8, &tempbank.Opts{ErrorThreshold: 2})
	if bank == nil {
		log.Fatal(err)
	}
	defer bank.Close()
	if err != nil {
		// Some slots are empty; they are searched again on every update.
		log.Print(err)
	}

	for {
		if err := bank.StartConversions(); err != nil {
			log.Print(err)
		}
		time.Sleep(ds18b20.ConversionTime(12))
		if err := bank.UpdateTemperatures(); err != nil {
			log.Print(err)
		}
		for i := 0; i < bank.Len(); i++ {
			fmt.Printf("%d: %.2f°C\n", i, bank.Temperature(i))
		}
		time.Sleep(5 * time.Second)
	}
}
