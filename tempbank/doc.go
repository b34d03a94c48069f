// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package tempbank manages a bank of DS18S20/DS18B20 temperature sensors
// wired one per pin on a single port of up to 16 pins.
//
// Each pin is a slot with its own 1-wire bus and exactly one sensor. Do not
// connect several sensors to one pin, and do not forget the 4.7kΩ pull-up.
//
// A slot tracks the ROM number (1-wire address) of its sensor, the last
// accepted temperature and the number of consecutive failed reads. Failed
// reads are tolerated up to Opts.ErrorThreshold: until then the previous
// temperature is kept. Past it the temperature is discarded, the
// Opts.OnSensorError hook is called and the ROM number is searched again.
//
// The bank never sleeps. Call StartConversions, wait for the conversion time
// of the sensors (ds18b20.ConversionTime, about 750ms at 12 bits), then call
// UpdateTemperatures. Reading too early is reported as ErrNotReady and
// counted like any other failed read.
//
// A Bank is not safe for concurrent use.
package tempbank
