// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package ds18x20bank is a container for the packages reading banks of
// DS18B20 and DS18S20 1-wire temperature sensors.
//
// tempbank manages the slots, ds18b20 speaks to the sensors, ds248x and owport
// provide the 1-wire buses. cmd/tempbank ties them together.
package ds18x20bank
