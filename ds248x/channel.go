// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ds248x

import (
	"fmt"

	"periph.io/x/conn/v3/onewire"
)

// Channel is one 1-wire channel of a ds248x.
//
// Every transaction first selects the channel on the chip, so several
// Channel values of the same Dev can be used in turn. A search holds the
// channel only for each individual step; do not interleave searches on two
// channels of the same chip.
type Channel struct {
	d  *Dev
	ch int
}

// Channel returns the 1-wire bus connected to channel ch. Only the
// DS2482-800 has channels 1 to 7.
func (d *Dev) Channel(ch int) (*Channel, error) {
	if ch < 0 || ch >= d.variant.Channels() {
		return nil, fmt.Errorf("ds248x: %s has no channel %d", d.variant, ch)
	}
	return &Channel{d: d, ch: ch}, nil
}

func (c *Channel) String() string {
	return fmt.Sprintf("%s/%d", c.d, c.ch)
}

// Number returns the channel number on the chip.
func (c *Channel) Number() int {
	return c.ch
}

// Tx implements onewire.Bus.
func (c *Channel) Tx(w, r []byte, power onewire.Pullup) error {
	c.d.Lock()
	defer c.d.Unlock()
	if err := c.d.selectChannel(c.ch); err != nil {
		return err
	}
	return c.d.tx(w, r, power)
}

// Search implements onewire.Bus.
func (c *Channel) Search(alarmOnly bool) ([]onewire.Address, error) {
	return onewire.Search(c, alarmOnly)
}

// SearchTriplet implements onewire.BusSearcher.
func (c *Channel) SearchTriplet(direction byte) (onewire.TripletResult, error) {
	c.d.Lock()
	defer c.d.Unlock()
	if err := c.d.selectChannel(c.ch); err != nil {
		return onewire.TripletResult{}, err
	}
	return c.d.searchTriplet(direction)
}

var _ onewire.BusSearcher = &Channel{}
