// Copyright 2020 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package render draws a bank snapshot as a PNG bar chart.
package render

import (
	"fmt"
	"image"
	"io"
	"math"
	"sync"

	"github.com/GermanBionicSystems/ds18x20bank/tempbank"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

// Scale of the vertical axis, in °C.
const (
	MinCelsius = -10.
	MaxCelsius = 50.
)

const padding = 8.

var (
	faceOnce sync.Once
	face     font.Face
	faceErr  error
)

func loadFace() (font.Face, error) {
	faceOnce.Do(func() {
		f, err := truetype.Parse(goregular.TTF)
		if err != nil {
			faceErr = err
			return
		}
		face = truetype.NewFace(f, &truetype.Options{Size: 12})
	})
	return face, faceErr
}

// Image draws one bar per slot. Slots without a valid temperature get an
// empty gray frame and their ROM state as label.
func Image(st []tempbank.Status, w, h int) (image.Image, error) {
	f, err := loadFace()
	if err != nil {
		return nil, err
	}
	dc := gg.NewContext(w, h)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.SetFontFace(f)

	top := padding
	bottom := float64(h) - 2*padding - 14
	dc.SetRGB(0.8, 0.8, 0.8)
	dc.SetLineWidth(1)
	if y := yOf(0, top, bottom); y > top && y < bottom {
		dc.DrawLine(padding, y, float64(w)-padding, y)
		dc.Stroke()
	}
	if len(st) == 0 {
		dc.SetRGB(0, 0, 0)
		dc.DrawStringAnchored("no slots", float64(w)/2, float64(h)/2, 0.5, 0.5)
		return dc.Image(), nil
	}

	slotW := (float64(w) - 2*padding) / float64(len(st))
	for i, s := range st {
		x := padding + float64(i)*slotW
		bw := slotW - padding
		if c := s.Celsius(); !math.IsNaN(c) {
			y := yOf(c, top, bottom)
			base := yOf(0, top, bottom)
			r, g, b := barColor(c)
			dc.SetRGB(r, g, b)
			dc.DrawRectangle(x, math.Min(y, base), bw, math.Abs(base-y))
			dc.Fill()
			dc.SetRGB(0, 0, 0)
			dc.DrawStringAnchored(fmt.Sprintf("%.1f", c), x+bw/2, math.Min(y, base)-2, 0.5, 0)
		} else {
			dc.SetRGB(0.6, 0.6, 0.6)
			dc.DrawRectangle(x, top, bw, bottom-top)
			dc.Stroke()
			dc.DrawStringAnchored(s.State.String(), x+bw/2, (top+bottom)/2, 0.5, 0.5)
		}
		dc.SetRGB(0, 0, 0)
		dc.DrawStringAnchored(fmt.Sprintf("%d", s.Slot), x+bw/2, float64(h)-padding, 0.5, 0)
	}
	return dc.Image(), nil
}

// WritePNG encodes the chart to w.
func WritePNG(out io.Writer, st []tempbank.Status, w, h int) error {
	img, err := Image(st, w, h)
	if err != nil {
		return err
	}
	return gg.NewContextForImage(img).EncodePNG(out)
}

// SavePNG writes the chart to path.
func SavePNG(path string, st []tempbank.Status, w, h int) error {
	img, err := Image(st, w, h)
	if err != nil {
		return err
	}
	return gg.SavePNG(path, img)
}

func yOf(c, top, bottom float64) float64 {
	c = math.Max(MinCelsius, math.Min(MaxCelsius, c))
	return bottom - (c-MinCelsius)/(MaxCelsius-MinCelsius)*(bottom-top)
}

func barColor(c float64) (float64, float64, float64) {
	f := (c - MinCelsius) / (MaxCelsius - MinCelsius)
	f = math.Max(0, math.Min(1, f))
	return f, 0.2, 1 - f
}
