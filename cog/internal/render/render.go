// Package render turns a single band of raster samples into a
// colorized PNG.
package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"strings"

	"github.com/mazznoer/colorgrad"
)

// ErrUnknownColorMap is returned for color map names without a
// registered gradient.
var ErrUnknownColorMap = errors.New("render: unknown color map")

// Gradient resolves a matplotlib-style color map name to a gradient.
func Gradient(name string) (colorgrad.Gradient, error) {
	switch strings.ToLower(name) {
	case "", "viridis":
		return colorgrad.Viridis(), nil
	case "inferno":
		return colorgrad.Inferno(), nil
	case "magma":
		return colorgrad.Magma(), nil
	case "plasma":
		return colorgrad.Plasma(), nil
	case "cividis":
		return colorgrad.Cividis(), nil
	case "turbo":
		return colorgrad.Turbo(), nil
	case "greys", "gray", "grey":
		return colorgrad.Greys(), nil
	case "blues":
		return colorgrad.Blues(), nil
	case "spectral":
		return colorgrad.Spectral(), nil
	default:
		return colorgrad.Gradient{}, fmt.Errorf("%w: %q", ErrUnknownColorMap, name)
	}
}

// WritePNG renders a width×height grid of samples through the named
// color map and writes it to path. Samples are normalized to the
// grid's own min/max range; NaN samples render transparent. The file
// is written through a .part temporary so a failed render never
// leaves a partial PNG behind.
func WritePNG(path string, samples []float64, width, height int, colorMap string) (err error) {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("render: invalid dimensions %dx%d", width, height)
	}
	if len(samples) != width*height {
		return fmt.Errorf("render: got %d samples for %dx%d grid", len(samples), width, height)
	}
	grad, err := Gradient(colorMap)
	if err != nil {
		return err
	}

	lo, hi := sampleRange(samples)
	span := hi - lo
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := samples[y*width+x]
			if math.IsNaN(v) {
				img.SetNRGBA(x, y, color.NRGBA{})
				continue
			}
			t := 0.5
			if span > 0 {
				t = (v - lo) / span
			}
			r, g, b, a := grad.At(t).RGBA255()
			img.SetNRGBA(x, y, color.NRGBA{R: r, G: g, B: b, A: a})
		}
	}

	tmp := path + ".part"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("render: create %s: %w", tmp, err)
	}
	defer func() {
		file.Close()
		if err != nil {
			os.Remove(tmp)
		}
	}()
	if err = png.Encode(file, img); err != nil {
		return fmt.Errorf("render: encode png: %w", err)
	}
	if err = file.Close(); err != nil {
		return fmt.Errorf("render: close %s: %w", tmp, err)
	}
	if err = os.Rename(tmp, path); err != nil {
		return fmt.Errorf("render: rename %s: %w", tmp, err)
	}
	return nil
}

func sampleRange(samples []float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range samples {
		if math.IsNaN(v) {
			continue
		}
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if lo > hi {
		// all NaN
		return 0, 0
	}
	return lo, hi
}
