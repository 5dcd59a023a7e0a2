// Package frame holds the raw buffer types delivered by a simulated depth
// camera: metric range images, color images, per-pixel surface normals, and
// reflectance maps. All buffers are row-major.
package frame

import (
	"github.com/pkg/errors"
)

// NormalChannels is the per-pixel float count of a normals buffer (nx, ny, nz
// plus one unused slot).
const NormalChannels = 4

// RangeFrame is a dense range image: one float32 per pixel, measured along the
// optical axis. Values at or below the consumer's cutoff are treated as
// "no return".
type RangeFrame struct {
	Depths []float32
	Width  int
	Height int
}

// NewRangeFrame validates buffer size against the grid and wraps it without
// copying.
func NewRangeFrame(depths []float32, width, height int) (*RangeFrame, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("invalid range frame dimensions %dx%d", width, height)
	}
	if len(depths) != width*height {
		return nil, errors.Errorf("range buffer has %d values, want %d for %dx%d grid",
			len(depths), width*height, width, height)
	}
	return &RangeFrame{Depths: depths, Width: width, Height: height}, nil
}

// At returns the range value at column i, row j.
func (rf *RangeFrame) At(i, j int) float32 {
	return rf.Depths[j*rf.Width+i]
}

// ColorFrame is a color (3 channel RGB) or mono (1 channel) image. A frame
// whose buffer does not match either layout for the consumer's grid is treated
// as absent during fusion, never as an error.
type ColorFrame struct {
	Data     []byte
	Width    int
	Height   int
	Channels int
}

// NewColorFrame wraps a raw color buffer. Unlike range frames, size mismatches
// are tolerated here; fusion degrades to black instead of failing.
func NewColorFrame(data []byte, width, height, channels int) *ColorFrame {
	return &ColorFrame{Data: data, Width: width, Height: height, Channels: channels}
}

// RGBSized reports whether the buffer holds exactly rows*cols RGB triplets.
func (cf *ColorFrame) RGBSized(rows, cols int) bool {
	return cf != nil && len(cf.Data) == rows*cols*3
}

// MonoSized reports whether the buffer holds exactly rows*cols single-channel
// samples.
func (cf *ColorFrame) MonoSized(rows, cols int) bool {
	return cf != nil && len(cf.Data) == rows*cols
}

// NormalFrame is a dense per-pixel surface normal buffer, four floats per
// pixel on the same grid as the range image.
type NormalFrame struct {
	Values []float32
	Width  int
	Height int
}

// NewNormalFrame validates buffer size against the grid and wraps it without
// copying.
func NewNormalFrame(values []float32, width, height int) (*NormalFrame, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("invalid normal frame dimensions %dx%d", width, height)
	}
	if len(values) != width*height*NormalChannels {
		return nil, errors.Errorf("normal buffer has %d values, want %d for %dx%d grid",
			len(values), width*height*NormalChannels, width, height)
	}
	return &NormalFrame{Values: values, Width: width, Height: height}, nil
}

// NormalAt returns the (nx, ny, nz) components for the pixel at the given
// row-major index.
func (nf *NormalFrame) NormalAt(idx int) (float32, float32, float32) {
	base := idx * NormalChannels
	return nf.Values[base], nf.Values[base+1], nf.Values[base+2]
}

// Pixels returns the number of pixels on the grid.
func (nf *NormalFrame) Pixels() int {
	return nf.Width * nf.Height
}

// ReflectanceFrame is a single-channel float image of per-pixel reflectance.
type ReflectanceFrame struct {
	Values []float32
	Width  int
	Height int
}

// NewReflectanceFrame validates buffer size against the grid and wraps it
// without copying.
func NewReflectanceFrame(values []float32, width, height int) (*ReflectanceFrame, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("invalid reflectance frame dimensions %dx%d", width, height)
	}
	if len(values) != width*height {
		return nil, errors.Errorf("reflectance buffer has %d values, want %d for %dx%d grid",
			len(values), width*height, width, height)
	}
	return &ReflectanceFrame{Values: values, Width: width, Height: height}, nil
}
