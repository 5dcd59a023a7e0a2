// Package depthimage serializes range and reflectance frames into 2-D images
// for image consumers, and derives the pinhole calibration metadata published
// alongside them.
package depthimage

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/viam-labs/depthsim/frame"
)

// Encoding selects the pixel representation of an encoded image.
type Encoding int

const (
	// EncodingFloat32 emits each pixel as a little-endian IEEE-754 32-bit
	// float in meters, NaN for no return.
	EncodingFloat32 Encoding = iota
	// EncodingUint16Millimeters emits each pixel as a little-endian unsigned
	// 16-bit integer in millimeters, 0 for no return.
	EncodingUint16Millimeters
)

func (e Encoding) String() string {
	switch e {
	case EncodingFloat32:
		return "32FC1"
	case EncodingUint16Millimeters:
		return "16UC1"
	default:
		return "unknown"
	}
}

// BytesPerPixel returns the pixel width of the encoding in bytes.
func (e Encoding) BytesPerPixel() int {
	if e == EncodingUint16Millimeters {
		return 2
	}
	return 4
}

// Image is an encoded single-channel 2-D sensor image.
type Image struct {
	Width    int
	Height   int
	Step     int // bytes per row
	Encoding Encoding
	Data     []byte

	FrameID   string
	Timestamp time.Time
}

// Encoder serializes range frames for the depth image stream. Output
// dimensions come from the configured sensor grid, not the literal input
// buffer, matching the organized outputs of the rest of the pipeline.
type Encoder struct {
	width    int
	height   int
	cutoff   float64
	encoding Encoding
}

// NewEncoder returns an encoder for the configured grid. cutoff is the
// minimum valid range; shorter readings encode as the no-return value.
func NewEncoder(width, height int, cutoff float64, encoding Encoding) *Encoder {
	return &Encoder{width: width, height: height, cutoff: cutoff, encoding: encoding}
}

// Encode serializes the range frame under the encoder's configured encoding.
func (e *Encoder) Encode(rf *frame.RangeFrame) *Image {
	img := &Image{
		Width:    e.width,
		Height:   e.height,
		Step:     e.encoding.BytesPerPixel() * e.width,
		Encoding: e.encoding,
		Data:     make([]byte, e.width*e.height*e.encoding.BytesPerPixel()),
	}

	for idx := 0; idx < e.width*e.height; idx++ {
		depth := float64(rf.Depths[idx])
		switch e.encoding {
		case EncodingUint16Millimeters:
			var mm uint16
			if depth > e.cutoff {
				mm = uint16(math.Round(depth * 1000.0))
			}
			binary.LittleEndian.PutUint16(img.Data[idx*2:], mm)
		default:
			v := float32(math.NaN())
			if depth > e.cutoff {
				v = rf.Depths[idx]
			}
			binary.LittleEndian.PutUint32(img.Data[idx*4:], math.Float32bits(v))
		}
	}
	return img
}

// EncodeReflectance packs a single-channel reflectance frame as a float32
// image. Reflectance has no cutoff; values pass through untouched.
func EncodeReflectance(rf *frame.ReflectanceFrame) *Image {
	img := &Image{
		Width:    rf.Width,
		Height:   rf.Height,
		Step:     4 * rf.Width,
		Encoding: EncodingFloat32,
		Data:     make([]byte, rf.Width*rf.Height*4),
	}
	for idx, v := range rf.Values {
		binary.LittleEndian.PutUint32(img.Data[idx*4:], math.Float32bits(v))
	}
	return img
}

// Float32At decodes the float pixel at the given row-major index. Intended
// for tests and small consumers; bulk readers should walk Data directly.
func (img *Image) Float32At(idx int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(img.Data[idx*4:]))
}

// Uint16At decodes the 16-bit pixel at the given row-major index.
func (img *Image) Uint16At(idx int) uint16 {
	return binary.LittleEndian.Uint16(img.Data[idx*2:])
}
