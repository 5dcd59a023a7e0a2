package depthimage

import (
	"math"
	"testing"

	"go.viam.com/test"

	"github.com/viam-labs/depthsim/frame"
)

func TestEncodeFloat32(t *testing.T) {
	rf, err := frame.NewRangeFrame([]float32{0.1, 0.5, 2.25, 0.4}, 2, 2)
	test.That(t, err, test.ShouldBeNil)

	img := NewEncoder(2, 2, 0.4, EncodingFloat32).Encode(rf)
	test.That(t, img.Encoding, test.ShouldEqual, EncodingFloat32)
	test.That(t, img.Encoding.String(), test.ShouldEqual, "32FC1")
	test.That(t, img.Step, test.ShouldEqual, 8)
	test.That(t, img.Data, test.ShouldHaveLength, 16)

	// Readings at or below the cutoff encode as NaN.
	test.That(t, math.IsNaN(float64(img.Float32At(0))), test.ShouldBeTrue)
	test.That(t, img.Float32At(1), test.ShouldEqual, float32(0.5))
	test.That(t, img.Float32At(2), test.ShouldEqual, float32(2.25))
	test.That(t, math.IsNaN(float64(img.Float32At(3))), test.ShouldBeTrue)
}

func TestEncodeUint16Millimeters(t *testing.T) {
	rf, err := frame.NewRangeFrame([]float32{0.1, 0.5, 2.2506, 3.9994}, 2, 2)
	test.That(t, err, test.ShouldBeNil)

	img := NewEncoder(2, 2, 0.4, EncodingUint16Millimeters).Encode(rf)
	test.That(t, img.Encoding.String(), test.ShouldEqual, "16UC1")
	test.That(t, img.Step, test.ShouldEqual, 4)
	test.That(t, img.Data, test.ShouldHaveLength, 8)

	test.That(t, img.Uint16At(0), test.ShouldEqual, 0)
	test.That(t, img.Uint16At(1), test.ShouldEqual, 500)
	test.That(t, img.Uint16At(2), test.ShouldEqual, 2251) // rounded, not truncated
	test.That(t, img.Uint16At(3), test.ShouldEqual, 3999)
}

func TestUint16RoundTrip(t *testing.T) {
	depths := make([]float32, 64)
	for i := range depths {
		depths[i] = 0.41 + 0.05*float32(i)
	}
	rf, err := frame.NewRangeFrame(depths, 8, 8)
	test.That(t, err, test.ShouldBeNil)

	img := NewEncoder(8, 8, 0.4, EncodingUint16Millimeters).Encode(rf)
	for i, d := range depths {
		back := float64(img.Uint16At(i)) / 1000.0
		test.That(t, math.Abs(back-float64(d)), test.ShouldBeLessThanOrEqualTo, 0.001)
	}
}

func TestIntrinsicsFromFOV(t *testing.T) {
	in := IntrinsicsFromFOV(2, 1, math.Pi/2)
	test.That(t, in.Fx, test.ShouldAlmostEqual, 1.0, 1e-12)
	test.That(t, in.Fy, test.ShouldAlmostEqual, 1.0, 1e-12)
	test.That(t, in.Ppx, test.ShouldAlmostEqual, 0.5, 1e-12)
	test.That(t, in.Ppy, test.ShouldAlmostEqual, 0, 1e-12)

	k := in.Matrix()
	r, c := k.Dims()
	test.That(t, r, test.ShouldEqual, 3)
	test.That(t, c, test.ShouldEqual, 3)
	test.That(t, k.At(0, 0), test.ShouldAlmostEqual, in.Fx, 1e-12)
	test.That(t, k.At(0, 2), test.ShouldAlmostEqual, in.Ppx, 1e-12)
	test.That(t, k.At(2, 2), test.ShouldEqual, 1.0)
}

func TestEncodeReflectance(t *testing.T) {
	rf, err := frame.NewReflectanceFrame([]float32{0, 0.25, 0.5, 1}, 2, 2)
	test.That(t, err, test.ShouldBeNil)

	img := EncodeReflectance(rf)
	test.That(t, img.Encoding, test.ShouldEqual, EncodingFloat32)
	test.That(t, img.Float32At(1), test.ShouldEqual, float32(0.25))
	test.That(t, img.Float32At(3), test.ShouldEqual, float32(1))
}
