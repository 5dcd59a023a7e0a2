package depthimage

import (
	"math"
	"time"

	"gonum.org/v1/gonum/mat"
)

// Intrinsics is the pinhole calibration of the simulated camera. The
// simulator's ideal camera is square-pixel and undistorted, so Fx equals Fy
// and the principal point sits at the grid center.
type Intrinsics struct {
	Width  int
	Height int
	Fx     float64
	Fy     float64
	Ppx    float64
	Ppy    float64
}

// IntrinsicsFromFOV derives pinhole intrinsics from the sensor grid and its
// horizontal field of view in radians, using the same focal length formula as
// the point cloud projection.
func IntrinsicsFromFOV(width, height int, hfov float64) Intrinsics {
	fl := float64(width) / (2.0 * math.Tan(hfov/2.0))
	return Intrinsics{
		Width:  width,
		Height: height,
		Fx:     fl,
		Fy:     fl,
		Ppx:    0.5 * float64(width-1),
		Ppy:    0.5 * float64(height-1),
	}
}

// Matrix returns the 3x3 camera matrix K.
func (i Intrinsics) Matrix() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		i.Fx, 0, i.Ppx,
		0, i.Fy, i.Ppy,
		0, 0, 1,
	})
}

// CameraInfo is the calibration metadata published on the depth-info stream.
type CameraInfo struct {
	Intrinsics
	FrameID   string
	Timestamp time.Time
}
