// Package markers decimates dense per-pixel surface normals into a sparse set
// of oriented arrow markers for visualization, anchored at positions cached by
// the geometry projector.
package markers

import (
	"image/color"
	"math"
	"time"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/num/quat"

	"github.com/viam-labs/depthsim/frame"
	"github.com/viam-labs/depthsim/projection"
	"github.com/viam-labs/depthsim/spatial"
)

// Lifetime is how long a downstream renderer should keep a marker before
// retiring it; stale markers age out rather than being deleted explicitly.
const Lifetime = time.Second

// Marker is one arrow, anchored at a cloud position and aligned with the
// surface normal at that pixel.
type Marker struct {
	// ID is the row-major pixel index the marker was decimated from, stable
	// across frames so renderers replace rather than accumulate.
	ID          int
	Position    r3.Vector
	Orientation quat.Number
	Scale       r3.Vector
	Color       color.NRGBA
	Lifetime    time.Duration

	FrameID   string
	Timestamp time.Time
}

var (
	arrowScale = r3.Vector{X: 1, Y: 0.01, Z: 0.01}
	arrowColor = color.NRGBA{R: 255, A: 255}
	xAxis      = r3.Vector{X: 1}
)

// Orient returns the unit quaternion rotating the arrow's x axis onto the
// given normal: rotation axis is the cross product of the normal and (1,0,0),
// rotation angle is -acos of their dot product. A zero normal yields the
// identity.
func Orient(normal r3.Vector) quat.Number {
	if normal.X == 0 && normal.Y == 0 && normal.Z == 0 {
		return quat.Number{Real: 1}
	}
	axis := normal.Cross(xAxis)
	angle := -math.Acos(normal.Dot(xAxis))
	return spatial.Normalize(spatial.QuatFromAxisAngle(axis, angle))
}

// Generate emits one marker for every pixel whose row-major index is a
// multiple of the decimation stride, reading anchor positions from the
// projector's cache under the projector lock. It returns nil with no error
// when no positions have been cached yet (no frame projected).
func Generate(
	nf *frame.NormalFrame,
	proj *projection.Projector,
	decimation int,
	frameID string,
	ts time.Time,
) ([]Marker, error) {
	if decimation <= 0 {
		return nil, errors.Errorf("decimation stride must be positive, got %d", decimation)
	}

	var out []Marker
	ok := proj.ViewPositions(func(positions []float32) {
		out = make([]Marker, 0, nf.Pixels()/decimation+1)
		for idx := 0; idx < nf.Pixels(); idx++ {
			if idx%decimation != 0 {
				continue
			}
			nx, ny, nz := nf.NormalAt(idx)
			base := projection.PositionStride * idx
			out = append(out, Marker{
				ID: idx,
				Position: r3.Vector{
					X: float64(positions[base]),
					Y: float64(positions[base+1]),
					Z: float64(positions[base+2]),
				},
				Orientation: Orient(r3.Vector{X: float64(nx), Y: float64(ny), Z: float64(nz)}),
				Scale:       arrowScale,
				Color:       arrowColor,
				Lifetime:    Lifetime,
				FrameID:     frameID,
				Timestamp:   ts,
			})
		}
	})
	if !ok {
		return nil, nil
	}
	return out, nil
}
