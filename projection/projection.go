// Package projection converts dense range images into organized 3-D point
// clouds using pinhole-camera angle geometry, fuses separately captured color
// imagery into per-point colors, and maintains a lock-guarded cache of the
// last computed positions for reuse by sparse consumers such as the normal
// marker generator.
package projection

import (
	"math"
	"sync"

	"github.com/pkg/errors"

	"github.com/viam-labs/depthsim/frame"
	"github.com/viam-labs/depthsim/pointcloud"
)

// PositionStride is the float count per cached pixel: x, y, z plus one unused
// slot kept for layout compatibility with packed xyz+rgb buffers.
const PositionStride = 4

var nan32 = float32(math.NaN())

// Projector converts range frames from a fixed sensor grid into organized
// point clouds. A single mutex serializes projection, color fusion, cached
// position updates, and any reads of the cache; the critical section spans
// full cloud construction so readers never observe a half-written frame.
type Projector struct {
	width  int
	height int
	cutoff float64

	// tanYaw[i] is tan(atan2(i - 0.5*(width-1), fl)) for column i; pitch is
	// computed per row in the projection loop.
	tanYaw      []float64
	focalLength float64

	mu     sync.Mutex
	cached []float32 // allocated on first frame, PositionStride floats per pixel
}

// NewProjector builds a projector for the given grid and horizontal field of
// view in radians. cutoff is the minimum valid range; anything at or below it
// is treated as no return.
func NewProjector(width, height int, hfov, cutoff float64) (*Projector, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("invalid sensor grid %dx%d", width, height)
	}
	if hfov <= 0 || hfov >= math.Pi {
		return nil, errors.Errorf("horizontal fov %f rad out of range (0, pi)", hfov)
	}
	fl := float64(width) / (2.0 * math.Tan(hfov/2.0))
	tanYaw := make([]float64, width)
	for i := 0; i < width; i++ {
		var yAngle float64
		if width > 1 {
			yAngle = math.Atan2(float64(i)-0.5*float64(width-1), fl)
		}
		tanYaw[i] = math.Tan(yAngle)
	}
	return &Projector{
		width:       width,
		height:      height,
		cutoff:      cutoff,
		tanYaw:      tanYaw,
		focalLength: fl,
	}, nil
}

// FocalLength returns the focal length in pixels derived from the grid width
// and horizontal field of view.
func (p *Projector) FocalLength() float64 {
	return p.focalLength
}

// Project converts a range frame into an organized point cloud in the
// camera-optical frame (image x maps to yaw, image y to pitch) and fuses the
// given color frame into per-point colors. Points at or below the cutoff are
// NaN-filled and clear the cloud's dense flag.
//
// The last computed positions are retained in the projector's cache for the
// marker generator. The cached z of an invalid point is zeroed rather than
// NaN so markers anchored there remain renderable; cached x and y mirror the
// published values.
func (p *Projector) Project(rf *frame.RangeFrame, cf *frame.ColorFrame) (*pointcloud.Cloud, error) {
	if rf.Width != p.width || rf.Height != p.height {
		return nil, errors.Errorf("range frame is %dx%d, projector configured for %dx%d",
			rf.Width, rf.Height, p.width, p.height)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	cloud, err := pointcloud.New(p.width, p.height)
	if err != nil {
		return nil, err
	}
	p.ensureCache()

	for j := 0; j < p.height; j++ {
		var pAngle float64
		if p.height > 1 {
			pAngle = math.Atan2(float64(j)-0.5*float64(p.height-1), p.focalLength)
		}
		tanPitch := math.Tan(pAngle)

		for i := 0; i < p.width; i++ {
			idx := j*p.width + i
			depth := float64(rf.Depths[idx])

			var pt pointcloud.Point
			if depth > p.cutoff {
				pt.X = float32(depth * p.tanYaw[i])
				pt.Y = float32(depth * tanPitch)
				pt.Z = float32(depth)
				p.cached[PositionStride*idx+2] = pt.Z
			} else {
				// No return. The published point is NaN, but the cached
				// anchor keeps z = 0 so a marker placed there still renders.
				pt.X, pt.Y, pt.Z = nan32, nan32, nan32
				p.cached[PositionStride*idx+2] = 0
				cloud.Dense = false
			}
			p.cached[PositionStride*idx] = pt.X
			p.cached[PositionStride*idx+1] = pt.Y
			p.cached[PositionStride*idx+3] = 0

			cloud.Points[idx] = pt
		}
	}

	FuseColor(cloud, cf)
	return cloud, nil
}

// AbsorbPacked builds a cloud from a pre-baked buffer of four floats per pixel
// (x, y, z, packed rgb), as delivered by sensors that compute the cloud
// themselves. The buffer is copied into the position cache. The packed color
// float is reinterpreted as 0x00RRGGBB.
func (p *Projector) AbsorbPacked(packed []float32) (*pointcloud.Cloud, error) {
	if len(packed) != p.width*p.height*PositionStride {
		return nil, errors.Errorf("packed cloud has %d floats, want %d for %dx%d grid",
			len(packed), p.width*p.height*PositionStride, p.width, p.height)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	cloud, err := pointcloud.New(p.width, p.height)
	if err != nil {
		return nil, err
	}
	p.ensureCache()
	copy(p.cached, packed)

	for idx := 0; idx < p.width*p.height; idx++ {
		rgb := math.Float32bits(packed[PositionStride*idx+3])
		cloud.Points[idx] = pointcloud.Point{
			X: packed[PositionStride*idx],
			Y: packed[PositionStride*idx+1],
			Z: packed[PositionStride*idx+2],
			R: uint8(rgb >> 16),
			G: uint8(rgb >> 8),
			B: uint8(rgb),
		}
	}
	return cloud, nil
}

// ViewPositions runs fn with the cached per-pixel positions (PositionStride
// floats per pixel) while holding the projector lock, or returns false if no
// frame has been projected yet. fn must not retain the slice.
func (p *Projector) ViewPositions(fn func(positions []float32)) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cached == nil {
		return false
	}
	fn(p.cached)
	return true
}

func (p *Projector) ensureCache() {
	if p.cached == nil {
		p.cached = make([]float32, p.width*p.height*PositionStride)
	}
}
