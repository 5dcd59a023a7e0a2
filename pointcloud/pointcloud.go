// Package pointcloud implements the organized point cloud produced by the
// depth conversion pipeline: one colored point per source pixel, row-major,
// retaining the 2-D grid layout of the sensor.
package pointcloud

import (
	"math"
	"time"

	"github.com/pkg/errors"
)

// Point is one cloud record: a position in meters and an RGB color.
type Point struct {
	X, Y, Z float32
	R, G, B uint8
}

// Valid reports whether the point holds a real measurement. Invalid points
// are NaN-filled.
func (p Point) Valid() bool {
	return !math.IsNaN(float64(p.Z))
}

// Cloud is an organized point cloud. Points retain the row-major grid layout
// of the source range image; Dense is false when any point is invalid.
type Cloud struct {
	Points []Point
	Width  int
	Height int
	Dense  bool

	// FrameID names the frame the coordinates are expressed in; SourceFrameID
	// names the sensor's native frame the cloud was generated in.
	FrameID       string
	SourceFrameID string
	Timestamp     time.Time
}

// New returns a cloud preallocated for the given grid, marked dense until a
// producer says otherwise.
func New(width, height int) (*Cloud, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("invalid cloud dimensions %dx%d", width, height)
	}
	return &Cloud{
		Points: make([]Point, width*height),
		Width:  width,
		Height: height,
		Dense:  true,
	}, nil
}

// Size returns the number of points, valid or not.
func (c *Cloud) Size() int {
	return len(c.Points)
}

// At returns the point at column i, row j.
func (c *Cloud) At(i, j int) Point {
	return c.Points[j*c.Width+i]
}

// Set stores the point at column i, row j.
func (c *Cloud) Set(i, j int, p Point) {
	c.Points[j*c.Width+i] = p
}
