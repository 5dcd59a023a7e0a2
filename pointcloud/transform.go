package pointcloud

import (
	"github.com/golang/geo/r3"

	"github.com/viam-labs/depthsim/spatial"
)

// ApplyTransform rewrites every point's coordinates through the given pose and
// renames the cloud's frame to targetFrame. The cloud's original frame is kept
// in SourceFrameID. Invalid (NaN) points pass through: quaternion rotation and
// translation of NaN stays NaN. Validity, color, and density are untouched.
func (c *Cloud) ApplyTransform(pose spatial.Pose, targetFrame string) {
	for i := range c.Points {
		pt := &c.Points[i]
		v := pose.TransformPoint(r3.Vector{X: float64(pt.X), Y: float64(pt.Y), Z: float64(pt.Z)})
		pt.X = float32(v.X)
		pt.Y = float32(v.Y)
		pt.Z = float32(v.Z)
	}
	c.SourceFrameID = c.FrameID
	c.FrameID = targetFrame
}
