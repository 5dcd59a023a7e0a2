package projection

import (
	"github.com/viam-labs/depthsim/frame"
	"github.com/viam-labs/depthsim/pointcloud"
)

// FuseColor assigns per-point colors from a separately captured color frame.
// An RGB-sized buffer is copied pixel for pixel; a mono-sized buffer has its
// single channel replicated into all three output channels. Any other size,
// including a nil or empty frame, colors every point black. Size mismatches
// are a silent quality degradation, never an error.
func FuseColor(cloud *pointcloud.Cloud, cf *frame.ColorFrame) {
	rows, cols := cloud.Height, cloud.Width
	switch {
	case cf.RGBSized(rows, cols):
		for idx := range cloud.Points {
			pt := &cloud.Points[idx]
			pt.R = cf.Data[idx*3]
			pt.G = cf.Data[idx*3+1]
			pt.B = cf.Data[idx*3+2]
		}
	case cf.MonoSized(rows, cols):
		for idx := range cloud.Points {
			pt := &cloud.Points[idx]
			v := cf.Data[idx]
			pt.R, pt.G, pt.B = v, v, v
		}
	default:
		for idx := range cloud.Points {
			pt := &cloud.Points[idx]
			pt.R, pt.G, pt.B = 0, 0, 0
		}
	}
}
