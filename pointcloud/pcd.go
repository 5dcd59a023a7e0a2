package pointcloud

import (
	"fmt"
	"io"
)

func colorToInt(p Point) int {
	x := 0
	x |= int(p.R) << 16
	x |= int(p.G) << 8
	x |= int(p.B) << 0
	return x
}

// ToPCD writes the cloud in ascii PCD format. Invalid points are written as
// nan coordinates, which PCD viewers accept for organized clouds.
func (c *Cloud) ToPCD(out io.Writer) error {
	_, err := fmt.Fprintf(out, "VERSION .7\n"+
		"FIELDS x y z rgb\n"+
		"SIZE 4 4 4 4\n"+
		"TYPE F F F I\n"+
		"COUNT 1 1 1 1\n"+
		"WIDTH %d\n"+
		"HEIGHT %d\n"+
		"VIEWPOINT 0 0 0 1 0 0 0\n"+
		"POINTS %d\n"+
		"DATA ascii\n",
		c.Width,
		c.Height,
		c.Size(),
	)
	if err != nil {
		return err
	}

	for _, p := range c.Points {
		if _, err := fmt.Fprintf(out, "%f %f %f %d\n", p.X, p.Y, p.Z, colorToInt(p)); err != nil {
			return err
		}
	}
	return nil
}
