package main

import (
	"math"

	"github.com/viam-labs/depthsim/frame"
)

// scene is a tiny synthetic world: a flat back wall with a sphere bobbing in
// front of it. Range values are distances along the optical axis, matching
// what a simulated depth camera delivers.
type scene struct {
	width  int
	height int
}

func newScene(width, height int) *scene {
	return &scene{width: width, height: height}
}

const (
	wallDepth    = 4.0
	sphereRadius = 0.3
	sphereDepth  = 2.0
)

// sphereCenter bobs the sphere vertically over time, in normalized image
// coordinates.
func (s *scene) sphereCenter(t float64) (float64, float64) {
	return 0.5, 0.5 + 0.2*math.Sin(t*2*math.Pi*0.25)
}

func (s *scene) rangeFrame(t float64) []float32 {
	cx, cy := s.sphereCenter(t)
	depths := make([]float32, s.width*s.height)
	for j := 0; j < s.height; j++ {
		for i := 0; i < s.width; i++ {
			u := float64(i)/float64(s.width-1) - cx
			v := float64(j)/float64(s.height-1) - cy
			d := wallDepth
			if r := math.Hypot(u, v); r < 0.15 {
				// Sphere cap: nearer toward the center.
				d = sphereDepth - sphereRadius*math.Cos(r/0.15*math.Pi/2)
			}
			depths[j*s.width+i] = float32(d)
		}
	}
	return depths
}

func (s *scene) colorFrame(t float64) []byte {
	cx, cy := s.sphereCenter(t)
	data := make([]byte, s.width*s.height*3)
	for j := 0; j < s.height; j++ {
		for i := 0; i < s.width; i++ {
			u := float64(i)/float64(s.width-1) - cx
			v := float64(j)/float64(s.height-1) - cy
			idx := (j*s.width + i) * 3
			if math.Hypot(u, v) < 0.15 {
				data[idx] = 220 // sphere: red
			} else {
				g := byte(64 + 128*float64(j)/float64(s.height))
				data[idx], data[idx+1], data[idx+2] = g, g, g
			}
		}
	}
	return data
}

func (s *scene) normalsFrame(t float64) []float32 {
	cx, cy := s.sphereCenter(t)
	values := make([]float32, s.width*s.height*frame.NormalChannels)
	for j := 0; j < s.height; j++ {
		for i := 0; i < s.width; i++ {
			u := float64(i)/float64(s.width-1) - cx
			v := float64(j)/float64(s.height-1) - cy
			base := (j*s.width + i) * frame.NormalChannels
			if r := math.Hypot(u, v); r < 0.15 {
				// Approximate sphere normal tilting away from center.
				values[base] = float32(u / 0.15)
				values[base+1] = float32(v / 0.15)
				values[base+2] = float32(-math.Sqrt(math.Max(0, 1-(r/0.15)*(r/0.15))))
			} else {
				values[base+2] = -1 // wall faces the camera
			}
		}
	}
	return values
}
