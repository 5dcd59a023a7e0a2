// Package main runs the depth camera conversion pipeline against a synthetic
// scene and writes the resulting artifacts to disk, exercising every output
// stream end to end.
package main

import (
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/edaniels/golog"
	"github.com/urfave/cli/v2"
	goutils "go.viam.com/utils"

	"github.com/viam-labs/depthsim"
	"github.com/viam-labs/depthsim/depthimage"
	"github.com/viam-labs/depthsim/gate"
	"github.com/viam-labs/depthsim/markers"
	"github.com/viam-labs/depthsim/pointcloud"
)

func main() {
	logger := golog.NewDevelopmentLogger("depthsim")

	app := &cli.App{
		Name:  "depthsim",
		Usage: "convert synthetic depth camera frames into point clouds, depth images, and markers",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "width", Value: 320, Usage: "sensor grid width in pixels"},
			&cli.IntFlag{Name: "height", Value: 240, Usage: "sensor grid height in pixels"},
			&cli.Float64Flag{Name: "hfov", Value: math.Pi / 2, Usage: "horizontal field of view in radians"},
			&cli.IntFlag{Name: "frames", Value: 10, Usage: "number of frames to simulate"},
			&cli.BoolFlag{Name: "depth16", Usage: "encode depth images as 16-bit millimeters"},
			&cli.StringFlag{Name: "out", Value: ".", Usage: "output directory"},
		},
		Action: func(ctx *cli.Context) error {
			return run(ctx, logger)
		},
	}
	if err := app.Run(os.Args); err != nil {
		logger.Fatal(err)
	}
}

// simSensor is a stand-in for the simulation engine's imaging sensor.
type simSensor struct {
	mu     sync.Mutex
	active bool
	now    time.Time
}

func (s *simSensor) SetActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = active
}

func (s *simSensor) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *simSensor) LastMeasurementTime() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

func (s *simSensor) advance(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = s.now.Add(d)
}

func run(ctx *cli.Context, logger golog.Logger) error {
	width := ctx.Int("width")
	height := ctx.Int("height")
	frames := ctx.Int("frames")
	outDir := ctx.String("out")

	conf := &depthsim.Config{
		Width:      width,
		Height:     height,
		HFOV:       ctx.Float64("hfov"),
		UseDepth16: ctx.Bool("depth16"),
	}
	sensor := &simSensor{now: time.Now()}
	cam, err := depthsim.New(conf, sensor, gate.Capabilities{Normals: true, Reflectance: true}, logger)
	if err != nil {
		return err
	}
	defer goutils.UncheckedErrorFunc(cam.Close)

	clouds := make(chan *pointcloud.Cloud, frames)
	depths := make(chan *depthimage.Image, frames)
	infos := make(chan *depthimage.CameraInfo, frames)
	normals := make(chan []markers.Marker, frames)
	if err := cam.PointClouds.Subscribe("writer", clouds); err != nil {
		return err
	}
	if err := cam.DepthImages.Subscribe("writer", depths); err != nil {
		return err
	}
	if err := cam.DepthInfos.Subscribe("writer", infos); err != nil {
		return err
	}
	if err := cam.Normals.Subscribe("writer", normals); err != nil {
		return err
	}

	scene := newScene(width, height)
	for i := 0; i < frames; i++ {
		sensor.advance(33 * time.Millisecond)
		t := float64(i) / 30.0
		cam.OnNewColorFrame(scene.colorFrame(t), width, height, 3)
		cam.OnNewRangeFrame(scene.rangeFrame(t), width, height)
		cam.OnNewNormalsFrame(scene.normalsFrame(t), width, height)
	}

	var lastCloud *pointcloud.Cloud
	for len(clouds) > 0 {
		lastCloud = <-clouds
	}
	if lastCloud == nil {
		logger.Warn("no point cloud produced; sensor spends its first frame activating")
		return nil
	}

	pcdPath := filepath.Join(outDir, "scene.pcd")
	f, err := os.Create(pcdPath)
	if err != nil {
		return err
	}
	defer goutils.UncheckedErrorFunc(f.Close)
	if err := lastCloud.ToPCD(f); err != nil {
		return err
	}

	logger.Infow("wrote point cloud",
		"path", pcdPath,
		"points", lastCloud.Size(),
		"dense", lastCloud.Dense,
	)
	logger.Infow("stream stats",
		"point_clouds", cam.PointClouds.Stats(),
		"depth_images", cam.DepthImages.Stats(),
		"camera_infos", cam.DepthInfos.Stats(),
		"normal_markers", cam.Normals.Stats(),
	)
	return nil
}
