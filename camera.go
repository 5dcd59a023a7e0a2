// Package depthsim converts a simulated depth camera's raw frames into
// consumer-ready artifacts: an organized colored point cloud, an encoded
// depth image, a reflectance image, calibration metadata, and sparse normal
// markers. All conversion work is gated behind live consumer demand so that
// nothing runs when nobody is listening.
package depthsim

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"go.uber.org/multierr"

	"github.com/viam-labs/depthsim/bus"
	"github.com/viam-labs/depthsim/depthimage"
	"github.com/viam-labs/depthsim/frame"
	"github.com/viam-labs/depthsim/gate"
	"github.com/viam-labs/depthsim/markers"
	"github.com/viam-labs/depthsim/pointcloud"
	"github.com/viam-labs/depthsim/projection"
	"github.com/viam-labs/depthsim/spatial"
)

// Sensor is the simulated imaging sensor the camera converts frames for. It
// is the external collaborator under demand control; SetActive and IsActive
// satisfy gate.Activator.
type Sensor interface {
	SetActive(active bool)
	IsActive() bool
	LastMeasurementTime() time.Time
}

// Camera is the frame-conversion core for one simulated depth camera. The
// simulation engine invokes the OnNew*Frame entry points on its own threads;
// consumers subscribe to the output streams, and subscriptions drive the
// demand gate.
type Camera struct {
	logger golog.Logger
	conf   Config
	sensor Sensor
	gate   *gate.Controller
	clk    clock.Clock

	projector  *projection.Projector
	encoder    *depthimage.Encoder
	intrinsics depthimage.Intrinsics
	cloudPose  spatial.Pose

	// Output streams, one per artifact. Subscribing and unsubscribing feeds
	// the demand gate through stream hooks.
	PointClouds  *bus.Stream[*pointcloud.Cloud]
	DepthImages  *bus.Stream[*depthimage.Image]
	DepthInfos   *bus.Stream[*depthimage.CameraInfo]
	Reflectances *bus.Stream[*depthimage.Image]
	Normals      *bus.Stream[[]markers.Marker]

	mu          sync.Mutex
	lastColor   *frame.ColorFrame
	lastInfo    time.Time
	infoEverPub bool

	initialized bool
}

// New builds a camera from a validated config. Capability flags for optional
// outputs are resolved once here; demand on unsupported streams is ignored.
func New(conf *Config, sensor Sensor, caps gate.Capabilities, logger golog.Logger) (*Camera, error) {
	return newCamera(conf, sensor, caps, logger, clock.New())
}

func newCamera(
	conf *Config,
	sensor Sensor,
	caps gate.Capabilities,
	logger golog.Logger,
	clk clock.Clock,
) (*Camera, error) {
	if err := conf.Validate(""); err != nil {
		return nil, err
	}
	resolved := conf.withDefaults()

	pose, err := resolved.cloudPose()
	if err != nil {
		return nil, err
	}
	projector, err := projection.NewProjector(
		resolved.Width, resolved.Height, resolved.HFOV, resolved.PointCloudCutoff)
	if err != nil {
		return nil, err
	}
	encoding := depthimage.EncodingFloat32
	if resolved.UseDepth16 {
		encoding = depthimage.EncodingUint16Millimeters
	}

	c := &Camera{
		logger:     logger,
		conf:       resolved,
		sensor:     sensor,
		clk:        clk,
		projector:  projector,
		encoder:    depthimage.NewEncoder(resolved.Width, resolved.Height, resolved.PointCloudCutoff, encoding),
		intrinsics: depthimage.IntrinsicsFromFOV(resolved.Width, resolved.Height, resolved.HFOV),
		cloudPose:  pose,
	}
	c.gate = gate.NewController(sensor, caps, logger)

	c.PointClouds = bus.NewStream[*pointcloud.Cloud](resolved.PointCloudTopic, c.demandHooks(gate.StreamPointCloud))
	c.DepthImages = bus.NewStream[*depthimage.Image](resolved.DepthImageTopic, c.demandHooks(gate.StreamDepthImage))
	c.DepthInfos = bus.NewStream[*depthimage.CameraInfo](resolved.DepthInfoTopic, c.demandHooks(gate.StreamDepthInfo))
	c.Reflectances = bus.NewStream[*depthimage.Image](resolved.ReflectanceTopic, c.demandHooks(gate.StreamReflectance))
	c.Normals = bus.NewStream[[]markers.Marker](resolved.NormalsTopic, c.demandHooks(gate.StreamNormals))

	c.initialized = true
	return c, nil
}

func (c *Camera) demandHooks(s gate.Stream) bus.Hooks {
	return bus.Hooks{
		OnSubscribe:   func() { c.gate.Connect(s) },
		OnUnsubscribe: func() { c.gate.Disconnect(s) },
	}
}

// ready guards every per-frame entry point: before initialization completes,
// or with a degenerate configured grid, frame callbacks are silent no-ops.
func (c *Camera) ready() bool {
	return c != nil && c.initialized && c.conf.Width > 0 && c.conf.Height > 0
}

// OnNewRangeFrame is the per-frame dispatch for an arriving range buffer. The
// demand gate decides which conversions run; a sensor with no demand is
// deactivated, and an inactive sensor with demand is activated so output
// resumes on the next frame.
func (c *Camera) OnNewRangeFrame(depths []float32, width, height int) {
	if !c.ready() || width <= 0 || height <= 0 {
		return
	}
	ts := c.sensor.LastMeasurementTime()

	d := c.gate.OnFrame()
	switch {
	case d.Deactivated:
		c.logger.Debugw("sensor starved of demand, deactivated")
		return
	case d.Activated:
		c.logger.Debugw("sensor activated on demand, output resumes next frame")
		return
	}

	if !d.RunPointCloud && !d.RunDepthImage {
		return
	}
	// Grid dimensions are fixed at configuration time; a buffer that does not
	// match them is a bad frame and simply skipped.
	rf, err := frame.NewRangeFrame(depths, c.conf.Width, c.conf.Height)
	if err != nil {
		c.logger.Warnw("skipping malformed range frame", "error", err)
		return
	}

	if d.RunPointCloud {
		cloud, err := c.projector.Project(rf, c.colorSnapshot())
		if err != nil {
			c.logger.Warnw("point cloud projection failed", "error", err)
		} else {
			cloud.FrameID = c.conf.Frame
			cloud.Timestamp = ts
			cloud.ApplyTransform(c.cloudPose, c.conf.PointCloudFrame)
			c.PointClouds.Publish(cloud)
		}
	}

	if d.RunDepthImage {
		img := c.encoder.Encode(rf)
		img.FrameID = c.conf.DepthImageFrame
		img.Timestamp = ts
		c.DepthImages.Publish(img)
	}

	c.maybePublishInfo(ts)
}

// OnNewColorFrame retains the latest color image for fusion into point cloud
// colors. Buffers are copied since the simulator reuses its own memory.
func (c *Camera) OnNewColorFrame(data []byte, width, height, channels int) {
	if !c.ready() || width <= 0 || height <= 0 {
		return
	}
	if !c.sensor.IsActive() {
		if c.gate.ImageConsumers() > 0 {
			c.sensor.SetActive(true)
		}
		return
	}
	if c.gate.ImageConsumers() == 0 {
		return
	}

	cp := make([]byte, len(data))
	copy(cp, data)
	cf := frame.NewColorFrame(cp, width, height, channels)

	c.mu.Lock()
	c.lastColor = cf
	c.mu.Unlock()
}

// OnNewNormalsFrame decimates a per-pixel normals buffer into arrow markers
// anchored at the last projected positions. Nothing is published until a
// range frame has populated the position cache.
func (c *Camera) OnNewNormalsFrame(values []float32, width, height int) {
	if !c.ready() || width <= 0 || height <= 0 {
		return
	}
	if !c.gate.StreamFrame(gate.StreamNormals) {
		return
	}
	nf, err := frame.NewNormalFrame(values, c.conf.Width, c.conf.Height)
	if err != nil {
		c.logger.Warnw("skipping malformed normals frame", "error", err)
		return
	}
	ms, err := markers.Generate(nf, c.projector, c.conf.ReduceNormals, c.conf.Frame, c.sensor.LastMeasurementTime())
	if err != nil {
		c.logger.Warnw("normal marker generation failed", "error", err)
		return
	}
	if ms == nil {
		return
	}
	c.Normals.Publish(ms)
}

// OnNewReflectanceFrame encodes and publishes a reflectance image.
func (c *Camera) OnNewReflectanceFrame(values []float32, width, height int) {
	if !c.ready() || width <= 0 || height <= 0 {
		return
	}
	if !c.gate.StreamFrame(gate.StreamReflectance) {
		return
	}
	rf, err := frame.NewReflectanceFrame(values, width, height)
	if err != nil {
		c.logger.Warnw("skipping malformed reflectance frame", "error", err)
		return
	}
	img := depthimage.EncodeReflectance(rf)
	img.FrameID = c.conf.Frame
	img.Timestamp = c.sensor.LastMeasurementTime()
	c.Reflectances.Publish(img)
}

// OnNewPackedCloudFrame accepts a pre-baked cloud of four floats per pixel
// (x, y, z, packed rgb) from sensors that project internally, bypassing the
// geometry projector while still feeding the position cache.
func (c *Camera) OnNewPackedCloudFrame(packed []float32, width, height int) {
	if !c.ready() || width <= 0 || height <= 0 {
		return
	}
	if !c.sensor.IsActive() {
		if c.gate.Consumers(gate.StreamPointCloud) > 0 {
			c.sensor.SetActive(true)
		}
		return
	}
	if c.gate.Consumers(gate.StreamPointCloud) == 0 && c.gate.Consumers(gate.StreamNormals) == 0 {
		return
	}

	cloud, err := c.projector.AbsorbPacked(packed)
	if err != nil {
		c.logger.Warnw("skipping malformed packed cloud frame", "error", err)
		return
	}
	cloud.FrameID = c.conf.Frame
	cloud.Timestamp = c.sensor.LastMeasurementTime()
	cloud.ApplyTransform(c.cloudPose, c.conf.PointCloudFrame)
	c.PointClouds.Publish(cloud)
}

// maybePublishInfo publishes calibration metadata for depth-info consumers,
// rate-limited to the configured update period.
func (c *Camera) maybePublishInfo(ts time.Time) {
	if c.gate.Consumers(gate.StreamDepthInfo) == 0 {
		return
	}
	now := c.clk.Now()

	c.mu.Lock()
	due := !c.infoEverPub || now.Sub(c.lastInfo) >= c.conf.InfoUpdatePeriod
	if due {
		c.lastInfo = now
		c.infoEverPub = true
	}
	c.mu.Unlock()

	if !due {
		return
	}
	c.DepthInfos.Publish(&depthimage.CameraInfo{
		Intrinsics: c.intrinsics,
		FrameID:    c.conf.DepthImageFrame,
		Timestamp:  ts,
	})
}

func (c *Camera) colorSnapshot() *frame.ColorFrame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastColor
}

// Intrinsics returns the camera's derived pinhole calibration.
func (c *Camera) Intrinsics() depthimage.Intrinsics {
	return c.intrinsics
}

// Close shuts down all output streams, unwinding any remaining demand.
func (c *Camera) Close() error {
	return multierr.Combine(
		c.PointClouds.Close(),
		c.DepthImages.Close(),
		c.DepthInfos.Close(),
		c.Reflectances.Close(),
		c.Normals.Close(),
	)
}
