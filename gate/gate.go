// Package gate implements the demand-gated activation controller: it tracks
// live consumer counts per output stream, turns the underlying simulated
// sensor on and off as demand appears and disappears, and decides which
// conversions are worth running for each arriving frame.
package gate

import (
	"sync"

	"github.com/edaniels/golog"
)

// Stream identifies one output stream tracked by the controller.
type Stream int

const (
	// StreamPointCloud is the organized colored point cloud output.
	StreamPointCloud Stream = iota
	// StreamNormals is the decimated normal-marker output.
	StreamNormals
	// StreamDepthImage is the encoded depth image output.
	StreamDepthImage
	// StreamDepthInfo is the calibration metadata output.
	StreamDepthInfo
	// StreamReflectance is the reflectance image output.
	StreamReflectance

	numStreams
)

func (s Stream) String() string {
	switch s {
	case StreamPointCloud:
		return "point_cloud"
	case StreamNormals:
		return "normals"
	case StreamDepthImage:
		return "depth_image"
	case StreamDepthInfo:
		return "depth_info"
	case StreamReflectance:
		return "reflectance"
	default:
		return "unknown"
	}
}

// requiresImageSensor reports whether consumers of the stream need the
// underlying imaging sensor to be running.
func (s Stream) requiresImageSensor() bool {
	switch s {
	case StreamPointCloud, StreamNormals, StreamReflectance:
		return true
	default:
		return false
	}
}

// Activator is the sensor hardware abstraction under demand control.
type Activator interface {
	SetActive(active bool)
	IsActive() bool
}

// Capabilities describes optional sensor outputs, resolved once at startup.
// Demand on a stream the sensor cannot produce is ignored.
type Capabilities struct {
	Normals     bool
	Reflectance bool
}

func (c Capabilities) supports(s Stream) bool {
	switch s {
	case StreamNormals:
		return c.Normals
	case StreamReflectance:
		return c.Reflectance
	default:
		return true
	}
}

// Decision is the per-frame dispatch outcome for an arriving range frame.
type Decision struct {
	// RunPointCloud requests projection (and transitively color fusion and
	// the rigid transform); it is set for point cloud or normals demand since
	// markers anchor on projected positions.
	RunPointCloud bool
	// RunDepthImage requests depth image encoding, independent of the point
	// cloud branch.
	RunDepthImage bool
	// Activated reports that the sensor was just turned on; output for the
	// current frame is intentionally skipped so the sensor runs at least one
	// more frame before output resumes.
	Activated bool
	// Deactivated reports that the sensor was starved of demand and turned
	// off.
	Deactivated bool
}

// Controller owns one named counter per stream. Whether the imaging sensor is
// in demand is always derived from the point-cloud, normals, and reflectance
// counters rather than kept in a separately mutated shared integer, so a
// miscounted stream cannot corrupt the others.
type Controller struct {
	sensor Activator
	caps   Capabilities
	logger golog.Logger

	mu     sync.Mutex
	counts [numStreams]int
}

// NewController returns a controller driving the given sensor.
func NewController(sensor Activator, caps Capabilities, logger golog.Logger) *Controller {
	return &Controller{sensor: sensor, caps: caps, logger: logger}
}

// Connect records a new consumer on the stream. The first consumer of any
// sensor-driven stream activates the sensor; the new output begins on the
// next frame.
func (c *Controller) Connect(s Stream) {
	if !c.caps.supports(s) {
		c.logger.Warnw("ignoring consumer for unsupported stream", "stream", s.String())
		return
	}

	c.mu.Lock()
	c.counts[s]++
	c.mu.Unlock()

	if s != StreamDepthInfo {
		c.sensor.SetActive(true)
	}
}

// Disconnect records a departed consumer on the stream. When the stream's
// own counter reaches zero the sensor is deactivated, unless any other
// sensor-driven stream still has consumers.
func (c *Controller) Disconnect(s Stream) {
	if !c.caps.supports(s) {
		return
	}

	c.mu.Lock()
	if c.counts[s] == 0 {
		// Mirror decrements must never drive a counter negative.
		c.mu.Unlock()
		c.logger.Warnw("disconnect on stream with no recorded consumers", "stream", s.String())
		return
	}
	c.counts[s]--
	deactivate := s != StreamDepthInfo && c.counts[s] == 0 && !c.anyDemandLocked()
	c.mu.Unlock()

	if deactivate {
		c.sensor.SetActive(false)
	}
}

// Consumers returns the live consumer count for the stream.
func (c *Controller) Consumers(s Stream) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[s]
}

// ImageConsumers returns the derived count of consumers that require the
// imaging sensor.
func (c *Controller) ImageConsumers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.imageConsumersLocked()
}

func (c *Controller) imageConsumersLocked() int {
	return c.counts[StreamPointCloud] + c.counts[StreamNormals] + c.counts[StreamReflectance]
}

func (c *Controller) anyDemandLocked() bool {
	return c.imageConsumersLocked() > 0 || c.counts[StreamDepthImage] > 0
}

// OnFrame is the per-frame dispatch decision for a new range frame. If the
// sensor is active but nothing wants its output, it is deactivated. If it is
// inactive and demand exists, it is activated for the next frame; the current
// frame produces no output either way.
func (c *Controller) OnFrame() Decision {
	c.mu.Lock()
	pc := c.counts[StreamPointCloud]
	normals := c.counts[StreamNormals]
	depth := c.counts[StreamDepthImage]
	img := c.imageConsumersLocked()
	demand := c.anyDemandLocked()
	c.mu.Unlock()

	var d Decision
	if c.sensor.IsActive() {
		if pc == 0 && depth == 0 && img == 0 && normals == 0 {
			c.sensor.SetActive(false)
			d.Deactivated = true
			return d
		}
		d.RunPointCloud = pc > 0 || normals > 0
		d.RunDepthImage = depth > 0
		return d
	}
	if demand {
		c.sensor.SetActive(true)
		d.Activated = true
	}
	return d
}

// StreamFrame is the dispatch decision for a frame feeding a single stream
// (normals, reflectance, color). It reports whether the frame should be
// converted now; an inactive sensor with demand is activated for the next
// frame instead.
func (c *Controller) StreamFrame(s Stream) bool {
	n := c.Consumers(s)
	if !c.sensor.IsActive() {
		if n > 0 {
			c.sensor.SetActive(true)
		}
		return false
	}
	return n > 0
}
