package gate

import (
	"testing"

	"github.com/edaniels/golog"
	"go.viam.com/test"
)

// fakeSensor records activation requests.
type fakeSensor struct {
	active   bool
	requests []bool
}

func (f *fakeSensor) SetActive(active bool) {
	f.active = active
	f.requests = append(f.requests, active)
}

func (f *fakeSensor) IsActive() bool {
	return f.active
}

func newTestController(t *testing.T, caps Capabilities) (*Controller, *fakeSensor) {
	t.Helper()
	sensor := &fakeSensor{}
	return NewController(sensor, caps, golog.NewTestLogger(t)), sensor
}

func allCaps() Capabilities {
	return Capabilities{Normals: true, Reflectance: true}
}

func TestConnectActivates(t *testing.T) {
	ctrl, sensor := newTestController(t, allCaps())

	ctrl.Connect(StreamPointCloud)
	test.That(t, sensor.IsActive(), test.ShouldBeTrue)
	test.That(t, ctrl.Consumers(StreamPointCloud), test.ShouldEqual, 1)
	test.That(t, ctrl.ImageConsumers(), test.ShouldEqual, 1)

	// Depth info consumers never touch the sensor.
	sensor.active = false
	sensor.requests = nil
	ctrl.Connect(StreamDepthInfo)
	test.That(t, sensor.requests, test.ShouldBeEmpty)
	test.That(t, ctrl.Consumers(StreamDepthInfo), test.ShouldEqual, 1)
	test.That(t, ctrl.ImageConsumers(), test.ShouldEqual, 1)
}

func TestDisconnectDeactivatesWhenStarved(t *testing.T) {
	ctrl, sensor := newTestController(t, allCaps())

	const n = 3
	for i := 0; i < n; i++ {
		ctrl.Connect(StreamPointCloud)
	}
	for i := 0; i < n-1; i++ {
		ctrl.Disconnect(StreamPointCloud)
	}
	// One consumer remains; the sensor must still be active.
	test.That(t, ctrl.Consumers(StreamPointCloud), test.ShouldEqual, 1)
	test.That(t, sensor.IsActive(), test.ShouldBeTrue)

	ctrl.Disconnect(StreamPointCloud)
	test.That(t, ctrl.Consumers(StreamPointCloud), test.ShouldEqual, 0)
	test.That(t, sensor.IsActive(), test.ShouldBeFalse)
}

func TestDisconnectSuppressedBySharedImageDemand(t *testing.T) {
	ctrl, sensor := newTestController(t, allCaps())

	ctrl.Connect(StreamPointCloud)
	ctrl.Connect(StreamReflectance)

	// Reflectance still holds the image sensor; a point cloud disconnect to
	// zero must not deactivate it.
	ctrl.Disconnect(StreamPointCloud)
	test.That(t, sensor.IsActive(), test.ShouldBeTrue)

	ctrl.Disconnect(StreamReflectance)
	test.That(t, sensor.IsActive(), test.ShouldBeFalse)
}

func TestNormalsDisconnectChecksOwnCounter(t *testing.T) {
	ctrl, sensor := newTestController(t, allCaps())

	// Normals demand alone keeps the sensor active; its disconnect must key
	// off the normals counter, not any sibling stream's.
	ctrl.Connect(StreamNormals)
	ctrl.Connect(StreamNormals)
	ctrl.Disconnect(StreamNormals)
	test.That(t, sensor.IsActive(), test.ShouldBeTrue)
	ctrl.Disconnect(StreamNormals)
	test.That(t, sensor.IsActive(), test.ShouldBeFalse)
}

func TestDisconnectNeverGoesNegative(t *testing.T) {
	ctrl, sensor := newTestController(t, allCaps())

	ctrl.Disconnect(StreamPointCloud)
	test.That(t, ctrl.Consumers(StreamPointCloud), test.ShouldEqual, 0)
	test.That(t, sensor.requests, test.ShouldBeEmpty)

	ctrl.Connect(StreamPointCloud)
	test.That(t, ctrl.Consumers(StreamPointCloud), test.ShouldEqual, 1)
}

func TestCapabilityGating(t *testing.T) {
	ctrl, sensor := newTestController(t, Capabilities{})

	ctrl.Connect(StreamNormals)
	ctrl.Connect(StreamReflectance)
	test.That(t, ctrl.Consumers(StreamNormals), test.ShouldEqual, 0)
	test.That(t, ctrl.Consumers(StreamReflectance), test.ShouldEqual, 0)
	test.That(t, sensor.requests, test.ShouldBeEmpty)

	ctrl.Connect(StreamPointCloud)
	test.That(t, sensor.IsActive(), test.ShouldBeTrue)
}

func TestOnFrameStarvation(t *testing.T) {
	ctrl, sensor := newTestController(t, allCaps())
	sensor.active = true

	d := ctrl.OnFrame()
	test.That(t, d.Deactivated, test.ShouldBeTrue)
	test.That(t, d.RunPointCloud, test.ShouldBeFalse)
	test.That(t, d.RunDepthImage, test.ShouldBeFalse)
	test.That(t, sensor.IsActive(), test.ShouldBeFalse)
}

func TestOnFrameDispatch(t *testing.T) {
	ctrl, sensor := newTestController(t, allCaps())
	sensor.active = true

	ctrl.Connect(StreamDepthImage)
	d := ctrl.OnFrame()
	test.That(t, d.RunDepthImage, test.ShouldBeTrue)
	test.That(t, d.RunPointCloud, test.ShouldBeFalse)

	ctrl.Connect(StreamNormals)
	d = ctrl.OnFrame()
	// Normals demand requires projection for marker anchors.
	test.That(t, d.RunPointCloud, test.ShouldBeTrue)
	test.That(t, d.RunDepthImage, test.ShouldBeTrue)

	ctrl.Connect(StreamPointCloud)
	ctrl.Disconnect(StreamNormals)
	d = ctrl.OnFrame()
	test.That(t, d.RunPointCloud, test.ShouldBeTrue)
}

func TestOnFrameNextFrameActivation(t *testing.T) {
	ctrl, sensor := newTestController(t, allCaps())

	ctrl.Connect(StreamDepthImage)
	sensor.active = false // demand recorded while the sensor is off

	d := ctrl.OnFrame()
	test.That(t, d.Activated, test.ShouldBeTrue)
	// Activation is for the next frame; nothing runs on this one.
	test.That(t, d.RunPointCloud, test.ShouldBeFalse)
	test.That(t, d.RunDepthImage, test.ShouldBeFalse)
	test.That(t, sensor.IsActive(), test.ShouldBeTrue)

	d = ctrl.OnFrame()
	test.That(t, d.Activated, test.ShouldBeFalse)
	test.That(t, d.RunDepthImage, test.ShouldBeTrue)
}

func TestOnFrameNoDemandStaysInactive(t *testing.T) {
	ctrl, sensor := newTestController(t, allCaps())

	d := ctrl.OnFrame()
	test.That(t, d.Activated, test.ShouldBeFalse)
	test.That(t, d.Deactivated, test.ShouldBeFalse)
	test.That(t, sensor.requests, test.ShouldBeEmpty)
}

func TestStreamFrame(t *testing.T) {
	ctrl, sensor := newTestController(t, allCaps())

	// No demand, inactive: nothing happens.
	test.That(t, ctrl.StreamFrame(StreamReflectance), test.ShouldBeFalse)
	test.That(t, sensor.requests, test.ShouldBeEmpty)

	// Demand while inactive activates for the next frame.
	ctrl.Connect(StreamReflectance)
	sensor.active = false
	test.That(t, ctrl.StreamFrame(StreamReflectance), test.ShouldBeFalse)
	test.That(t, sensor.IsActive(), test.ShouldBeTrue)

	// Active with demand runs the conversion.
	test.That(t, ctrl.StreamFrame(StreamReflectance), test.ShouldBeTrue)
}

func TestStreamNames(t *testing.T) {
	test.That(t, StreamPointCloud.String(), test.ShouldEqual, "point_cloud")
	test.That(t, StreamNormals.String(), test.ShouldEqual, "normals")
	test.That(t, StreamDepthImage.String(), test.ShouldEqual, "depth_image")
	test.That(t, StreamDepthInfo.String(), test.ShouldEqual, "depth_info")
	test.That(t, StreamReflectance.String(), test.ShouldEqual, "reflectance")
}
