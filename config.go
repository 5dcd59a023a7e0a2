package depthsim

import (
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"github.com/viam-labs/depthsim/spatial"
)

// Configuration defaults matching the conventional simulated depth camera
// setup.
const (
	DefaultPointCloudTopic  = "points"
	DefaultDepthImageTopic  = "depth/image_raw"
	DefaultDepthInfoTopic   = "depth/camera_info"
	DefaultReflectanceTopic = "reflectance"
	DefaultNormalsTopic     = "normals"
	DefaultFrame            = "camera_depth_optical_frame"

	// DefaultCutoff is the minimum valid range in meters; shorter readings
	// are treated as no return.
	DefaultCutoff = 0.4
	// DefaultReduceNormals is the decimation stride for normal markers.
	DefaultReduceNormals = 50
	// DefaultInfoUpdatePeriod rate-limits camera info publication.
	DefaultInfoUpdatePeriod = time.Second
)

// Config configures the conversion pipeline for one simulated depth camera.
type Config struct {
	// Width and Height fix the sensor grid for the camera's lifetime.
	Width  int `json:"width"`
	Height int `json:"height"`
	// HFOV is the horizontal field of view in radians.
	HFOV float64 `json:"hfov_rad"`
	// Frame is the sensor's native (camera-optical) frame name.
	Frame string `json:"frame,omitempty"`

	PointCloudTopic  string `json:"point_cloud_topic,omitempty"`
	DepthImageTopic  string `json:"depth_image_topic,omitempty"`
	DepthInfoTopic   string `json:"depth_info_topic,omitempty"`
	ReflectanceTopic string `json:"reflectance_topic,omitempty"`
	NormalsTopic     string `json:"normals_topic,omitempty"`

	// PointCloudCutoff is the minimum valid range in meters.
	PointCloudCutoff float64 `json:"point_cloud_cutoff,omitempty"`
	// ReduceNormals is the marker decimation stride.
	ReduceNormals int `json:"reduce_normals,omitempty"`
	// UseDepth16 selects 16-bit millimeter depth images over 32-bit floats.
	UseDepth16 bool `json:"use_depth16,omitempty"`

	// CameraToCloudTransform is six space-separated numbers
	// "x y z roll pitch yaw" mapping the camera frame into the point cloud
	// frame. Empty means identity.
	CameraToCloudTransform string `json:"camera_to_cloud_transform,omitempty"`
	// PointCloudFrame and DepthImageFrame name the published frames; both
	// default to Frame.
	PointCloudFrame string `json:"point_cloud_frame,omitempty"`
	DepthImageFrame string `json:"depth_image_frame,omitempty"`

	// InfoUpdatePeriod is the minimum interval between camera info
	// publications.
	InfoUpdatePeriod time.Duration `json:"info_update_period,omitempty"`
}

// ConfigFromAttributes decodes a loosely typed attribute map into a Config.
// Durations may be given as strings ("500ms").
func ConfigFromAttributes(attrs map[string]interface{}) (*Config, error) {
	var conf Config
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.StringToTimeDurationHookFunc(),
		Result:     &conf,
		TagName:    "json",
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(attrs); err != nil {
		return nil, errors.Wrap(err, "cannot decode depth camera attributes")
	}
	return &conf, nil
}

// Validate checks the configuration at load time. Malformed values fail fast
// here rather than surfacing mid-frame.
func (conf *Config) Validate(path string) error {
	if conf.Width <= 0 {
		return goutils.NewConfigValidationFieldRequiredError(path, "width")
	}
	if conf.Height <= 0 {
		return goutils.NewConfigValidationFieldRequiredError(path, "height")
	}
	if conf.HFOV <= 0 {
		return goutils.NewConfigValidationFieldRequiredError(path, "hfov_rad")
	}
	if conf.PointCloudCutoff < 0 {
		return goutils.NewConfigValidationError(path, errors.New("point_cloud_cutoff cannot be negative"))
	}
	if conf.ReduceNormals < 0 {
		return goutils.NewConfigValidationError(path, errors.New("reduce_normals cannot be negative"))
	}
	if _, err := conf.cloudPose(); err != nil {
		return goutils.NewConfigValidationError(path, err)
	}
	return nil
}

// withDefaults returns a copy with every absent optional value substituted.
func (conf Config) withDefaults() Config {
	if conf.Frame == "" {
		conf.Frame = DefaultFrame
	}
	if conf.PointCloudTopic == "" {
		conf.PointCloudTopic = DefaultPointCloudTopic
	}
	if conf.DepthImageTopic == "" {
		conf.DepthImageTopic = DefaultDepthImageTopic
	}
	if conf.DepthInfoTopic == "" {
		conf.DepthInfoTopic = DefaultDepthInfoTopic
	}
	if conf.ReflectanceTopic == "" {
		conf.ReflectanceTopic = DefaultReflectanceTopic
	}
	if conf.NormalsTopic == "" {
		conf.NormalsTopic = DefaultNormalsTopic
	}
	if conf.PointCloudCutoff == 0 {
		conf.PointCloudCutoff = DefaultCutoff
	}
	if conf.ReduceNormals == 0 {
		conf.ReduceNormals = DefaultReduceNormals
	}
	if conf.PointCloudFrame == "" {
		conf.PointCloudFrame = conf.Frame
	}
	if conf.DepthImageFrame == "" {
		conf.DepthImageFrame = conf.Frame
	}
	if conf.InfoUpdatePeriod == 0 {
		conf.InfoUpdatePeriod = DefaultInfoUpdatePeriod
	}
	return conf
}

// cloudPose parses the camera-to-cloud transform string. The identity pose is
// returned for an empty string; anything other than six numeric tokens is a
// configuration error.
func (conf *Config) cloudPose() (spatial.Pose, error) {
	if conf.CameraToCloudTransform == "" {
		return spatial.NewZeroPose(), nil
	}
	fields := strings.Fields(conf.CameraToCloudTransform)
	if len(fields) != 6 {
		return spatial.Pose{}, errors.Errorf(
			"camera_to_cloud_transform expects 6 values \"x y z roll pitch yaw\", got %d", len(fields))
	}
	vals := make([]float64, 6)
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return spatial.Pose{}, errors.Wrapf(err, "camera_to_cloud_transform value %q", f)
		}
		vals[i] = v
	}
	return spatial.NewPoseFromEuler(
		r3.Vector{X: vals[0], Y: vals[1], Z: vals[2]},
		vals[3], vals[4], vals[5],
	), nil
}
