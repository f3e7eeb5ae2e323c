package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// CameraConfig describes the stereo rig.
type CameraConfig struct {
	BaselineM   float64 `yaml:"baseline_m"`    // distance between the two camera centers
	FOVDeg      float64 `yaml:"fov_deg"`       // full horizontal field of view, (0,180)
	ImageSizePx float64 `yaml:"image_size_px"` // total pixel count, e.g. 5.4e6
}

// CanvasConfig describes the rendered frame.
type CanvasConfig struct {
	WidthPx        int `yaml:"width_px"`
	HeightPx       int `yaml:"height_px"`
	CameraHeightPx int `yaml:"camera_height_px"` // height of the camera boxes at the top edge
}

// ObjectConfig describes one simulated detection object.
type ObjectConfig struct {
	Label          string  `yaml:"label"`            // e.g., "Person"
	Icon           string  `yaml:"icon"`             // built-in icon: box, person, shark
	IconPath       string  `yaml:"icon_path"`        // optional image file, overrides Icon
	RangeM         float64 `yaml:"range_m"`          // forward distance from the rig
	LateralOffsetM float64 `yaml:"lateral_offset_m"` // positive = right of center
	HeightM        float64 `yaml:"height_m"`         // drawn sprite size
	AreaM2         float64 `yaml:"area_m2"`          // cross-sectional area seen by the sensors
}

// DefaultsConfig contains generic parameters.
type DefaultsConfig struct {
	DebugLevel   int       `yaml:"debug_level"`    // debug level 0-4 (0=off, 1=info, 2=live, 3=verbose, 4=trace)
	FrameRateHz  float64   `yaml:"frame_rate_hz"`  // render loop rate
	ErrorRangesM []float64 `yaml:"error_ranges_m"` // reference ranges of the error-bound table
}

// MaxConfigFileBytes bounds the size of a config file accepted by Load.
const MaxConfigFileBytes = 1 << 20

// Config aggregates all application configuration.
type Config struct {
	Camera   CameraConfig   `yaml:"camera"`
	Canvas   CanvasConfig   `yaml:"canvas"`
	Objects  []ObjectConfig `yaml:"objects"`
	Defaults DefaultsConfig `yaml:"defaults"`
}

// DefaultObjects returns the three reference objects: a 10cm box,
// a person and a hammerhead shark.
func DefaultObjects() []ObjectConfig {
	return []ObjectConfig{
		{Label: "10cm Box", Icon: "box", RangeM: 1, LateralOffsetM: 0, HeightM: 0.5, AreaM2: 0.01},
		{Label: "Person", Icon: "person", RangeM: 5, LateralOffsetM: 1, HeightM: 2, AreaM2: 0.75},
		{Label: "Hammerhead Shark", Icon: "shark", RangeM: 15, LateralOffsetM: -1, HeightM: 5, AreaM2: 1.5},
	}
}

// Default returns a configuration with every field set to its default.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// ValidateConfigPath checks that path points to a .yaml file directly
// inside a directory named "configs" and contains no traversal.
func ValidateConfigPath(path string) error {
	if path == "" {
		return fmt.Errorf("config path is empty")
	}
	if strings.Contains(filepath.ToSlash(path), "../") {
		return fmt.Errorf("config path %q must not contain traversal", path)
	}
	clean := filepath.Clean(path)
	if filepath.Ext(clean) != ".yaml" {
		return fmt.Errorf("config path %q must have a .yaml extension", path)
	}
	if filepath.Base(filepath.Dir(clean)) != "configs" {
		return fmt.Errorf("config path %q must be inside a configs/ directory", path)
	}
	return nil
}

// Load reads a YAML file and returns the configuration.
func Load(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat config file: %w", err)
	}
	if info.Size() > MaxConfigFileBytes {
		return nil, fmt.Errorf("config file is %d bytes, limit is %d", info.Size(), MaxConfigFileBytes)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML content, fills defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Camera.BaselineM == 0 {
		c.Camera.BaselineM = 1 // 1 m rig
	}
	if c.Camera.FOVDeg == 0 {
		c.Camera.FOVDeg = 65
	}
	if c.Camera.ImageSizePx == 0 {
		c.Camera.ImageSizePx = 5.4e6 // 5.4 MP
	}
	if c.Canvas.WidthPx <= 0 {
		c.Canvas.WidthPx = 1200
	}
	if c.Canvas.HeightPx <= 0 {
		c.Canvas.HeightPx = 1200
	}
	if c.Canvas.CameraHeightPx <= 0 {
		c.Canvas.CameraHeightPx = 10
	}
	if len(c.Objects) == 0 {
		c.Objects = DefaultObjects()
	}
	if c.Defaults.FrameRateHz <= 0 {
		c.Defaults.FrameRateHz = 30
	}
	if len(c.Defaults.ErrorRangesM) == 0 {
		c.Defaults.ErrorRangesM = []float64{5, 10, 20, 50, 100, 200, 500}
	}
}

// Validate rejects values the formulas cannot handle.
func (c *Config) Validate() error {
	if !finite(c.Camera.FOVDeg) || c.Camera.FOVDeg <= 0 || c.Camera.FOVDeg >= 180 {
		return fmt.Errorf("camera.fov_deg must be between 0 and 180 (exclusive), got %.2f", c.Camera.FOVDeg)
	}
	if !finite(c.Camera.BaselineM) || c.Camera.BaselineM <= 0 {
		return fmt.Errorf("camera.baseline_m must be > 0, got %.2f", c.Camera.BaselineM)
	}
	if !finite(c.Camera.ImageSizePx) || c.Camera.ImageSizePx < 1 {
		return fmt.Errorf("camera.image_size_px must be >= 1, got %.0f", c.Camera.ImageSizePx)
	}
	if c.Canvas.CameraHeightPx >= c.Canvas.HeightPx {
		return fmt.Errorf("canvas.camera_height_px (%d) must be smaller than canvas.height_px (%d)",
			c.Canvas.CameraHeightPx, c.Canvas.HeightPx)
	}
	if c.Defaults.DebugLevel < 0 || c.Defaults.DebugLevel > 4 {
		return fmt.Errorf("debug_level must be between 0 and 4, got %d", c.Defaults.DebugLevel)
	}
	if !finite(c.Defaults.FrameRateHz) || c.Defaults.FrameRateHz > 120 {
		return fmt.Errorf("frame_rate_hz must be <= 120, got %.2f", c.Defaults.FrameRateHz)
	}
	for i, r := range c.Defaults.ErrorRangesM {
		if !finite(r) || r <= 0 {
			return fmt.Errorf("error_ranges_m[%d] must be > 0, got %.2f", i, r)
		}
	}
	labels := make(map[string]bool, len(c.Objects))
	for i, o := range c.Objects {
		if o.Label == "" {
			return fmt.Errorf("objects[%d].label is required", i)
		}
		if labels[o.Label] {
			return fmt.Errorf("objects[%d].label %q is duplicated", i, o.Label)
		}
		labels[o.Label] = true
		if o.Icon == "" && o.IconPath == "" {
			return fmt.Errorf("objects[%d] (%s): icon or icon_path is required", i, o.Label)
		}
		if !finite(o.RangeM) || o.RangeM <= 0 {
			return fmt.Errorf("objects[%d] (%s): range_m must be > 0, got %.2f", i, o.Label, o.RangeM)
		}
		if !finite(o.LateralOffsetM) {
			return fmt.Errorf("objects[%d] (%s): lateral_offset_m must be finite", i, o.Label)
		}
		if !finite(o.HeightM) || o.HeightM <= 0 {
			return fmt.Errorf("objects[%d] (%s): height_m must be > 0, got %.2f", i, o.Label, o.HeightM)
		}
		if !finite(o.AreaM2) || o.AreaM2 <= 0 {
			return fmt.Errorf("objects[%d] (%s): area_m2 must be > 0, got %.4f", i, o.Label, o.AreaM2)
		}
	}
	return nil
}

// FrameInterval returns the duration between two rendered frames.
func (c *Config) FrameInterval() time.Duration {
	return time.Duration(float64(time.Second) / c.Defaults.FrameRateHz)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
