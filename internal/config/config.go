// Package config defines the tracker configuration and its loading.
package config

import (
	"path/filepath"
)

// Storage drivers.
const (
	DriverSQLite = "sqlite"
	DriverJSON   = "json"
)

// Pinch strength sources.
const (
	StrengthSensor   = "sensor"
	StrengthDistance = "distance"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat is text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DataDir holds the database and exports when no explicit path is set.
	DataDir string `koanf:"data_dir"`

	// StaticDir is served at / when set.
	StaticDir string `koanf:"static_dir"`

	Storage StorageConfig `koanf:"storage"`
	Pinch   PinchConfig   `koanf:"pinch"`
	Posture PostureConfig `koanf:"posture"`
	Session SessionConfig `koanf:"session"`
	Replay  ReplayConfig  `koanf:"replay"`
}

// StorageConfig selects where the previous session record lives.
type StorageConfig struct {
	Driver string `koanf:"driver"`
	Path   string `koanf:"path"`
}

// PinchConfig tunes the pinch engine.
type PinchConfig struct {
	StartThreshold        float64 `koanf:"start_threshold"`
	EndThreshold          float64 `koanf:"end_threshold"`
	Smoothing             string  `koanf:"smoothing"`
	SmoothingFactor       float64 `koanf:"smoothing_factor"`
	SmoothingTimeConstant float64 `koanf:"smoothing_time_constant"` // seconds
	MicroMovementDelta    float64 `koanf:"micro_movement_delta"`
	IncludeThumb          bool    `koanf:"include_thumb"`

	// StrengthSource is sensor (use the tracker's values) or distance
	// (derive them from fingertip distances).
	StrengthSource string  `koanf:"strength_source"`
	DistanceMin    float64 `koanf:"distance_min"`
	DistanceMax    float64 `koanf:"distance_max"`
}

// PostureConfig tunes the posture classifier.
type PostureConfig struct {
	AutoNormalize        bool    `koanf:"auto_normalize"`
	ReferenceHandLength  float64 `koanf:"reference_hand_length"`
	ThumbIndexThreshold  float64 `koanf:"thumb_index_threshold"`
	ThumbMiddleThreshold float64 `koanf:"thumb_middle_threshold"`
	ThumbRingThreshold   float64 `koanf:"thumb_ring_threshold"`
	ThumbPinkyThreshold  float64 `koanf:"thumb_pinky_threshold"`
}

// SessionConfig is the ordered exercise script.
type SessionConfig struct {
	Tasks []TaskConfig `koanf:"tasks"`
}

// TaskConfig is one scripted task as written in the config file.
type TaskConfig struct {
	Label          string  `koanf:"label"`
	Instruction    string  `koanf:"instruction"`
	Kind           string  `koanf:"kind"`
	Channel        string  `koanf:"channel"`
	Hand           string  `koanf:"hand"`
	TargetStrength float64 `koanf:"target_strength"`
	HoldSeconds    float64 `koanf:"hold_seconds"`
	Reps           int     `koanf:"reps"`
	Posture        string  `koanf:"posture"`
}

// ReplayConfig controls playback of recorded frame files.
type ReplayConfig struct {
	FPS  int  `koanf:"fps"`
	Loop bool `koanf:"loop"`
}

// New returns a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "text",
		Addr:      ":8080",
		DataDir:   "data",
		Storage: StorageConfig{
			Driver: DriverSQLite,
		},
		Pinch: PinchConfig{
			StartThreshold:        0.6,
			EndThreshold:          0.45,
			Smoothing:             "time_constant",
			SmoothingFactor:       0.15,
			SmoothingTimeConstant: 0.15,
			MicroMovementDelta:    0.01,
			IncludeThumb:          true,
			StrengthSource:        StrengthSensor,
			DistanceMin:           0.015,
			DistanceMax:           0.05,
		},
		Posture: PostureConfig{
			AutoNormalize:        true,
			ReferenceHandLength:  0.10,
			ThumbIndexThreshold:  0.04,
			ThumbMiddleThreshold: 0.035,
			ThumbRingThreshold:   0.03,
			ThumbPinkyThreshold:  0.04,
		},
		Session: SessionConfig{
			Tasks: DefaultTasks(),
		},
		Replay: ReplayConfig{
			FPS: 30,
		},
	}
}

// DefaultTasks is the built-in exercise script.
func DefaultTasks() []TaskConfig {
	return []TaskConfig{
		{
			Label:          "Index pinches",
			Instruction:    "Pinch your thumb and index finger together, then release.",
			Kind:           "repeated_pinches",
			Channel:        "index",
			TargetStrength: 0.6,
			Reps:           5,
		},
		{
			Label:          "Middle pinches",
			Instruction:    "Pinch your thumb and middle finger together, then release.",
			Kind:           "repeated_pinches",
			Channel:        "middle",
			TargetStrength: 0.6,
			Reps:           5,
		},
		{
			Label:       "Surya mudra",
			Instruction: "Touch your thumb to your ring finger and hold.",
			Kind:        "posture_hold",
			Posture:     "surya",
			HoldSeconds: 3,
			Reps:        3,
		},
		{
			Label:          "Index hold",
			Instruction:    "Pinch your thumb and index finger firmly and hold.",
			Kind:           "hold_at_target",
			Channel:        "index",
			TargetStrength: 0.7,
			HoldSeconds:    3,
			Reps:           1,
		},
	}
}

// StoragePath returns the configured storage path, or the default file
// for the driver inside DataDir.
func (c *Config) StoragePath() string {
	if c.Storage.Path != "" {
		return c.Storage.Path
	}
	if c.Storage.Driver == DriverJSON {
		return filepath.Join(c.DataDir, "rehabData.json")
	}
	return filepath.Join(c.DataDir, "mudra.db")
}
