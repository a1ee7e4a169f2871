package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks the whole configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		add("log_level %q unknown", c.LogLevel)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		add("log_format %q unknown", c.LogFormat)
	}
	switch c.Storage.Driver {
	case DriverSQLite, DriverJSON:
	default:
		add("storage.driver %q unknown", c.Storage.Driver)
	}

	if pc, err := c.PinchConfig(); err != nil {
		errs = append(errs, err)
	} else if err := pc.Validate(); err != nil {
		errs = append(errs, err)
	}
	switch c.Pinch.StrengthSource {
	case StrengthSensor, StrengthDistance:
	default:
		add("pinch.strength_source %q unknown", c.Pinch.StrengthSource)
	}
	if c.Pinch.DistanceMin < 0 || c.Pinch.DistanceMin >= c.Pinch.DistanceMax {
		add("pinch.distance_min %v must be non-negative and below distance_max %v", c.Pinch.DistanceMin, c.Pinch.DistanceMax)
	}

	if err := c.PostureConfig().Validate(); err != nil {
		errs = append(errs, err)
	}

	if len(c.Session.Tasks) == 0 {
		add("session.tasks is empty")
	} else if _, err := c.Tasks(); err != nil {
		errs = append(errs, err)
	}

	if c.Replay.FPS <= 0 {
		add("replay.fps %d must be positive", c.Replay.FPS)
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}
