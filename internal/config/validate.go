package config

import (
	"fmt"
	"os"
	"strings"
)

var validLogLevels = map[string]bool{
	"debug":   true,
	"info":    true,
	"warn":    true,
	"warning": true,
	"error":   true,
}

// ValidationResult splits problems into fatals, which must stop startup, and
// warnings, which were corrected in place.
type ValidationResult struct {
	Fatals   []error
	Warnings []error
}

func (r ValidationResult) HasFatals() bool {
	return len(r.Fatals) > 0
}

// ValidateTiered checks the config, clamping out-of-range values.
func (c *Config) ValidateTiered() ValidationResult {
	var r ValidationResult

	c.TimeoutMs = clamp(&r, "timeout_ms", c.TimeoutMs, 0, 10000)

	if c.CaptureSourceIndex < 0 {
		r.Warnings = append(r.Warnings, fmt.Errorf("capture_source_index %d is negative, using 0 (primary output)", c.CaptureSourceIndex))
		c.CaptureSourceIndex = 0
	}

	c.Frames = clamp(&r, "frames", c.Frames, 1, 100000)
	c.IntervalMs = clamp(&r, "interval_ms", c.IntervalMs, 0, 60000)

	if c.LogLevel != "" && !validLogLevels[strings.ToLower(c.LogLevel)] {
		r.Warnings = append(r.Warnings, fmt.Errorf("log_level %q is not valid (use debug, info, warn, error)", c.LogLevel))
		c.LogLevel = "info"
	}

	if c.LogFormat != "" && c.LogFormat != "text" && c.LogFormat != "json" {
		r.Warnings = append(r.Warnings, fmt.Errorf("log_format %q is not valid (use text or json)", c.LogFormat))
		c.LogFormat = "text"
	}

	if c.LogFile != "" {
		if info, err := os.Stat(c.LogFile); err == nil && info.IsDir() {
			r.Fatals = append(r.Fatals, fmt.Errorf("log_file %q is a directory", c.LogFile))
		}
	}

	c.LogMaxSizeMB = clamp(&r, "log_max_size_mb", c.LogMaxSizeMB, 1, 1024)
	c.LogMaxBackups = clamp(&r, "log_max_backups", c.LogMaxBackups, 1, 50)

	return r
}

func clamp(r *ValidationResult, key string, v, lo, hi int) int {
	switch {
	case v < lo:
		r.Warnings = append(r.Warnings, fmt.Errorf("%s %d is below minimum %d, clamping", key, v, lo))
		return lo
	case v > hi:
		r.Warnings = append(r.Warnings, fmt.Errorf("%s %d exceeds maximum %d, clamping", key, v, hi))
		return hi
	}
	return v
}
