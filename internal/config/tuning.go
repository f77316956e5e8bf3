package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
)

// Fallback values applied whenever a tuning value is missing or invalid.
const (
	DefaultTrackRetainMs      = 750.0
	DefaultIoUPersist         = 0.3
	DefaultConfThreshold      = 0.4
	DefaultTrackMinDurationMs = 1500.0
	DefaultDebounceMs         = 60000.0
)

// TuningConfig represents the tracker tuning parameters. Every field is
// optional; the Get* accessors return the documented fallback for any
// field that is unset or out of range. The JSON schema matches the
// /api/status "config" object so the same document can seed a server.
type TuningConfig struct {
	TrackRetainMs      *float64 `json:"track_retain_ms,omitempty"`
	IoUPersist         *float64 `json:"iou_persist,omitempty"`
	ConfThreshold      *float64 `json:"conf_threshold,omitempty"`
	TrackMinDurationMs *float64 `json:"track_min_duration_ms,omitempty"`
	DebounceMs         *float64 `json:"debounce_ms,omitempty"`

	// StrictDebounce re-checks the debounce window after every event within
	// a frame. Setting it to false checks the window once per frame, so
	// several tracks may fire in the same frame.
	StrictDebounce *bool `json:"strict_debounce,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field populated
// with its fallback value.
func DefaultTuningConfig() *TuningConfig {
	return &TuningConfig{
		TrackRetainMs:      ptrFloat64(DefaultTrackRetainMs),
		IoUPersist:         ptrFloat64(DefaultIoUPersist),
		ConfThreshold:      ptrFloat64(DefaultConfThreshold),
		TrackMinDurationMs: ptrFloat64(DefaultTrackMinDurationMs),
		DebounceMs:         ptrFloat64(DefaultDebounceMs),
		StrictDebounce:     ptrBool(true),
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file fall back to their defaults, so
// partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 64 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values that are set are usable.
// Unlike the env loader, an explicit tuning file is rejected rather than
// silently corrected.
func (c *TuningConfig) Validate() error {
	checks := []struct {
		name     string
		v        *float64
		positive bool
	}{
		{"track_retain_ms", c.TrackRetainMs, false},
		{"iou_persist", c.IoUPersist, false},
		{"conf_threshold", c.ConfThreshold, false},
		{"track_min_duration_ms", c.TrackMinDurationMs, true},
		{"debounce_ms", c.DebounceMs, false},
	}
	for _, chk := range checks {
		if chk.v == nil {
			continue
		}
		if !acceptable(*chk.v, chk.positive) {
			if chk.positive {
				return fmt.Errorf("%s must be a positive number, got %v", chk.name, *chk.v)
			}
			return fmt.Errorf("%s must be a non-negative number, got %v", chk.name, *chk.v)
		}
	}
	return nil
}

func acceptable(v float64, positive bool) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	if positive {
		return v > 0
	}
	return v >= 0
}

func orDefault(v *float64, positive bool, fallback float64) float64 {
	if v == nil || !acceptable(*v, positive) {
		return fallback
	}
	return *v
}

// GetTrackRetainMs returns the track_retain_ms value or the default.
func (c *TuningConfig) GetTrackRetainMs() float64 {
	return orDefault(c.TrackRetainMs, false, DefaultTrackRetainMs)
}

// GetIoUPersist returns the iou_persist value or the default.
func (c *TuningConfig) GetIoUPersist() float64 {
	return orDefault(c.IoUPersist, false, DefaultIoUPersist)
}

// GetConfThreshold returns the conf_threshold value or the default.
func (c *TuningConfig) GetConfThreshold() float64 {
	return orDefault(c.ConfThreshold, false, DefaultConfThreshold)
}

// GetTrackMinDurationMs returns the track_min_duration_ms value or the default.
func (c *TuningConfig) GetTrackMinDurationMs() float64 {
	return orDefault(c.TrackMinDurationMs, true, DefaultTrackMinDurationMs)
}

// GetDebounceMs returns the debounce_ms value or the default.
func (c *TuningConfig) GetDebounceMs() float64 {
	return orDefault(c.DebounceMs, false, DefaultDebounceMs)
}

// GetStrictDebounce returns the strict_debounce value, true when unset.
func (c *TuningConfig) GetStrictDebounce() bool {
	if c.StrictDebounce == nil {
		return true
	}
	return *c.StrictDebounce
}

// Resolved returns a copy with every field populated from the Get*
// accessors, suitable for display.
func (c *TuningConfig) Resolved() *TuningConfig {
	return &TuningConfig{
		TrackRetainMs:      ptrFloat64(c.GetTrackRetainMs()),
		IoUPersist:         ptrFloat64(c.GetIoUPersist()),
		ConfThreshold:      ptrFloat64(c.GetConfThreshold()),
		TrackMinDurationMs: ptrFloat64(c.GetTrackMinDurationMs()),
		DebounceMs:         ptrFloat64(c.GetDebounceMs()),
		StrictDebounce:     ptrBool(c.GetStrictDebounce()),
	}
}
