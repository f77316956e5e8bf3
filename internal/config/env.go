// Package config loads tracker tuning from a JSON file or from an
// environment-style key/value map.
package config

import (
	"math"
	"os"
	"strconv"
	"strings"
)

// Environment keys read by LoadFromEnv and ApplyEnv.
const (
	EnvTrackRetainMs      = "TRACK_RETAIN_MS"
	EnvIoUPersist         = "EVENT_IOU_PERSIST"
	EnvConfThreshold      = "CONF_THRESHOLD"
	EnvTrackMinDurationMs = "TRACK_MIN_DURATION_MS"
	EnvDebounceMs         = "DEBOUNCE_MS"
	EnvStrictDebounce     = "STRICT_DEBOUNCE"
)

// EnvKeys lists every key understood by the env loader.
var EnvKeys = []string{
	EnvTrackRetainMs,
	EnvIoUPersist,
	EnvConfThreshold,
	EnvTrackMinDurationMs,
	EnvDebounceMs,
	EnvStrictDebounce,
}

// LoadFromEnv builds a fully populated TuningConfig from env. It never
// fails: missing, non-numeric, non-finite and out-of-range values are
// replaced by their fallbacks.
func LoadFromEnv(env map[string]string) *TuningConfig {
	cfg := EmptyTuningConfig()
	cfg.ApplyEnv(env)
	return cfg.Resolved()
}

// ApplyEnv overlays every acceptable value found in env onto c and leaves
// the remaining fields untouched. It returns the keys that were present
// but rejected.
func (c *TuningConfig) ApplyEnv(env map[string]string) []string {
	var rejected []string

	num := func(key string, positive bool, dst **float64) {
		raw, ok := env[key]
		if !ok {
			return
		}
		v, ok := parseNumber(raw)
		if !ok || !acceptable(v, positive) {
			rejected = append(rejected, key)
			return
		}
		*dst = ptrFloat64(v)
	}

	num(EnvTrackRetainMs, false, &c.TrackRetainMs)
	num(EnvIoUPersist, false, &c.IoUPersist)
	num(EnvConfThreshold, false, &c.ConfThreshold)
	num(EnvTrackMinDurationMs, true, &c.TrackMinDurationMs)
	num(EnvDebounceMs, false, &c.DebounceMs)

	if raw, ok := env[EnvStrictDebounce]; ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(raw)); err == nil {
			c.StrictDebounce = ptrBool(b)
		} else {
			rejected = append(rejected, EnvStrictDebounce)
		}
	}

	return rejected
}

// parseNumber accepts decimal and exponent notation. Blank input counts
// as missing.
func parseNumber(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// EnvFromOS collects prefix+key for every EnvKeys entry set in the process
// environment. The returned map is keyed without the prefix.
func EnvFromOS(prefix string) map[string]string {
	env := make(map[string]string, len(EnvKeys))
	for _, key := range EnvKeys {
		if v, ok := os.LookupEnv(prefix + key); ok {
			env[key] = v
		}
	}
	return env
}
