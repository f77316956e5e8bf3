package tracking

import (
	"time"

	"github.com/banshee-data/sighting.report/internal/config"
)

// TrackerConfig holds the thresholds applied uniformly to every track.
// A Tracker copies it at construction and never changes it.
type TrackerConfig struct {
	TrackRetain      time.Duration // Idle time at which a track is dropped
	IoUPersist       float64       // Min IoU to accept a proposed match
	ConfThreshold    float64       // Min smoothed and average confidence to fire
	TrackMinDuration time.Duration // Track age that must be exceeded to fire
	Debounce         time.Duration // Min gap between emitted events, tracker-wide

	// BatchDebounce checks the debounce window once per frame, so every
	// track that qualifies in that frame fires against the same prior
	// event. When false the last fire time is re-read after every event
	// and at most one event is emitted per window.
	BatchDebounce bool
}

// DefaultTrackerConfig returns the built-in fallback thresholds.
func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfigFromTuning(config.DefaultTuningConfig())
}

// TrackerConfigFromTuning builds a TrackerConfig from a TuningConfig,
// converting millisecond values to durations. Unset or invalid tuning
// fields resolve to their fallbacks.
func TrackerConfigFromTuning(cfg *config.TuningConfig) TrackerConfig {
	if cfg == nil {
		cfg = config.EmptyTuningConfig()
	}
	return TrackerConfig{
		TrackRetain:      msToDuration(cfg.GetTrackRetainMs()),
		IoUPersist:       cfg.GetIoUPersist(),
		ConfThreshold:    cfg.GetConfThreshold(),
		TrackMinDuration: msToDuration(cfg.GetTrackMinDurationMs()),
		Debounce:         msToDuration(cfg.GetDebounceMs()),
		BatchDebounce:    !cfg.GetStrictDebounce(),
	}
}

// Tuning converts c back to its JSON tuning form.
func (c TrackerConfig) Tuning() *config.TuningConfig {
	retain := durationToMs(c.TrackRetain)
	minDur := durationToMs(c.TrackMinDuration)
	debounce := durationToMs(c.Debounce)
	iou := c.IoUPersist
	conf := c.ConfThreshold
	strict := !c.BatchDebounce
	return &config.TuningConfig{
		TrackRetainMs:      &retain,
		IoUPersist:         &iou,
		ConfThreshold:      &conf,
		TrackMinDurationMs: &minDur,
		DebounceMs:         &debounce,
		StrictDebounce:     &strict,
	}
}

func msToDuration(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}

func durationToMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
