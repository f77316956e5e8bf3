package tracking

import "time"

// FrameTracker abstracts the tracking implementation. Sessions hold a
// FrameTracker built by a factory that session.WithTrackerFactory can
// replace, so the pipeline can be driven by a scripted tracker in tests.
type FrameTracker interface {
	// Update processes one frame at the tracker clock's current time.
	Update(detections []Detection) []TrackEvent

	// UpdateAt processes one frame observed at now.
	UpdateAt(detections []Detection, now time.Time) []TrackEvent

	// ActiveTrackCount returns the current working-set size.
	ActiveTrackCount() int

	// Tracks returns copies of the live tracks.
	Tracks() []Track

	// Config returns the thresholds the tracker was built with.
	Config() TrackerConfig
}

// Verify at compile time that *Tracker implements FrameTracker.
var _ FrameTracker = (*Tracker)(nil)
