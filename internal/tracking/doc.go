// Package tracking turns per-frame detections into sighting events.
//
// Responsibilities: frame-to-frame association by optimal assignment on
// an IoU cost matrix, per-track temporal state (smoothed box and
// confidence, match counts), retention-based cleanup, and a firing
// policy that emits at most one event per track, gated by a
// tracker-wide debounce window.
// Key types: Tracker, Detection, Track, TrackEvent, Assigner.
//
// No I/O happens in this package; time is read from an injected
// timeutil.Clock.
package tracking
