package tracking

import (
	"encoding/json"
	"time"

	"github.com/banshee-data/sighting.report/internal/geometry"
	"github.com/banshee-data/sighting.report/internal/timeutil"
)

// Smoothing constants applied on every accepted match.
const (
	boxSmoothing    = 0.5 // Weight of the new detection when interpolating the box
	confidenceDecay = 0.6 // Weight of the previous smoothed confidence
)

// Detection is one detector output for the current frame.
type Detection struct {
	Box   geometry.Box `json:"box"`
	Score float64      `json:"score"`
}

// Track is the tracker's hypothesis that a run of detections belongs to
// one physical object.
type Track struct {
	ID             string       `json:"id"`
	Box            geometry.Box `json:"box"`
	Confidence     float64      `json:"confidence"` // Exponentially smoothed
	CreatedAt      time.Time    `json:"created_at"`
	LastSeen       time.Time    `json:"last_seen"`
	Frames         int          `json:"frames"` // Matched frames, 1 on creation
	CumulativeConf float64      `json:"cumulative_conf"`
	Fired          bool         `json:"fired"`
}

// AvgConf returns the mean matched detection score.
func (t *Track) AvgConf() float64 {
	if t.Frames <= 0 {
		return 0
	}
	return t.CumulativeConf / float64(t.Frames)
}

// TrackEvent is emitted at most once per track when the firing policy is
// satisfied.
type TrackEvent struct {
	TrackID  string
	Box      geometry.Box
	AvgConf  float64
	Duration time.Duration // Time since the track was created
}

type trackEventJSON struct {
	TrackID    string       `json:"track_id"`
	Box        geometry.Box `json:"box"`
	AvgConf    float64      `json:"avg_conf"`
	DurationMs int64        `json:"duration_ms"`
}

// MarshalJSON renders Duration as integer milliseconds.
func (e TrackEvent) MarshalJSON() ([]byte, error) {
	return json.Marshal(trackEventJSON{
		TrackID:    e.TrackID,
		Box:        e.Box,
		AvgConf:    e.AvgConf,
		DurationMs: e.Duration.Milliseconds(),
	})
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (e *TrackEvent) UnmarshalJSON(data []byte) error {
	var raw trackEventJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*e = TrackEvent{
		TrackID:  raw.TrackID,
		Box:      raw.Box,
		AvgConf:  raw.AvgConf,
		Duration: time.Duration(raw.DurationMs) * time.Millisecond,
	}
	return nil
}

// Tracker is an online single-class multi-object tracker. It is a
// synchronous state machine: Update is the only mutating entry point and
// must not be called concurrently on the same instance. Separate
// instances share nothing.
type Tracker struct {
	cfg      TrackerConfig
	clock    timeutil.Clock
	assigner Assigner
	observer Observer
	newID    func() string

	tracks []*Track

	// Time of the most recent emitted event, tracker-wide.
	lastFire time.Time
	hasFired bool
}

// Option customises a Tracker.
type Option func(*Tracker)

// WithAssigner replaces the default Hungarian solver.
func WithAssigner(a Assigner) Option {
	return func(t *Tracker) {
		if a != nil {
			t.assigner = a
		}
	}
}

// WithObserver installs per-frame instrumentation.
func WithObserver(o Observer) Option {
	return func(t *Tracker) {
		if o != nil {
			t.observer = o
		}
	}
}

// WithIDGenerator replaces NewTrackID. The generator must never repeat.
func WithIDGenerator(gen func() string) Option {
	return func(t *Tracker) {
		if gen != nil {
			t.newID = gen
		}
	}
}

// NewTracker creates a tracker that reads time from clock. A nil clock
// uses the real monotonic clock.
func NewTracker(clock timeutil.Clock, cfg TrackerConfig, opts ...Option) *Tracker {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	t := &Tracker{
		cfg:      cfg,
		clock:    clock,
		assigner: HungarianAssigner{},
		observer: nopObserver{},
		newID:    NewTrackID,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Config returns the tracker's thresholds.
func (t *Tracker) Config() TrackerConfig {
	return t.cfg
}

// Update processes one frame of detections at the clock's current time
// and returns the events fired in this frame.
func (t *Tracker) Update(detections []Detection) []TrackEvent {
	return t.UpdateAt(detections, t.clock.Now())
}

// UpdateAt processes one frame of detections observed at now. Successive
// calls must pass non-decreasing times.
func (t *Tracker) UpdateAt(detections []Detection, now time.Time) []TrackEvent {
	stats := FrameStats{Detections: len(detections)}
	stats.Expired = t.cleanup(now)

	if len(t.tracks) == 0 {
		for _, det := range detections {
			t.spawn(det, now)
		}
		stats.Spawned = len(detections)
		stats.Active = len(t.tracks)
		t.observer.ObserveFrame(stats)
		return nil
	}

	if len(detections) == 0 {
		stats.Active = len(t.tracks)
		t.observer.ObserveFrame(stats)
		return nil
	}

	pairs := t.assigner.Assign(t.costMatrix(detections))

	consumed := make([]bool, len(detections))
	matchedRow := make([]bool, len(t.tracks))
	updated := make([]*Track, 0, len(pairs))

	for _, p := range pairs {
		if p.Row < 0 || p.Row >= len(t.tracks) || p.Col < 0 || p.Col >= len(detections) {
			continue
		}
		if matchedRow[p.Row] || consumed[p.Col] {
			continue
		}
		track := t.tracks[p.Row]
		det := detections[p.Col]
		if geometry.IoU(track.Box, det.Box) < t.cfg.IoUPersist {
			stats.Rejected++
			continue
		}

		consumed[p.Col] = true
		matchedRow[p.Row] = true
		track.Box = geometry.BoxLerp(track.Box, det.Box, boxSmoothing)
		track.Confidence = track.Confidence*confidenceDecay + det.Score*(1-confidenceDecay)
		track.LastSeen = now
		track.Frames++
		track.CumulativeConf += det.Score
		updated = append(updated, track)
	}
	stats.Matched = len(updated)

	for j, det := range detections {
		if !consumed[j] {
			t.spawn(det, now)
			stats.Spawned++
		}
	}

	events := t.fire(updated, now)

	stats.Fired = len(events)
	stats.Active = len(t.tracks)
	t.observer.ObserveFrame(stats)
	for _, ev := range events {
		t.observer.ObserveEvent(ev)
	}
	return events
}

// fire applies the firing policy to the tracks matched this frame, in
// assignment order.
func (t *Tracker) fire(updated []*Track, now time.Time) []TrackEvent {
	var events []TrackEvent

	// In batch mode the debounce reference is captured once per frame and
	// every track that qualifies in this frame is checked against it.
	lastFire, hasFired := t.lastFire, t.hasFired

	for _, track := range updated {
		if track.Fired {
			continue
		}
		if !t.cfg.BatchDebounce {
			lastFire, hasFired = t.lastFire, t.hasFired
		}
		if hasFired && now.Sub(lastFire) < t.cfg.Debounce {
			continue
		}
		if track.Confidence < t.cfg.ConfThreshold {
			continue
		}
		avg := track.AvgConf()
		if avg < t.cfg.ConfThreshold {
			continue
		}
		// The track must have outlived the minimum duration, not merely
		// reached it. Strict on purpose: a track exactly TrackMinDuration
		// old does not fire.
		duration := now.Sub(track.CreatedAt)
		if duration <= t.cfg.TrackMinDuration {
			continue
		}

		track.Fired = true
		events = append(events, TrackEvent{
			TrackID:  track.ID,
			Box:      track.Box,
			AvgConf:  avg,
			Duration: duration,
		})
		t.lastFire = now
		t.hasFired = true
	}
	return events
}

func (t *Tracker) spawn(det Detection, now time.Time) {
	t.tracks = append(t.tracks, &Track{
		ID:             t.newID(),
		Box:            det.Box,
		Confidence:     det.Score,
		CreatedAt:      now,
		LastSeen:       now,
		Frames:         1,
		CumulativeConf: det.Score,
	})
}

// cleanup drops tracks whose idle time has reached TrackRetain and
// returns how many were removed. A track idle for exactly TrackRetain is
// dropped on purpose.
func (t *Tracker) cleanup(now time.Time) int {
	kept := t.tracks[:0]
	for _, track := range t.tracks {
		if now.Sub(track.LastSeen) < t.cfg.TrackRetain {
			kept = append(kept, track)
		}
	}
	removed := len(t.tracks) - len(kept)
	for i := len(kept); i < len(t.tracks); i++ {
		t.tracks[i] = nil
	}
	t.tracks = kept
	return removed
}

// costMatrix returns cost[i][j] = 1 - IoU(track i, detection j).
func (t *Tracker) costMatrix(detections []Detection) [][]float64 {
	cost := make([][]float64, len(t.tracks))
	for i, track := range t.tracks {
		cost[i] = make([]float64, len(detections))
		for j, det := range detections {
			cost[i][j] = 1 - geometry.IoU(track.Box, det.Box)
		}
	}
	return cost
}

// ActiveTrackCount returns the size of the working set.
func (t *Tracker) ActiveTrackCount() int {
	return len(t.tracks)
}

// Tracks returns copies of the tracks in the working set, oldest first.
func (t *Tracker) Tracks() []Track {
	out := make([]Track, len(t.tracks))
	for i, track := range t.tracks {
		out[i] = *track
	}
	return out
}

// LastFire returns the time of the most recent event and whether any
// event has fired yet.
func (t *Tracker) LastFire() (time.Time, bool) {
	return t.lastFire, t.hasFired
}
