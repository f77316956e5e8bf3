// Package session binds one tracker to a site and forwards fired events
// to a sighting sink.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/banshee-data/sighting.report/internal/db"
	"github.com/banshee-data/sighting.report/internal/monitoring"
	"github.com/banshee-data/sighting.report/internal/timeutil"
	"github.com/banshee-data/sighting.report/internal/tracking"
)

// Sink receives one Sighting per fired track event.
type Sink interface {
	RecordSighting(ctx context.Context, s db.Sighting) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, s db.Sighting) error

// RecordSighting calls f.
func (f SinkFunc) RecordSighting(ctx context.Context, s db.Sighting) error { return f(ctx, s) }

// StoreRecorder counts sink outcomes by status.
type StoreRecorder interface {
	RecordStore(status string)
}

// Sink outcome statuses passed to StoreRecorder.
const (
	StoreSuccess = "success"
	StoreInvalid = "invalid"
	StoreError   = "error"
)

// MeteredSink wraps sink and reports every outcome to rec.
func MeteredSink(sink Sink, rec StoreRecorder) Sink {
	return SinkFunc(func(ctx context.Context, s db.Sighting) error {
		err := sink.RecordSighting(ctx, s)
		switch {
		case err == nil:
			rec.RecordStore(StoreSuccess)
		case errors.Is(err, db.ErrInvalidSighting):
			rec.RecordStore(StoreInvalid)
		default:
			rec.RecordStore(StoreError)
		}
		return err
	})
}

// FrameTimer is implemented by observers that also record update latency.
type FrameTimer interface {
	RecordFrameDuration(d time.Duration)
}

// Session owns a tracker for one capture stream. All methods are safe for
// concurrent use; frames are processed one at a time.
type Session struct {
	mu      sync.Mutex
	tracker tracking.FrameTracker
	factory func() tracking.FrameTracker

	clock timeutil.Clock
	site  string
	sink  Sink
	timer FrameTimer

	frames int
	events int
}

// Option customises a Session.
type Option func(*Session)

// WithSink forwards fired events to sink.
func WithSink(sink Sink) Option {
	return func(s *Session) { s.sink = sink }
}

// WithTrackerFactory replaces the tracker constructor. The factory runs
// once in New and again on every Reset.
func WithTrackerFactory(factory func() tracking.FrameTracker) Option {
	return func(s *Session) {
		if factory != nil {
			s.factory = factory
		}
	}
}

// WithFrameTimer records how long each tracker update takes.
func WithFrameTimer(timer FrameTimer) Option {
	return func(s *Session) { s.timer = timer }
}

// New creates a session for site. Every tracker the session builds, now
// and after Reset, uses clock, cfg and opts.
func New(site string, clock timeutil.Clock, cfg tracking.TrackerConfig, opts []tracking.Option, sessOpts ...Option) *Session {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	s := &Session{
		clock: clock,
		site:  site,
		factory: func() tracking.FrameTracker {
			return tracking.NewTracker(clock, cfg, opts...)
		},
	}
	for _, opt := range sessOpts {
		opt(s)
	}
	s.tracker = s.factory()
	return s
}

// Site returns the label attached to every sighting.
func (s *Session) Site() string { return s.site }

// FrameResult is the outcome of one processed frame.
type FrameResult struct {
	Events       []tracking.TrackEvent
	ActiveTracks int // Working-set size right after this frame
}

// ProcessFrame runs one tracker update at the session clock's current
// time.
func (s *Session) ProcessFrame(ctx context.Context, dets []tracking.Detection) (FrameResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processLocked(ctx, dets, s.clock.Now())
}

// ProcessFrameAt runs one tracker update observed at now. Callers replaying
// recorded frames use it to keep the recorded timing.
func (s *Session) ProcessFrameAt(ctx context.Context, dets []tracking.Detection, now time.Time) (FrameResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processLocked(ctx, dets, now)
}

func (s *Session) processLocked(ctx context.Context, dets []tracking.Detection, now time.Time) (FrameResult, error) {
	start := time.Now()
	events := s.tracker.UpdateAt(dets, now)
	if s.timer != nil {
		s.timer.RecordFrameDuration(time.Since(start))
	}
	s.frames++
	s.events += len(events)
	res := FrameResult{Events: events, ActiveTracks: s.tracker.ActiveTrackCount()}

	if s.sink == nil || len(events) == 0 {
		return res, nil
	}

	var errs []error
	for _, ev := range events {
		sighting := SightingFromEvent(s.site, ev, now)
		if err := s.sink.RecordSighting(ctx, sighting); err != nil {
			monitoring.Logf("[Session] failed to record sighting for %s: %v", ev.TrackID, err)
			errs = append(errs, fmt.Errorf("track %s: %w", ev.TrackID, err))
		}
	}
	if len(errs) > 0 {
		return res, fmt.Errorf("failed to record %d of %d sightings: %w", len(errs), len(events), errors.Join(errs...))
	}
	return res, nil
}

// SightingFromEvent converts a fired event into its persisted form.
func SightingFromEvent(site string, ev tracking.TrackEvent, observedAt time.Time) db.Sighting {
	return db.Sighting{
		Site:       site,
		TrackID:    ev.TrackID,
		ObservedAt: observedAt,
		Box:        ev.Box,
		AvgConf:    ev.AvgConf,
		DurationMs: ev.Duration.Milliseconds(),
	}
}

// Reset discards all tracks and the debounce history by replacing the
// tracker.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracker = s.factory()
	monitoring.Logf("[Session] %s: tracker reset after %d frames, %d events", s.site, s.frames, s.events)
	s.frames = 0
	s.events = 0
}

// ActiveTrackCount returns the tracker's working-set size.
func (s *Session) ActiveTrackCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker.ActiveTrackCount()
}

// Tracks returns copies of the live tracks.
func (s *Session) Tracks() []tracking.Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker.Tracks()
}

// Config returns the tracker thresholds.
func (s *Session) Config() tracking.TrackerConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker.Config()
}

// Stats summarises activity since the session started or was last reset.
type Stats struct {
	Frames       int `json:"frames"`
	Events       int `json:"events"`
	ActiveTracks int `json:"active_tracks"`
}

// Stats returns frame and event counters.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{Frames: s.frames, Events: s.events, ActiveTracks: s.tracker.ActiveTrackCount()}
}
