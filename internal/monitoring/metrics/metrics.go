// Package metrics exposes tracker and sighting-store activity as
// Prometheus metrics.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/banshee-data/sighting.report/internal/tracking"
)

// TrackerMetrics implements tracking.Observer and prometheus.Collector.
// One instance serves one site; the site is attached as a constant label.
type TrackerMetrics struct {
	FramesTotal     prometheus.Counter
	DetectionsTotal prometheus.Counter
	MatchesTotal    *prometheus.CounterVec // result=accepted|rejected
	TracksSpawned   prometheus.Counter
	TracksExpired   prometheus.Counter
	ActiveTracks    prometheus.Gauge
	EventsTotal     prometheus.Counter

	EventDuration prometheus.Histogram
	EventAvgConf  prometheus.Histogram
	FrameDuration prometheus.Histogram

	StoreTotal *prometheus.CounterVec // status=success|invalid|error

	site string
}

var _ tracking.Observer = (*TrackerMetrics)(nil)

// NewTrackerMetrics creates the metrics for site and registers them on
// registry.
func NewTrackerMetrics(registry prometheus.Registerer, site string) (*TrackerMetrics, error) {
	m := &TrackerMetrics{site: site}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register tracker metrics: %w", err)
	}
	return m, nil
}

func (m *TrackerMetrics) initMetrics() {
	labels := prometheus.Labels{"site": m.site}

	m.FramesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "sighting_frames_total",
		Help:        "Total number of frames passed to the tracker.",
		ConstLabels: labels,
	})
	m.DetectionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "sighting_detections_total",
		Help:        "Total number of detections passed to the tracker.",
		ConstLabels: labels,
	})
	m.MatchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "sighting_matches_total",
		Help:        "Proposed track/detection pairings by outcome.",
		ConstLabels: labels,
	}, []string{"result"})
	m.TracksSpawned = prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "sighting_tracks_spawned_total",
		Help:        "Total number of tracks created.",
		ConstLabels: labels,
	})
	m.TracksExpired = prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "sighting_tracks_expired_total",
		Help:        "Total number of tracks dropped after the retention window.",
		ConstLabels: labels,
	})
	m.ActiveTracks = prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "sighting_active_tracks",
		Help:        "Tracks in the working set after the most recent frame.",
		ConstLabels: labels,
	})
	m.EventsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "sighting_events_total",
		Help:        "Total number of sighting events fired.",
		ConstLabels: labels,
	})
	m.EventDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "sighting_event_track_age_seconds",
		Help:        "Track age at the moment its sighting fired.",
		ConstLabels: labels,
		Buckets:     prometheus.ExponentialBuckets(0.5, 2, 8), // 0.5s to ~64s
	})
	m.EventAvgConf = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "sighting_event_avg_confidence",
		Help:        "Average detection confidence of fired tracks.",
		ConstLabels: labels,
		Buckets:     prometheus.LinearBuckets(0.1, 0.1, 9),
	})
	m.FrameDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "sighting_frame_process_duration_seconds",
		Help:        "Time taken to run one tracker update.",
		ConstLabels: labels,
		Buckets:     prometheus.ExponentialBuckets(0.00001, 2, 12), // 10us to ~20ms
	})
	m.StoreTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "sighting_store_total",
		Help:        "Sighting persistence attempts by status.",
		ConstLabels: labels,
	}, []string{"status"})
}

// ObserveFrame records the counters from one tracker update.
func (m *TrackerMetrics) ObserveFrame(s tracking.FrameStats) {
	m.FramesTotal.Inc()
	m.DetectionsTotal.Add(float64(s.Detections))
	m.MatchesTotal.WithLabelValues("accepted").Add(float64(s.Matched))
	m.MatchesTotal.WithLabelValues("rejected").Add(float64(s.Rejected))
	m.TracksSpawned.Add(float64(s.Spawned))
	m.TracksExpired.Add(float64(s.Expired))
	m.ActiveTracks.Set(float64(s.Active))
}

// ObserveEvent records one fired sighting.
func (m *TrackerMetrics) ObserveEvent(ev tracking.TrackEvent) {
	m.EventsTotal.Inc()
	m.EventDuration.Observe(ev.Duration.Seconds())
	m.EventAvgConf.Observe(ev.AvgConf)
}

// RecordFrameDuration records the wall time spent in one update.
func (m *TrackerMetrics) RecordFrameDuration(d time.Duration) {
	m.FrameDuration.Observe(d.Seconds())
}

// RecordStore records the outcome of persisting one sighting.
func (m *TrackerMetrics) RecordStore(status string) {
	m.StoreTotal.WithLabelValues(status).Inc()
}

// Describe implements the prometheus.Collector interface.
func (m *TrackerMetrics) Describe(ch chan<- *prometheus.Desc) {
	ch <- m.FramesTotal.Desc()
	ch <- m.DetectionsTotal.Desc()
	m.MatchesTotal.Describe(ch)
	ch <- m.TracksSpawned.Desc()
	ch <- m.TracksExpired.Desc()
	ch <- m.ActiveTracks.Desc()
	ch <- m.EventsTotal.Desc()
	ch <- m.EventDuration.Desc()
	ch <- m.EventAvgConf.Desc()
	ch <- m.FrameDuration.Desc()
	m.StoreTotal.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *TrackerMetrics) Collect(ch chan<- prometheus.Metric) {
	ch <- m.FramesTotal
	ch <- m.DetectionsTotal
	m.MatchesTotal.Collect(ch)
	ch <- m.TracksSpawned
	ch <- m.TracksExpired
	ch <- m.ActiveTracks
	ch <- m.EventsTotal
	ch <- m.EventDuration
	ch <- m.EventAvgConf
	ch <- m.FrameDuration
	m.StoreTotal.Collect(ch)
}
