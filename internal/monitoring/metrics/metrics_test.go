package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/sighting.report/internal/geometry"
	"github.com/banshee-data/sighting.report/internal/timeutil"
	"github.com/banshee-data/sighting.report/internal/tracking"
)

func TestObserveFrame(t *testing.T) {
	registry := prometheus.NewRegistry()
	m, err := NewTrackerMetrics(registry, "yard")
	require.NoError(t, err)

	m.ObserveFrame(tracking.FrameStats{Detections: 3, Matched: 1, Rejected: 1, Spawned: 2, Active: 4})
	m.ObserveFrame(tracking.FrameStats{Detections: 1, Matched: 1, Expired: 3, Active: 1})

	assert.Equal(t, float64(2), testutil.ToFloat64(m.FramesTotal))
	assert.Equal(t, float64(4), testutil.ToFloat64(m.DetectionsTotal))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.MatchesTotal.WithLabelValues("accepted")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.MatchesTotal.WithLabelValues("rejected")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.TracksSpawned))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.TracksExpired))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ActiveTracks), "gauge holds the latest value")
}

func TestObserveEvent(t *testing.T) {
	registry := prometheus.NewRegistry()
	m, err := NewTrackerMetrics(registry, "yard")
	require.NoError(t, err)

	m.ObserveEvent(tracking.TrackEvent{TrackID: "trk_1", AvgConf: 0.8, Duration: 1200 * time.Millisecond})
	assert.Equal(t, float64(1), testutil.ToFloat64(m.EventsTotal))

	expected := `
# HELP sighting_event_track_age_seconds Track age at the moment its sighting fired.
# TYPE sighting_event_track_age_seconds histogram
sighting_event_track_age_seconds_bucket{site="yard",le="0.5"} 0
sighting_event_track_age_seconds_bucket{site="yard",le="1"} 0
sighting_event_track_age_seconds_bucket{site="yard",le="2"} 1
sighting_event_track_age_seconds_bucket{site="yard",le="4"} 1
sighting_event_track_age_seconds_bucket{site="yard",le="8"} 1
sighting_event_track_age_seconds_bucket{site="yard",le="16"} 1
sighting_event_track_age_seconds_bucket{site="yard",le="32"} 1
sighting_event_track_age_seconds_bucket{site="yard",le="64"} 1
sighting_event_track_age_seconds_bucket{site="yard",le="+Inf"} 1
sighting_event_track_age_seconds_sum{site="yard"} 1.2
sighting_event_track_age_seconds_count{site="yard"} 1
`
	err = testutil.GatherAndCompare(registry, strings.NewReader(expected), "sighting_event_track_age_seconds")
	assert.NoError(t, err)
}

func TestRecordStoreAndFrameDuration(t *testing.T) {
	registry := prometheus.NewRegistry()
	m, err := NewTrackerMetrics(registry, "yard")
	require.NoError(t, err)

	m.RecordStore("success")
	m.RecordStore("success")
	m.RecordStore("invalid")
	m.RecordFrameDuration(150 * time.Microsecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.StoreTotal.WithLabelValues("success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.StoreTotal.WithLabelValues("invalid")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.FrameDuration))
}

func TestDuplicateRegistrationFails(t *testing.T) {
	registry := prometheus.NewRegistry()
	_, err := NewTrackerMetrics(registry, "yard")
	require.NoError(t, err)

	_, err = NewTrackerMetrics(registry, "yard")
	assert.Error(t, err)

	// A second site registers alongside the first.
	_, err = NewTrackerMetrics(registry, "gate")
	assert.NoError(t, err)
}

func TestMetricsAsTrackerObserver(t *testing.T) {
	registry := prometheus.NewRegistry()
	m, err := NewTrackerMetrics(registry, "yard")
	require.NoError(t, err)

	cfg := tracking.TrackerConfig{
		TrackRetain:      500 * time.Millisecond,
		IoUPersist:       0.1,
		ConfThreshold:    0.5,
		TrackMinDuration: 800 * time.Millisecond,
		Debounce:         300 * time.Millisecond,
	}
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	clock := timeutil.SequenceMs(base, 0, 400, 800, 1200)
	tr := tracking.NewTracker(clock, cfg, tracking.WithObserver(m))

	d := []tracking.Detection{{Box: geometry.Box{0, 0, 1, 1}, Score: 0.8}}
	for i := 0; i < 4; i++ {
		tr.Update(d)
	}

	assert.Equal(t, float64(4), testutil.ToFloat64(m.FramesTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.TracksSpawned))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.MatchesTotal.WithLabelValues("accepted")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.EventsTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ActiveTracks))
}
