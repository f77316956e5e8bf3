package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/sighting.report/internal/api"
	"github.com/banshee-data/sighting.report/internal/httputil"
	"github.com/banshee-data/sighting.report/internal/session"
	"github.com/banshee-data/sighting.report/internal/timeutil"
	"github.com/banshee-data/sighting.report/internal/tracking"
)

const maxLineBytes = 4 << 20

// replayEpoch anchors t_ms offsets for local replays.
var replayEpoch = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// frameLine is one JSONL input record.
type frameLine struct {
	TMs        int64                `json:"t_ms"`
	Detections []tracking.Detection `json:"detections"`
}

// eventLine is written for every fired event.
type eventLine struct {
	TMs   int64               `json:"t_ms"`
	Event tracking.TrackEvent `json:"event"`
}

// Summary describes one replay.
type Summary struct {
	Frames        int     `json:"frames"`
	Events        int     `json:"events"`
	AvgConfMean   float64 `json:"avg_conf_mean"`
	AvgConfStd    float64 `json:"avg_conf_stddev"`
	DurationMean  float64 `json:"duration_ms_mean"`
	DurationStd   float64 `json:"duration_ms_stddev"`
	ActiveAtClose int     `json:"active_tracks_at_close"`
}

type options struct {
	site string
	cfg  tracking.TrackerConfig
	sink session.Sink

	// serverURL switches to remote mode: frames are posted to
	// serverURL+"/frames" and paced by pacer using the recorded gaps.
	serverURL string
	client    httputil.HTTPClient
	pacer     timeutil.Clock
}

// frameProcessor hides whether frames are tracked locally or remotely.
type frameProcessor func(ctx context.Context, f frameLine) ([]tracking.TrackEvent, int, error)

func localProcessor(opts options) frameProcessor {
	clock := timeutil.NewMockClock(replayEpoch)
	var sessOpts []session.Option
	if opts.sink != nil {
		sessOpts = append(sessOpts, session.WithSink(opts.sink))
	}
	sess := session.New(opts.site, clock, opts.cfg, nil, sessOpts...)

	return func(ctx context.Context, f frameLine) ([]tracking.TrackEvent, int, error) {
		clock.Set(replayEpoch.Add(time.Duration(f.TMs) * time.Millisecond))
		res, err := sess.ProcessFrame(ctx, f.Detections)
		return res.Events, res.ActiveTracks, err
	}
}

func remoteProcessor(opts options) frameProcessor {
	pacer := opts.pacer
	if pacer == nil {
		pacer = timeutil.RealClock{}
	}
	url := strings.TrimRight(opts.serverURL, "/") + "/frames"
	first := true
	var prev int64

	return func(ctx context.Context, f frameLine) ([]tracking.TrackEvent, int, error) {
		if !first && f.TMs > prev {
			pacer.Sleep(time.Duration(f.TMs-prev) * time.Millisecond)
		}
		first = false
		prev = f.TMs

		var resp api.FrameResponse
		err := httputil.PostJSON(ctx, opts.client, url, api.FrameRequest{Detections: f.Detections}, &resp)
		return resp.Events, resp.ActiveTracks, err
	}
}

// run replays the JSONL frames in in, writing one line per event and a
// final summary line to out.
func run(ctx context.Context, in io.Reader, out io.Writer, opts options) (Summary, error) {
	process := localProcessor(opts)
	if opts.serverURL != "" {
		process = remoteProcessor(opts)
	}

	enc := json.NewEncoder(out)
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	var (
		summary   Summary
		avgConfs  []float64
		durations []float64
		lastT     int64
		lineNo    int
	)
	for scanner.Scan() {
		lineNo++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		var f frameLine
		if err := json.Unmarshal([]byte(raw), &f); err != nil {
			return summary, fmt.Errorf("line %d: invalid frame: %w", lineNo, err)
		}
		if summary.Frames > 0 && f.TMs < lastT {
			return summary, fmt.Errorf("line %d: t_ms %d goes back from %d", lineNo, f.TMs, lastT)
		}
		lastT = f.TMs

		events, active, err := process(ctx, f)
		summary.Frames++
		summary.ActiveAtClose = active
		for _, ev := range events {
			if encErr := enc.Encode(eventLine{TMs: f.TMs, Event: ev}); encErr != nil {
				return summary, fmt.Errorf("failed to write event: %w", encErr)
			}
			avgConfs = append(avgConfs, ev.AvgConf)
			durations = append(durations, float64(ev.Duration.Milliseconds()))
		}
		summary.Events += len(events)
		if err != nil {
			return summary, fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return summary, fmt.Errorf("failed to read frames: %w", err)
	}

	summary.AvgConfMean, summary.AvgConfStd = meanStdDev(avgConfs)
	summary.DurationMean, summary.DurationStd = meanStdDev(durations)
	if err := enc.Encode(map[string]Summary{"summary": summary}); err != nil {
		return summary, fmt.Errorf("failed to write summary: %w", err)
	}
	return summary, nil
}

// meanStdDev returns zeros where gonum would report NaN.
func meanStdDev(xs []float64) (mean, std float64) {
	switch len(xs) {
	case 0:
		return 0, 0
	case 1:
		return xs[0], 0
	}
	mean, std = stat.MeanStdDev(xs, nil)
	if math.IsNaN(std) {
		std = 0
	}
	return mean, std
}
