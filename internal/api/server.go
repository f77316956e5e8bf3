package api

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/banshee-data/sighting.report/internal/config"
	"github.com/banshee-data/sighting.report/internal/db"
	"github.com/banshee-data/sighting.report/internal/httputil"
	"github.com/banshee-data/sighting.report/internal/monitoring"
	"github.com/banshee-data/sighting.report/internal/session"
	"github.com/banshee-data/sighting.report/internal/tracking"
	"github.com/banshee-data/sighting.report/internal/version"
)

// ANSI escape codes for log colouring
const (
	colorCyan      = "\033[36m"
	colorReset     = "\033[0m"
	colorYellow    = "\033[33m"
	colorBoldGreen = "\033[1;32m"
	colorBoldRed   = "\033[1;31m"
)

// SightingStore lists persisted sightings. *db.DB implements it.
type SightingStore interface {
	ListSightings(ctx context.Context, f db.SightingFilter) ([]db.Sighting, int, error)
}

type Server struct {
	sess     *session.Session
	store    SightingStore
	gatherer prometheus.Gatherer
}

// NewServer serves sess. store and gatherer are optional; without them
// /sightings answers 503 and /metrics is not mounted.
func NewServer(sess *session.Session, store SightingStore, gatherer prometheus.Gatherer) *Server {
	return &Server{
		sess:     sess,
		store:    store,
		gatherer: gatherer,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.health)
	mux.HandleFunc("/frames", s.postFrame)
	mux.HandleFunc("/sightings", s.listSightings)
	mux.HandleFunc("/status", s.showStatus)
	mux.HandleFunc("/reset", s.resetSession)
	if s.gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w, http.MethodGet)
		return
	}
	httputil.WriteJSONOK(w, map[string]string{"status": "ok"})
}

// FrameRequest is the POST /frames body.
type FrameRequest struct {
	Detections []tracking.Detection `json:"detections"`
}

// FrameResponse is the POST /frames reply.
type FrameResponse struct {
	Events       []tracking.TrackEvent `json:"events"`
	ActiveTracks int                   `json:"active_tracks"`
	Error        string                `json:"error,omitempty"`
}

func validateDetections(dets []tracking.Detection) error {
	for i, d := range dets {
		for _, v := range d.Box {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("detections[%d]: box must be finite", i)
			}
		}
		if !(d.Score >= 0 && d.Score <= 1) {
			return fmt.Errorf("detections[%d]: score must be between 0 and 1", i)
		}
	}
	return nil
}

func (s *Server) postFrame(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w, http.MethodPost)
		return
	}

	var req FrameRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if err := validateDetections(req.Detections); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	res, err := s.sess.ProcessFrame(r.Context(), req.Detections)
	resp := FrameResponse{
		Events:       res.Events,
		ActiveTracks: res.ActiveTracks,
	}
	if resp.Events == nil {
		resp.Events = []tracking.TrackEvent{}
	}
	if err != nil {
		// The tracker has already consumed the frame; report the events
		// alongside the persistence failure.
		resp.Error = err.Error()
		httputil.WriteJSON(w, http.StatusInternalServerError, resp)
		return
	}
	httputil.WriteJSONOK(w, resp)
}

// SightingList is the GET /sightings reply.
type SightingList struct {
	Items []db.Sighting `json:"items"`
	Total int           `json:"total"`
}

func (s *Server) listSightings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w, http.MethodGet)
		return
	}
	if s.store == nil {
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, "sighting store not configured")
		return
	}

	filter, err := parseSightingFilter(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	items, total, err := s.store.ListSightings(r.Context(), filter)
	if err != nil {
		monitoring.Logf("[api] list sightings: %v", err)
		httputil.InternalServerError(w, "failed to list sightings")
		return
	}
	httputil.WriteJSONOK(w, SightingList{Items: items, Total: total})
}

func parseSightingFilter(r *http.Request) (db.SightingFilter, error) {
	var f db.SightingFilter
	var err error

	if f.Limit, err = httputil.QueryInt(r, "limit", db.DefaultListLimit); err != nil {
		return f, err
	}
	if f.Limit == 0 || f.Limit > db.MaxListLimit {
		return f, fmt.Errorf("limit must be between 1 and %d", db.MaxListLimit)
	}
	if f.Offset, err = httputil.QueryInt(r, "offset", 0); err != nil {
		return f, err
	}

	q := r.URL.Query()
	f.Site = q.Get("site")
	if raw := q.Get("from"); raw != "" {
		if f.From, err = time.Parse(time.RFC3339, raw); err != nil {
			return f, fmt.Errorf("from must be an RFC3339 timestamp")
		}
	}
	if raw := q.Get("to"); raw != "" {
		if f.To, err = time.Parse(time.RFC3339, raw); err != nil {
			return f, fmt.Errorf("to must be an RFC3339 timestamp")
		}
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return f, fmt.Errorf("to must not be before from")
	}
	return f, nil
}

// Status is the GET /status reply.
type Status struct {
	Site    string               `json:"site"`
	Version string               `json:"version"`
	Config  *config.TuningConfig `json:"config"`
	Stats   session.Stats        `json:"stats"`
	Tracks  []tracking.Track     `json:"tracks"`
}

func (s *Server) showStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w, http.MethodGet)
		return
	}
	httputil.WriteJSONOK(w, Status{
		Site:    s.sess.Site(),
		Version: version.Version,
		Config:  s.sess.Config().Tuning(),
		Stats:   s.sess.Stats(),
		Tracks:  s.sess.Tracks(),
	})
}

func (s *Server) resetSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w, http.MethodPost)
		return
	}
	s.sess.Reset()
	httputil.WriteJSONOK(w, map[string]string{"status": "reset"})
}
