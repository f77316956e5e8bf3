package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/banshee-data/sighting.report/internal/api"
	"github.com/banshee-data/sighting.report/internal/config"
	"github.com/banshee-data/sighting.report/internal/db"
	"github.com/banshee-data/sighting.report/internal/monitoring"
	"github.com/banshee-data/sighting.report/internal/monitoring/metrics"
	"github.com/banshee-data/sighting.report/internal/session"
	"github.com/banshee-data/sighting.report/internal/tracking"
	"github.com/banshee-data/sighting.report/internal/version"
)

var (
	listen     = flag.String("listen", ":8080", "Listen address")
	dbPath     = flag.String("db", "sightings.db", "Path to the sightings SQLite database")
	site       = flag.String("site", "default", "Site label attached to every sighting")
	tuningPath = flag.String("tuning", "", "Optional JSON tracker tuning file")
	envPrefix  = flag.String("env-prefix", "SIGHTING_", "Prefix for tracker environment overrides (e.g. SIGHTING_DEBOUNCE_MS)")
	showVer    = flag.Bool("version", false, "Print version and exit")
)

// loadTrackerConfig reads the tuning file, if any, and overlays env.
// Invalid env values are logged and ignored.
func loadTrackerConfig(path string, env map[string]string) (tracking.TrackerConfig, error) {
	tuning := config.EmptyTuningConfig()
	if path != "" {
		var err error
		if tuning, err = config.LoadTuningConfig(path); err != nil {
			return tracking.TrackerConfig{}, err
		}
	}
	for _, key := range tuning.ApplyEnv(env) {
		monitoring.Logf("ignoring invalid tracker setting %s=%q", key, env[key])
	}
	return tracking.TrackerConfigFromTuning(tuning), nil
}

// newHandler assembles the API, metrics and admin routes.
func newHandler(sess *session.Session, store *db.DB, registry *prometheus.Registry) (http.Handler, error) {
	mux := http.NewServeMux()

	// mount the admin debugging routes (accessible only in dev mode or over Tailscale)
	if err := store.AttachAdminRoutes(mux); err != nil {
		return nil, fmt.Errorf("failed to attach admin routes: %w", err)
	}

	apiMux := api.NewServer(sess, store, registry).ServeMux()
	mux.Handle("/api/", http.StripPrefix("/api", apiMux))
	return api.LoggingMiddleware(mux), nil
}

func main() {
	flag.Parse()

	if *showVer {
		fmt.Println(version.String())
		return
	}
	log.Printf("sighting %s", version.String())

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	cfg, err := loadTrackerConfig(*tuningPath, config.EnvFromOS(*envPrefix))
	if err != nil {
		log.Fatalf("failed to load tracker tuning: %v", err)
	}
	log.Printf("tracker config: retain=%s iou=%.2f conf=%.2f min_duration=%s debounce=%s batch_debounce=%t",
		cfg.TrackRetain, cfg.IoUPersist, cfg.ConfThreshold, cfg.TrackMinDuration, cfg.Debounce, cfg.BatchDebounce)

	store, err := db.NewDB(*dbPath)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer store.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	trackerMetrics, err := metrics.NewTrackerMetrics(registry, *site)
	if err != nil {
		log.Fatalf("failed to create metrics: %v", err)
	}

	sess := session.New(*site, nil, cfg,
		[]tracking.Option{tracking.WithObserver(trackerMetrics)},
		session.WithSink(session.MeteredSink(store, trackerMetrics)),
		session.WithFrameTimer(trackerMetrics),
	)

	handler, err := newHandler(sess, store, registry)
	if err != nil {
		log.Fatal(err)
	}

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	wg.Add(1)
	go func() {
		defer wg.Done()

		server := &http.Server{
			Addr:              *listen,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			log.Printf("sighting server for site %q listening on %s", *site, *listen)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}

		log.Printf("HTTP server routine stopped")
	}()

	wg.Wait()
	stats := sess.Stats()
	log.Printf("Graceful shutdown complete: %d frames, %d events", stats.Frames, stats.Events)
}
