// Command replay feeds recorded detection frames through the tracker.
//
// Input is JSONL, one frame per line:
//
//	{"t_ms":0,"detections":[{"box":[10,10,50,90],"score":0.8}]}
//
// Frames are tracked locally against a mock clock driven by t_ms, or
// posted to a running sighting server with -server, paced in real time.
//
// Usage:
//
//	go run ./cmd/replay [flags] < frames.jsonl
//
// Flags:
//
//	-in        Input file (default: stdin)
//	-site      Site label for sightings (default: replay)
//	-tuning    JSON tracker tuning file
//	-db        Persist fired sightings to this SQLite database
//	-server    Base API URL of a sighting server, e.g. http://localhost:8080/api
package main

import (
	"context"
	"flag"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/banshee-data/sighting.report/internal/config"
	"github.com/banshee-data/sighting.report/internal/db"
	"github.com/banshee-data/sighting.report/internal/tracking"
)

func main() {
	inPath := flag.String("in", "", "Input JSONL file (default: stdin)")
	site := flag.String("site", "replay", "Site label for sightings")
	tuningPath := flag.String("tuning", "", "JSON tracker tuning file")
	dbPath := flag.String("db", "", "Persist fired sightings to this SQLite database")
	serverURL := flag.String("server", "", "Base API URL of a sighting server")
	flag.Parse()

	if *serverURL != "" && (*dbPath != "" || *tuningPath != "") {
		log.Fatal("-db and -tuning apply to local replays only")
	}

	var in io.Reader = os.Stdin
	if *inPath != "" {
		f, err := os.Open(*inPath)
		if err != nil {
			log.Fatalf("failed to open input: %v", err)
		}
		defer f.Close()
		in = f
	}

	tuning := config.EmptyTuningConfig()
	if *tuningPath != "" {
		var err error
		if tuning, err = config.LoadTuningConfig(*tuningPath); err != nil {
			log.Fatalf("failed to load tracker tuning: %v", err)
		}
	}

	opts := options{
		site:      *site,
		cfg:       tracking.TrackerConfigFromTuning(tuning),
		serverURL: *serverURL,
		client:    &http.Client{Timeout: 10 * time.Second},
	}

	if *dbPath != "" {
		store, err := db.NewDB(*dbPath)
		if err != nil {
			log.Fatalf("failed to open database: %v", err)
		}
		defer store.Close()
		opts.sink = store
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	summary, err := run(ctx, in, os.Stdout, opts)
	if err != nil {
		log.Fatalf("replay failed after %d frames: %v", summary.Frames, err)
	}
	log.Printf("replayed %d frames, %d events", summary.Frames, summary.Events)
}
