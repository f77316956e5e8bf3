package config

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultTuningConfig(t *testing.T) {
	cfg := DefaultTuningConfig()

	if cfg.TrackRetainMs == nil || *cfg.TrackRetainMs != 750 {
		t.Errorf("Expected TrackRetainMs 750, got %v", cfg.TrackRetainMs)
	}
	if cfg.StrictDebounce == nil || !*cfg.StrictDebounce {
		t.Errorf("Expected StrictDebounce true, got %v", cfg.StrictDebounce)
	}

	if cfg.GetIoUPersist() != 0.3 {
		t.Errorf("GetIoUPersist() = %f, want 0.3", cfg.GetIoUPersist())
	}
	if cfg.GetConfThreshold() != 0.4 {
		t.Errorf("GetConfThreshold() = %f, want 0.4", cfg.GetConfThreshold())
	}
	if cfg.GetTrackMinDurationMs() != 1500 {
		t.Errorf("GetTrackMinDurationMs() = %f, want 1500", cfg.GetTrackMinDurationMs())
	}
	if cfg.GetDebounceMs() != 60000 {
		t.Errorf("GetDebounceMs() = %f, want 60000", cfg.GetDebounceMs())
	}
}

func TestEmptyTuningConfig_Getters(t *testing.T) {
	cfg := EmptyTuningConfig()
	resolved := cfg.Resolved()
	def := DefaultTuningConfig()

	pairs := []struct {
		name      string
		got, want float64
	}{
		{"track_retain_ms", *resolved.TrackRetainMs, *def.TrackRetainMs},
		{"iou_persist", *resolved.IoUPersist, *def.IoUPersist},
		{"conf_threshold", *resolved.ConfThreshold, *def.ConfThreshold},
		{"track_min_duration_ms", *resolved.TrackMinDurationMs, *def.TrackMinDurationMs},
		{"debounce_ms", *resolved.DebounceMs, *def.DebounceMs},
	}
	for _, p := range pairs {
		if p.got != p.want {
			t.Errorf("%s = %v, want %v", p.name, p.got, p.want)
		}
	}
	if !cfg.GetStrictDebounce() {
		t.Error("GetStrictDebounce() should default to true")
	}
}

func TestGettersRejectOutOfRange(t *testing.T) {
	cfg := &TuningConfig{
		TrackRetainMs:      ptrFloat64(-1),
		TrackMinDurationMs: ptrFloat64(0),
		ConfThreshold:      ptrFloat64(math.NaN()),
		DebounceMs:         ptrFloat64(math.Inf(1)),
		IoUPersist:         ptrFloat64(0),
	}
	if cfg.GetTrackRetainMs() != DefaultTrackRetainMs {
		t.Errorf("negative retain should fall back, got %v", cfg.GetTrackRetainMs())
	}
	if cfg.GetTrackMinDurationMs() != DefaultTrackMinDurationMs {
		t.Errorf("zero min duration should fall back, got %v", cfg.GetTrackMinDurationMs())
	}
	if cfg.GetConfThreshold() != DefaultConfThreshold {
		t.Errorf("NaN threshold should fall back, got %v", cfg.GetConfThreshold())
	}
	if cfg.GetDebounceMs() != DefaultDebounceMs {
		t.Errorf("Inf debounce should fall back, got %v", cfg.GetDebounceMs())
	}
	if cfg.GetIoUPersist() != 0 {
		t.Errorf("zero iou_persist is allowed, got %v", cfg.GetIoUPersist())
	}
}

func TestLoadTuningConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "tuning.json")

	testJSON := `{
  "track_retain_ms": 500,
  "iou_persist": 0.1,
  "conf_threshold": 0.5,
  "track_min_duration_ms": 800,
  "debounce_ms": 300,
  "strict_debounce": false
}`
	if err := os.WriteFile(configPath, []byte(testJSON), 0o644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadTuningConfig(configPath)
	if err != nil {
		t.Fatalf("LoadTuningConfig failed: %v", err)
	}

	if cfg.GetTrackRetainMs() != 500 {
		t.Errorf("GetTrackRetainMs() = %v, want 500", cfg.GetTrackRetainMs())
	}
	if cfg.GetIoUPersist() != 0.1 {
		t.Errorf("GetIoUPersist() = %v, want 0.1", cfg.GetIoUPersist())
	}
	if cfg.GetConfThreshold() != 0.5 {
		t.Errorf("GetConfThreshold() = %v, want 0.5", cfg.GetConfThreshold())
	}
	if cfg.GetTrackMinDurationMs() != 800 {
		t.Errorf("GetTrackMinDurationMs() = %v, want 800", cfg.GetTrackMinDurationMs())
	}
	if cfg.GetDebounceMs() != 300 {
		t.Errorf("GetDebounceMs() = %v, want 300", cfg.GetDebounceMs())
	}
	if cfg.GetStrictDebounce() {
		t.Error("GetStrictDebounce() = true, want false")
	}
}

func TestLoadTuningConfig_Partial(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "partial.json")
	if err := os.WriteFile(configPath, []byte(`{"debounce_ms": 1000}`), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadTuningConfig(configPath)
	if err != nil {
		t.Fatalf("LoadTuningConfig failed: %v", err)
	}
	if cfg.GetDebounceMs() != 1000 {
		t.Errorf("GetDebounceMs() = %v, want 1000", cfg.GetDebounceMs())
	}
	if cfg.GetTrackRetainMs() != DefaultTrackRetainMs {
		t.Errorf("omitted field should use default, got %v", cfg.GetTrackRetainMs())
	}
}

func TestLoadTuningConfig_Errors(t *testing.T) {
	tmpDir := t.TempDir()

	write := func(name, body string) string {
		p := filepath.Join(tmpDir, name)
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		return p
	}

	tests := []struct {
		name    string
		path    string
		wantSub string
	}{
		{"wrong extension", write("tuning.yaml", "{}"), ".json extension"},
		{"missing file", filepath.Join(tmpDir, "missing.json"), "failed to stat"},
		{"bad json", write("bad.json", "{not json"), "failed to parse"},
		{"negative retain", write("neg.json", `{"track_retain_ms": -5}`), "track_retain_ms"},
		{"zero min duration", write("zero.json", `{"track_min_duration_ms": 0}`), "positive"},
		{"too large", write("big.json", `{"debounce_ms": 1}`+strings.Repeat(" ", 70*1024)), "too large"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadTuningConfig(tt.path)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error %q does not contain %q", err, tt.wantSub)
			}
		})
	}
}
