package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/banshee-data/sighting.report/internal/geometry"
)

// Paging bounds for ListSightings.
const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

var (
	// ErrInvalidSighting wraps validation failures from RecordSighting.
	ErrInvalidSighting = errors.New("invalid sighting")
	// ErrDuplicateSighting is returned when a site records the same track twice.
	ErrDuplicateSighting = errors.New("sighting already recorded for track")
)

// Sighting is one persisted tracker event.
type Sighting struct {
	ID           string       `json:"sighting_id"`
	Site         string       `json:"site" validate:"required,max=128"`
	TrackID      string       `json:"track_id" validate:"required,max=128"`
	ObservedAt   time.Time    `json:"observed_at"`
	Box          geometry.Box `json:"bbox_xyxy"`
	AvgConf      float64      `json:"avg_conf" validate:"gte=0,lte=1"`
	DurationMs   int64        `json:"duration_ms" validate:"gte=0"`
	VerifyScore  *float64     `json:"verify_score,omitempty" validate:"omitempty,gte=0,lte=1"`
	SnapshotPath string       `json:"snapshot_path,omitempty"`
	VideoRef     *string      `json:"video_ref,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}

// SightingFilter selects sightings for ListSightings. Zero values mean
// "no constraint"; Limit falls back to DefaultListLimit and is capped at
// MaxListLimit.
type SightingFilter struct {
	Site   string
	From   time.Time // inclusive
	To     time.Time // inclusive
	Limit  int
	Offset int
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		s := sl.Current().Interface().(Sighting)
		if !s.Box.Valid() {
			sl.ReportError(s.Box, "Box", "bbox_xyxy", "positive_area", "")
		}
	}, Sighting{})
	return v
}

// Validate reports whether s can be stored. The returned error wraps
// ErrInvalidSighting.
func (s *Sighting) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSighting, err)
	}
	return nil
}

// RecordSighting validates and inserts s. A missing ID is filled with a
// random UUID, a zero ObservedAt with the insert time.
func (db *DB) RecordSighting(ctx context.Context, s Sighting) error {
	_, err := db.InsertSighting(ctx, s)
	return err
}

// isUniqueViolation reports a UNIQUE index conflict. The only UNIQUE
// index on sightings is (site, track_id); primary key collisions carry a
// different extended code.
func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	return errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}

// InsertSighting is RecordSighting returning the stored row.
func (db *DB) InsertSighting(ctx context.Context, s Sighting) (Sighting, error) {
	now := time.Now().UTC()
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.ObservedAt.IsZero() {
		s.ObservedAt = now
	}
	s.CreatedAt = now

	if err := s.Validate(); err != nil {
		return Sighting{}, err
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO sightings (
			sighting_id, site, track_id, observed_unix_nanos,
			bbox_x1, bbox_y1, bbox_x2, bbox_y2,
			avg_conf, duration_ms, verify_score, snapshot_path, video_ref,
			created_unix_nanos
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.Site, s.TrackID, s.ObservedAt.UnixNano(),
		s.Box[0], s.Box[1], s.Box[2], s.Box[3],
		s.AvgConf, s.DurationMs, s.VerifyScore, s.SnapshotPath, s.VideoRef,
		s.CreatedAt.UnixNano(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return Sighting{}, fmt.Errorf("%w: site %q track %q", ErrDuplicateSighting, s.Site, s.TrackID)
		}
		return Sighting{}, fmt.Errorf("failed to insert sighting: %w", err)
	}
	s.ObservedAt = s.ObservedAt.UTC()
	return s, nil
}

// GetSighting returns the sighting with the given ID, or sql.ErrNoRows.
func (db *DB) GetSighting(ctx context.Context, id string) (Sighting, error) {
	row := db.QueryRowContext(ctx, selectSightings+` WHERE sighting_id = ?`, id)
	s, err := scanSighting(row)
	if err != nil {
		return Sighting{}, err
	}
	return s, nil
}

// ListSightings returns one page of sightings matching f, newest first,
// and the total number of matches.
func (db *DB) ListSightings(ctx context.Context, f SightingFilter) ([]Sighting, int, error) {
	where, args := f.where()

	var total int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sightings`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count sightings: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	rows, err := db.QueryContext(ctx,
		selectSightings+where+` ORDER BY observed_unix_nanos DESC, sighting_id LIMIT ? OFFSET ?`,
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query sightings: %w", err)
	}
	defer rows.Close()

	items := []Sighting{}
	for rows.Next() {
		s, err := scanSighting(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan sighting: %w", err)
		}
		items = append(items, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (f SightingFilter) where() (string, []interface{}) {
	var (
		clauses []string
		args    []interface{}
	)
	if f.Site != "" {
		clauses = append(clauses, "site = ?")
		args = append(args, f.Site)
	}
	if !f.From.IsZero() {
		clauses = append(clauses, "observed_unix_nanos >= ?")
		args = append(args, f.From.UnixNano())
	}
	if !f.To.IsZero() {
		clauses = append(clauses, "observed_unix_nanos <= ?")
		args = append(args, f.To.UnixNano())
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

const selectSightings = `
	SELECT sighting_id, site, track_id, observed_unix_nanos,
		bbox_x1, bbox_y1, bbox_x2, bbox_y2,
		avg_conf, duration_ms, verify_score, snapshot_path, video_ref,
		created_unix_nanos
	FROM sightings`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSighting(r rowScanner) (Sighting, error) {
	var (
		s                     Sighting
		observedNs, createdNs int64
		verify                sql.NullFloat64
		videoRef              sql.NullString
	)
	if err := r.Scan(
		&s.ID, &s.Site, &s.TrackID, &observedNs,
		&s.Box[0], &s.Box[1], &s.Box[2], &s.Box[3],
		&s.AvgConf, &s.DurationMs, &verify, &s.SnapshotPath, &videoRef,
		&createdNs,
	); err != nil {
		return Sighting{}, err
	}
	s.ObservedAt = time.Unix(0, observedNs).UTC()
	s.CreatedAt = time.Unix(0, createdNs).UTC()
	if verify.Valid {
		v := verify.Float64
		s.VerifyScore = &v
	}
	if videoRef.Valid {
		v := videoRef.String
		s.VideoRef = &v
	}
	return s, nil
}
