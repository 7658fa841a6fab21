// Package store persists zone transition events and run metadata to
// SQLite. It is a sink adapter outside the analytics core: the pipeline
// writes through the TransitionSink interface and never reads its own
// history back; the serving layer queries events directly.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/occupancy.report/internal/vision"
)

// Store wraps the SQLite handle.
type Store struct {
	*sql.DB
}

// Open opens (creating if needed) the database at path and applies all
// pending migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}

	s := &Store{db}
	if err := s.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// RecordRun inserts the run row minted at orchestrator start.
func (s *Store) RecordRun(runID string, startedAt time.Time) error {
	_, err := s.Exec(
		"INSERT INTO runs (run_id, started_at) VALUES (?, ?)",
		runID, startedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record run %s: %w", runID, err)
	}
	return nil
}

// RecordTransition implements vision.TransitionSink. Dwell is stored in
// seconds and only meaningful for exits.
func (s *Store) RecordTransition(runID, cameraID string, tr vision.ZoneTransition) error {
	_, err := s.Exec(
		`INSERT INTO zone_events (run_id, camera_id, track_id, zone, kind, dwell_seconds, ts)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, cameraID, tr.TrackID, tr.Zone, string(tr.Kind), tr.Dwell.Seconds(),
		tr.At.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record %s for track %d in zone %s: %w", tr.Kind, tr.TrackID, tr.Zone, err)
	}
	return nil
}

// ZoneEvent is one stored transition as served by the query surface.
type ZoneEvent struct {
	RunID        string    `json:"run_id"`
	CameraID     string    `json:"camera_id"`
	TrackID      uint64    `json:"track_id"`
	Zone         string    `json:"zone"`
	Kind         string    `json:"kind"`
	DwellSeconds float64   `json:"dwell_seconds"`
	Timestamp    time.Time `json:"timestamp"`
}

// RecentEvents returns the newest transition events for a camera, most
// recent first, capped at limit.
func (s *Store) RecentEvents(cameraID string, limit int) ([]ZoneEvent, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	rows, err := s.Query(
		`SELECT run_id, camera_id, track_id, zone, kind, dwell_seconds, ts
		 FROM zone_events WHERE camera_id = ? ORDER BY id DESC LIMIT ?`,
		cameraID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query events for camera %s: %w", cameraID, err)
	}
	defer rows.Close()

	var events []ZoneEvent
	for rows.Next() {
		var ev ZoneEvent
		var ts string
		if err := rows.Scan(&ev.RunID, &ev.CameraID, &ev.TrackID, &ev.Zone, &ev.Kind, &ev.DwellSeconds, &ts); err != nil {
			return nil, fmt.Errorf("scan zone event: %w", err)
		}
		if ev.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("parse event timestamp %q: %w", ts, err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
