// Package store persists extraction results to SQLite. Each extraction run
// gets a uuid and its rows are written once, inside a single transaction;
// re-running a session produces a new run rather than mutating an old one.
package store

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/neurodata-tools/framesync/internal/camera"
	"github.com/neurodata-tools/framesync/internal/timesync"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type DB struct {
	*sql.DB
}

// Open opens (or creates) the results database at path and applies any
// pending schema migrations.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	return &DB{db}, nil
}

func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load embedded migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	// Note: we don't close m because it would close the underlying DB
	// connection.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// Run identifies one extraction run.
type Run struct {
	ID          uuid.UUID
	SessionPath string
	SessionType string
	Created     time.Time
}

// NewRun stamps a fresh run for a session.
func NewRun(sessionPath, sessionType string) Run {
	return Run{
		ID:          uuid.New(),
		SessionPath: sessionPath,
		SessionType: sessionType,
		Created:     time.Now().UTC(),
	}
}

// SaveRun writes a run, its per-camera frame times and diagnostics, and any
// stimulus interval tables in one transaction. NaN frame times (the NaN-fill
// tail mode) are stored as NULL.
func (db *DB) SaveRun(run Run, results []camera.Result, intervals map[string][]timesync.Interval) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO runs (id, session_path, session_type, created) VALUES (?, ?, ?, ?)`,
		run.ID.String(), run.SessionPath, run.SessionType, run.Created,
	); err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	frameStmt, err := tx.Prepare(
		`INSERT INTO frame_times (run_id, label, frame_index, time, extrapolated) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer frameStmt.Close()

	for _, res := range results {
		firstSynthetic := len(res.Times) - res.Diag.ExtrapolatedTail
		for i, t := range res.Times {
			v := sql.NullFloat64{Float64: t, Valid: !math.IsNaN(t)}
			if _, err := frameStmt.Exec(run.ID.String(), res.Label, i, v, i >= firstSynthetic); err != nil {
				return fmt.Errorf("failed to insert frame time %s/%d: %w", res.Label, i, err)
			}
		}
		if err := insertDiagnostics(tx, run.ID, res); err != nil {
			return err
		}
	}

	ivStmt, err := tx.Prepare(
		`INSERT INTO stim_intervals (run_id, kind, seq, start_time, stop_time) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer ivStmt.Close()

	for kind, ivs := range intervals {
		for i, iv := range ivs {
			if _, err := ivStmt.Exec(run.ID.String(), kind, i, iv.Start, iv.Stop); err != nil {
				return fmt.Errorf("failed to insert %s interval %d: %w", kind, i, err)
			}
		}
	}

	return tx.Commit()
}

func insertDiagnostics(tx *sql.Tx, runID uuid.UUID, res camera.Result) error {
	d := res.Diag
	_, err := tx.Exec(
		`INSERT INTO diagnostics (
			run_id, label, drift_ppm,
			unseen_ttl_rises, unseen_ttl_falls,
			dropped_pin_rises, dropped_pin_falls, dropped_overrun_fronts,
			discarded_trials, out_of_sync_trials, gap_frames,
			extrapolated_tail, raw_fallback
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID.String(), res.Label, d.DriftPPM,
		d.UnseenTTLRises, d.UnseenTTLFalls,
		d.DroppedPinRises, d.DroppedPinFalls, d.DroppedOverrunFronts,
		d.DiscardedTrials, d.OutOfSyncTrials, d.GapFrames,
		d.ExtrapolatedTail, d.RawFallback,
	)
	if err != nil {
		return fmt.Errorf("failed to insert diagnostics for %s: %w", res.Label, err)
	}
	return nil
}

// FrameTimes reads one camera's frame times of a run back in frame order.
// NULL entries (NaN-filled tails) come back as NaN.
func (db *DB) FrameTimes(runID uuid.UUID, label string) ([]float64, error) {
	rows, err := db.Query(
		`SELECT time FROM frame_times WHERE run_id = ? AND label = ? ORDER BY frame_index`,
		runID.String(), label)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []float64
	for rows.Next() {
		var v sql.NullFloat64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		if v.Valid {
			out = append(out, v.Float64)
		} else {
			out = append(out, math.NaN())
		}
	}
	return out, rows.Err()
}

// Intervals reads one kind's stimulus intervals of a run back in sequence
// order.
func (db *DB) Intervals(runID uuid.UUID, kind string) ([]timesync.Interval, error) {
	rows, err := db.Query(
		`SELECT start_time, stop_time FROM stim_intervals WHERE run_id = ? AND kind = ? ORDER BY seq`,
		runID.String(), kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []timesync.Interval
	for rows.Next() {
		var iv timesync.Interval
		if err := rows.Scan(&iv.Start, &iv.Stop); err != nil {
			return nil, err
		}
		out = append(out, iv)
	}
	return out, rows.Err()
}

// Diagnostics reads one camera's diagnostics of a run back.
func (db *DB) Diagnostics(runID uuid.UUID, label string) (camera.Diagnostics, error) {
	var d camera.Diagnostics
	err := db.QueryRow(
		`SELECT drift_ppm,
			unseen_ttl_rises, unseen_ttl_falls,
			dropped_pin_rises, dropped_pin_falls, dropped_overrun_fronts,
			discarded_trials, out_of_sync_trials, gap_frames,
			extrapolated_tail, raw_fallback
		FROM diagnostics WHERE run_id = ? AND label = ?`,
		runID.String(), label,
	).Scan(&d.DriftPPM,
		&d.UnseenTTLRises, &d.UnseenTTLFalls,
		&d.DroppedPinRises, &d.DroppedPinFalls, &d.DroppedOverrunFronts,
		&d.DiscardedTrials, &d.OutOfSyncTrials, &d.GapFrames,
		&d.ExtrapolatedTail, &d.RawFallback)
	return d, err
}
