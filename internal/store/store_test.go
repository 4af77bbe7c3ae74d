package store

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neurodata-tools/framesync/internal/camera"
	"github.com/neurodata-tools/framesync/internal/timesync"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "results.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSaveAndReadBackRun(t *testing.T) {
	db := openTestDB(t)

	run := NewRun("/data/subject42/2026-08-01/001", "ephys")
	results := []camera.Result{
		{
			Label: "left_camera",
			Times: []float64{5.0, 5.05, 5.1, 5.15},
			Diag: camera.Diagnostics{
				DriftPPM:         12.5,
				UnseenTTLRises:   1,
				ExtrapolatedTail: 1,
			},
		},
		{
			Label: "body_camera",
			Times: []float64{5.0, 5.1},
			Diag:  camera.Diagnostics{RawFallback: true},
		},
	}
	intervals := map[string][]timesync.Interval{
		"gabor": {{Start: 10, Stop: 10.3}, {Start: 11, Stop: 11.3}},
		"valve": {{Start: 20, Stop: 20.05}},
	}
	require.NoError(t, db.SaveRun(run, results, intervals))

	times, err := db.FrameTimes(run.ID, "left_camera")
	require.NoError(t, err)
	assert.Equal(t, []float64{5.0, 5.05, 5.1, 5.15}, times)

	gabor, err := db.Intervals(run.ID, "gabor")
	require.NoError(t, err)
	if diff := cmp.Diff(intervals["gabor"], gabor); diff != "" {
		t.Errorf("gabor intervals mismatch (-want +got):\n%s", diff)
	}

	diag, err := db.Diagnostics(run.ID, "left_camera")
	require.NoError(t, err)
	assert.Equal(t, 12.5, diag.DriftPPM)
	assert.Equal(t, 1, diag.UnseenTTLRises)
	assert.Equal(t, 1, diag.ExtrapolatedTail)
	assert.False(t, diag.RawFallback)

	diag, err = db.Diagnostics(run.ID, "body_camera")
	require.NoError(t, err)
	assert.True(t, diag.RawFallback)
}

func TestNaNTimesRoundTripAsNull(t *testing.T) {
	db := openTestDB(t)

	run := NewRun("/data/subject42/2026-08-01/002", "training")
	results := []camera.Result{{
		Label: "left_camera",
		Times: []float64{1.0, 1.1, math.NaN(), math.NaN()},
		Diag:  camera.Diagnostics{ExtrapolatedTail: 2},
	}}
	require.NoError(t, db.SaveRun(run, results, nil))

	times, err := db.FrameTimes(run.ID, "left_camera")
	require.NoError(t, err)
	require.Len(t, times, 4)
	assert.Equal(t, 1.0, times[0])
	assert.True(t, math.IsNaN(times[2]))
	assert.True(t, math.IsNaN(times[3]))
}

func TestRunsAreWriteOnce(t *testing.T) {
	db := openTestDB(t)

	run := NewRun("/data/subject42/2026-08-01/003", "biased")
	require.NoError(t, db.SaveRun(run, nil, nil))
	// Same uuid a second time must fail rather than overwrite.
	assert.Error(t, db.SaveRun(run, nil, nil))
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.db")
	db, err := Open(path)
	require.NoError(t, err)

	run := NewRun("/data/subject42/2026-08-01/004", "ephys")
	require.NoError(t, db.SaveRun(run, nil, nil))
	require.NoError(t, db.Close())

	// Reopening an already-migrated database is a no-op migration.
	db2, err := Open(path)
	require.NoError(t, err)
	defer db2.Close()

	times, err := db2.FrameTimes(run.ID, "left_camera")
	require.NoError(t, err)
	assert.Empty(t, times)
}
