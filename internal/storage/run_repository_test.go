package storage

import (
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opslynx/patchlynx/pkg/models"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func testRun(id string, start time.Time) *models.RunResult {
	return &models.RunResult{
		RunID:     id,
		Server:    "vcenter.lab",
		StartTime: start,
		Targets:   []models.Target{{Name: "esx-01.lab", State: models.StateConnected}},
		Compliance: []models.ComplianceRecord{{
			Target:   "esx-01.lab",
			Baseline: "Critical Host Patches",
			Status:   models.StatusCompliant,
		}},
	}
}

func TestStoreAndLoadRoundTrip(t *testing.T) {
	repo, err := NewRunRepository(t.TempDir(), false, 0, testLogger())
	require.NoError(t, err)

	run := testRun("run-1", time.Now().UTC())
	require.NoError(t, repo.Store(run))

	got, err := repo.Load("run-1")
	require.NoError(t, err)
	assert.Equal(t, "vcenter.lab", got.Server)
	require.Len(t, got.Compliance, 1)
	assert.Equal(t, models.StatusCompliant, got.Compliance[0].Status)
}

func TestStoreCompressedRoundTrip(t *testing.T) {
	repo, err := NewRunRepository(t.TempDir(), true, 0, testLogger())
	require.NoError(t, err)

	require.NoError(t, repo.Store(testRun("run-1", time.Now().UTC())))

	got, err := repo.Load("run-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", got.RunID)
}

func TestLoadUnknownRun(t *testing.T) {
	repo, err := NewRunRepository(t.TempDir(), false, 0, testLogger())
	require.NoError(t, err)

	_, err = repo.Load("no-such-run")
	require.ErrorIs(t, err, ErrRunNotFound)
}

func TestListNewestFirst(t *testing.T) {
	repo, err := NewRunRepository(t.TempDir(), false, 0, testLogger())
	require.NoError(t, err)

	older := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Store(testRun("run-old", older)))
	require.NoError(t, repo.Store(testRun("run-new", newer)))

	list, err := repo.List()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "run-new", list[0].RunID)
	assert.Equal(t, "run-old", list[1].RunID)
	assert.Equal(t, 1, list[0].Records)
}

func TestDeleteRun(t *testing.T) {
	repo, err := NewRunRepository(t.TempDir(), false, 0, testLogger())
	require.NoError(t, err)

	require.NoError(t, repo.Store(testRun("run-1", time.Now().UTC())))
	require.NoError(t, repo.Delete("run-1"))

	_, err = repo.Load("run-1")
	require.ErrorIs(t, err, ErrRunNotFound)
	require.ErrorIs(t, repo.Delete("run-1"), ErrRunNotFound)
}

func TestCleanupRespectsRetention(t *testing.T) {
	repo, err := NewRunRepository(t.TempDir(), false, 24*time.Hour, testLogger())
	require.NoError(t, err)

	require.NoError(t, repo.Store(testRun("run-old", time.Now().Add(-48*time.Hour))))
	require.NoError(t, repo.Store(testRun("run-new", time.Now())))

	removed, err := repo.Cleanup()
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	list, err := repo.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "run-new", list[0].RunID)
}

func TestStatsCountsRuns(t *testing.T) {
	repo, err := NewRunRepository(t.TempDir(), false, 0, testLogger())
	require.NoError(t, err)
	require.NoError(t, repo.Store(testRun("run-1", time.Now().UTC())))

	stats, err := repo.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats["total_runs"])
}
