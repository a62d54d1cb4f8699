package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agenda_scrooper/models"
)

func newTestRunStore(t *testing.T) *RunStore {
	t.Helper()
	store, err := NewRunStore(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRunLifecycle(t *testing.T) {
	store := newTestRunStore(t)

	run := &models.ScrapeRun{SiteID: "tea", StartedAt: time.Now(), Status: models.RunStatusRunning}
	id, err := store.CreateRun(run)
	require.NoError(t, err)
	run.ID = id

	run.EventsFound = 5
	run.Record(models.SaveStatusSaved)
	run.Record(models.SaveStatusSaved)
	run.Record(models.SaveStatusDuplicated)
	run.Record(models.SaveStatusInvalid)
	run.Record(models.SaveStatusError)
	finished := time.Now()
	run.FinishedAt = &finished
	run.Status = models.RunStatusCompleted
	require.NoError(t, store.UpdateRun(run))

	runs, err := store.RecentRuns("tea", 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	got := runs[0]
	assert.Equal(t, id, got.ID)
	assert.Equal(t, models.RunStatusCompleted, got.Status)
	assert.Equal(t, 5, got.EventsFound)
	assert.Equal(t, 2, got.EventsSaved)
	assert.Equal(t, 1, got.EventsDuplicated)
	assert.Equal(t, 1, got.EventsSkipped)
	assert.Equal(t, 1, got.ErrorsCount)
	require.NotNil(t, got.FinishedAt)
}

func TestRecentRunsFiltersBySite(t *testing.T) {
	store := newTestRunStore(t)
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, site := range []string{"tea", "calendario", "tea"} {
		_, err := store.CreateRun(&models.ScrapeRun{
			SiteID:    site,
			StartedAt: base.Add(time.Duration(i) * time.Hour),
			Status:    models.RunStatusRunning,
		})
		require.NoError(t, err)
	}

	all, err := store.RecentRuns("", 10)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, "tea", all[0].SiteID)
	assert.Nil(t, all[0].FinishedAt)

	cal, err := store.RecentRuns("calendario", 10)
	require.NoError(t, err)
	assert.Len(t, cal, 1)

	limited, err := store.RecentRuns("", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestRunLogs(t *testing.T) {
	store := newTestRunStore(t)
	id, err := store.CreateRun(&models.ScrapeRun{SiteID: "tea", StartedAt: time.Now(), Status: models.RunStatusRunning})
	require.NoError(t, err)

	require.NoError(t, store.Log(&id, models.LogLevelInfo, "scraped 3 events", "tea"))
	require.NoError(t, store.Log(&id, models.LogLevelWarn, "duplicated: https://teatenerife.es/a", "tea"))
	require.NoError(t, store.Log(nil, models.LogLevelError, "unrelated", "tea"))

	logs, err := store.RunLogs(id)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, models.LogLevelInfo, logs[0].Level)
	assert.Equal(t, "duplicated: https://teatenerife.es/a", logs[1].Message)
}
