package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krspack/scrap-booking-for-Brno/config"
	"github.com/krspack/scrap-booking-for-Brno/internal/catalog"
	"github.com/krspack/scrap-booking-for-Brno/internal/models"
	"github.com/krspack/scrap-booking-for-Brno/internal/processor"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	cfg := &config.Config{}
	cfg.Database.MaxRetries = 2
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)

	store, err := Open(filepath.Join(t.TempDir(), "results.db"), cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func finishedRun(t *testing.T, runID string, finished time.Time, price int) (*catalog.Table, *processor.ScrapeReport) {
	t.Helper()
	req := models.Request{ArrivalDate: "2024-12-02", Nights: 2, Adults: 1, Rooms: 1}

	avion := &models.Property{Order: 1, URL: "https://www.booking.com/hotel/cz/avion.html", Name: "Avion"}
	avion.SetRooms([]models.Room{{ID: "1", Persons: 2}})
	broken := &models.Property{Order: 2, URL: "https://www.booking.com/hotel/cz/broken.html", Name: "Broken"}
	broken.SetRooms([]models.Room{{ID: "1", Persons: 2}})

	table := catalog.NewTable([]*models.Property{avion, broken}, req)
	_, _, err := table.Apply(models.ScrapeOutcome{
		PropertyIndex: 0,
		PageName:      "avion",
		Days: []models.DateResult{
			models.Available("2024-12-02", price, 2),
			models.Unavailable("2024-12-03"),
		},
	})
	require.NoError(t, err)

	report := &processor.ScrapeReport{
		RunID:      runID,
		Request:    req,
		StartedAt:  finished.Add(-time.Minute),
		FinishedAt: finished,
		Properties: 2,
		Launched:   2,
		Succeeded:  1,
		Failures: []processor.FailureEntry{{
			PropertyIndex: 1,
			URL:           broken.URL,
			Kind:          "exhausted",
			Attempts:      10,
			Message:       "exhausted: connection reset",
		}},
	}
	return table, report
}

func TestStore_SaveRun(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	finished := time.Date(2024, 12, 1, 12, 0, 0, 0, time.UTC)

	table, report := finishedRun(t, "run-1", finished, 1500)
	require.NoError(t, store.SaveRun(ctx, table, report))

	run, err := store.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, "run-1", run.ID)
	assert.Equal(t, "2024-12-02", run.ArrivalDate)
	assert.Equal(t, 1, run.Succeeded)
	assert.Equal(t, 1, run.Failed)
	require.Len(t, run.Failures, 1)
	assert.Equal(t, "exhausted", run.Failures[0].Kind)
	assert.Equal(t, 10, run.Failures[0].Attempts)

	results, err := store.DateResults(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.True(t, results[0].Available)
	require.NotNil(t, results[0].Price)
	assert.Equal(t, 1500, *results[0].Price)
	assert.Equal(t, 2, *results[0].MinStay)

	assert.False(t, results[1].Available)
	assert.Nil(t, results[1].Price)
	assert.Nil(t, results[1].MinStay)
}

func TestStore_LatestRunAndHistory(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	first := time.Date(2024, 12, 1, 12, 0, 0, 0, time.UTC)

	_, err := store.LatestRun(ctx)
	assert.ErrorIs(t, err, ErrNoRuns)

	table, report := finishedRun(t, "run-1", first, 1500)
	require.NoError(t, store.SaveRun(ctx, table, report))
	table, report = finishedRun(t, "run-2", first.Add(24*time.Hour), 1300)
	require.NoError(t, store.SaveRun(ctx, table, report))

	run, err := store.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, "run-2", run.ID)

	history, err := store.PriceHistory(ctx, "https://www.booking.com/hotel/cz/avion.html", "2024-12-02")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 1500, *history[0].Price)
	assert.Equal(t, 1300, *history[1].Price)
}

func TestStore_SaveRunIsAtomic(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	finished := time.Date(2024, 12, 1, 12, 0, 0, 0, time.UTC)

	table, report := finishedRun(t, "run-1", finished, 1500)
	require.NoError(t, store.SaveRun(ctx, table, report))

	// same run id violates the primary key, nothing of the second write may remain
	err := store.SaveRun(ctx, table, report)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempts")

	results, err := store.DateResults(ctx, "run-1")
	require.NoError(t, err)
	assert.Len(t, results, 2)
}
