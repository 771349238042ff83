package app

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krspack/scrap-booking-for-Brno/config"
	"github.com/krspack/scrap-booking-for-Brno/internal/api"
	"github.com/krspack/scrap-booking-for-Brno/internal/database"
	"github.com/krspack/scrap-booking-for-Brno/internal/models"
	"github.com/krspack/scrap-booking-for-Brno/internal/obs"
	"github.com/krspack/scrap-booking-for-Brno/internal/processor"
)

const propertyPage = `<html><head><title>Hotel Avion</title></head><body><script>
var booking = { env: { b_csrf_token: 'tok-1' } };
window.utag_data = { hotelCountry: "cz", hotelName: "avion" };
</script></body></html>`

const calendarResponse = `{"data":{"availabilityCalendar":{"days":[
	{"checkin":"2024-12-02","available":true,"avgPriceFormatted":"1.5K","minLengthOfStay":2},
	{"checkin":"2024-12-03","available":false,"avgPriceFormatted":"","minLengthOfStay":0}
]}}}`

func upstream(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/hotel/cz/gone.html":
		w.WriteHeader(http.StatusNotFound)
	case r.Method == http.MethodGet:
		_, _ = w.Write([]byte(propertyPage))
	default:
		w.Header().Set("content-type", "application/json")
		_, _ = w.Write([]byte(calendarResponse))
	}
}

func writeCatalog(t *testing.T, dir, base string) string {
	t.Helper()
	record := func(order int, path, name string, persons int) string {
		return fmt.Sprintf(`{"order":%d,"url":"%s%s?aid=1","name":"%s","type":"Hotel",
			"location":{"lat":"49.19","lng":"16.60"},
			"address":{"street":"Ceska %d","full":"Ceska %d, Brno"},
			"rooms":[{"id":"1","url":"","roomType":"Double","persons":%d}]}`,
			order, base, path, name, order, order, persons)
	}
	content := "[" + record(1, "/hotel/cz/avion.html", "Avion", 2) + "," +
		record(2, "/hotel/cz/gone.html", "Gone", 2) + "," +
		record(3, "/hotel/cz/tiny.html", "Tiny", 0) + "]"

	path := filepath.Join(dir, "dataset.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func testConfig(t *testing.T, srv *httptest.Server) *config.Config {
	t.Helper()
	dir := t.TempDir()

	cfg := &config.Config{}
	cfg.Request.ArrivalDate = "2024-12-02"
	cfg.Request.Nights = 2
	cfg.Request.Adults = 1
	cfg.Request.Rooms = 1
	cfg.Scraping.MaxRetries = 2
	cfg.Scraping.MaxConcurrency = 2
	cfg.Scraping.RequestTimeout = 2 * time.Second
	cfg.Scraping.GraphQLURL = srv.URL + "/dml/graphql?lang=en-gb"
	cfg.Scraping.Origin = "https://www.booking.com"
	cfg.Catalog.Path = writeCatalog(t, dir, srv.URL)
	cfg.Output.Properties = filepath.Join(dir, "hotely_jmk.csv")
	cfg.Output.Rooms = filepath.Join(dir, "pokoje_jmk.csv")
	cfg.Output.Map = filepath.Join(dir, "pro_mapu_kapacit_jmk.csv")
	cfg.Database.MaxRetries = 1
	return cfg
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	return logger
}

func TestRunner_Run(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(upstream))
	defer srv.Close()

	cfg := testConfig(t, srv)
	logger := quietLogger()
	store, err := database.Open(filepath.Join(t.TempDir(), "results.db"), cfg, logger)
	require.NoError(t, err)
	defer store.Close()
	snapshots := &api.Snapshots{}

	runner := NewRunner(cfg, obs.NewMetrics(prometheus.NewRegistry()), store, snapshots, logger)
	report, err := runner.Run(context.Background())
	require.NoError(t, err)

	// the room with no persons makes "Tiny" an incomplete record
	assert.Equal(t, 2, report.Properties)
	assert.Equal(t, 1, report.Succeeded)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "http_error", report.Failures[0].Kind)
	assert.Equal(t, http.StatusNotFound, report.Failures[0].Status)

	f, err := os.Open(cfg.Output.Properties)
	require.NoError(t, err)
	defer f.Close()
	reader := csv.NewReader(f)
	reader.Comma = '\t'
	rows, err := reader.ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"1500", "2", "obsazené", "-"}, rows[1][11:])
	assert.Equal(t, []string{"", "", "", ""}, rows[2][11:])

	for _, path := range []string{cfg.Output.Rooms, cfg.Output.Map} {
		_, err := os.Stat(path)
		assert.NoError(t, err)
	}

	stored, err := store.LatestRun(context.Background())
	require.NoError(t, err)
	assert.Equal(t, report.RunID, stored.ID)

	snap, err := snapshots.Current()
	require.NoError(t, err)
	assert.Equal(t, report.RunID, snap.Report.RunID)
	assert.Len(t, snap.Features.Features, 2)
}

func TestRunner_RejectsInvalidRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(upstream))
	defer srv.Close()

	cfg := testConfig(t, srv)
	cfg.Request.Nights = 0

	runner := NewRunner(cfg, obs.NewMetrics(prometheus.NewRegistry()), nil, nil, quietLogger())
	_, err := runner.Run(context.Background())

	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "nights", verr.Field)
	_, statErr := os.Stat(cfg.Output.Properties)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunner_MissingCatalog(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(upstream))
	defer srv.Close()

	cfg := testConfig(t, srv)
	cfg.Catalog.Path = filepath.Join(t.TempDir(), "missing.json")

	runner := NewRunner(cfg, obs.NewMetrics(prometheus.NewRegistry()), nil, nil, quietLogger())
	_, err := runner.Run(context.Background())
	assert.Error(t, err)
}

func TestRenderSummary(t *testing.T) {
	start := time.Date(2024, 12, 1, 12, 0, 0, 0, time.UTC)
	report := &processor.ScrapeReport{
		RunID:      "run-1",
		Request:    models.Request{ArrivalDate: "2024-12-02", Nights: 2, Adults: 1, Rooms: 1},
		StartedAt:  start,
		FinishedAt: start.Add(90 * time.Second),
		Properties: 3,
		Launched:   2,
		Succeeded:  1,
		Failures: []processor.FailureEntry{
			{PropertyIndex: 2, Order: 3, Name: "Gone", Kind: "http_error", Status: 404, Attempts: 1, Message: "http_error 404"},
		},
	}

	var buf bytes.Buffer
	RenderSummary(&buf, report)
	out := buf.String()
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "1m30s")
	assert.Contains(t, out, "Gone")
	assert.Contains(t, out, "404")

	buf.Reset()
	report.Failures = nil
	RenderSummary(&buf, report)
	assert.NotContains(t, buf.String(), "MESSAGE")
}
