package geometry

import (
	"encoding/json"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krspack/scrap-booking-for-Brno/internal/catalog"
	"github.com/krspack/scrap-booking-for-Brno/internal/models"
)

func TestConvexHull(t *testing.T) {
	points := []orb.Point{{0, 0}, {2, 0}, {1, 1}, {2, 2}, {0, 2}}

	hull := ConvexHull(points)
	require.Len(t, hull, 5)
	assert.True(t, hull.Closed())
	assert.ElementsMatch(t, []orb.Point{{0, 0}, {2, 0}, {2, 2}, {0, 2}}, []orb.Point(hull[:4]))
	assert.NotContains(t, []orb.Point(hull), orb.Point{1, 1})
	assert.Equal(t, orb.CCW, hull.Orientation())

	// input is left untouched
	assert.Equal(t, orb.Point{2, 0}, points[1])
}

func TestConvexHullDegenerate(t *testing.T) {
	assert.Nil(t, ConvexHull(nil))
	assert.Nil(t, ConvexHull([]orb.Point{{0, 0}, {1, 1}}))
	assert.Nil(t, ConvexHull([]orb.Point{{0, 0}, {1, 1}, {2, 2}}))
	assert.Nil(t, ConvexHull([]orb.Point{{1, 1}, {1, 1}, {1, 1}}))
}

func TestBounds(t *testing.T) {
	b := Bounds([]orb.Point{{16.5, 49.1}, {16.7, 49.3}}, orb.Point{})
	assert.Equal(t, orb.Point{16.5, 49.1}, b.Min)
	assert.Equal(t, orb.Point{16.7, 49.3}, b.Max)

	center := orb.Point{16.6068, 49.1951}
	empty := Bounds(nil, center)
	assert.True(t, empty.Contains(center))
	assert.InDelta(t, 2*pointPadding, empty.Right()-empty.Left(), 1e-9)

	single := Bounds([]orb.Point{center}, orb.Point{})
	assert.Greater(t, single.Top(), single.Bottom())
}

func TestPropertyFeatures(t *testing.T) {
	props := []*models.Property{
		{Name: "A", URL: "https://example.com/a", Latitude: 49.1, Longitude: 16.5},
		{Name: "B", URL: "https://example.com/b", Latitude: 49.2, Longitude: 16.7},
		{Name: "C", URL: "https://example.com/c", Latitude: 49.3, Longitude: 16.6},
	}
	for _, p := range props {
		p.SetRooms([]models.Room{{ID: "1", Persons: 2}})
	}
	table := catalog.NewTable(props, models.Request{ArrivalDate: "2024-12-02", Nights: 2, Adults: 1, Rooms: 1})
	_, _, err := table.Apply(models.ScrapeOutcome{
		PropertyIndex: 1,
		Days: []models.DateResult{
			models.Available("2024-12-02", 1500, 2),
			models.Available("2024-12-03", 1200, 1),
		},
	})
	require.NoError(t, err)

	fc := PropertyFeatures(table)
	require.Len(t, fc.Features, 4)

	b := fc.Features[1]
	assert.Equal(t, orb.Point{16.7, 49.2}, b.Geometry)
	assert.Equal(t, "B", b.Properties.MustString("name"))
	assert.Equal(t, 1200, b.Properties["lowest_price"])
	_, hasPrice := fc.Features[0].Properties["lowest_price"]
	assert.False(t, hasPrice)

	coverage := fc.Features[3]
	assert.Equal(t, "coverage", coverage.Properties.MustString("kind"))
	assert.IsType(t, orb.Polygon{}, coverage.Geometry)

	data, err := json.Marshal(fc)
	require.NoError(t, err)
	decoded, err := geojson.UnmarshalFeatureCollection(data)
	require.NoError(t, err)
	assert.Len(t, decoded.Features, 4)
	assert.Equal(t, orb.Bound{Min: orb.Point{16.5, 49.1}, Max: orb.Point{16.7, 49.3}}, decoded.BBox.Bound())
}

func TestRecordPoints(t *testing.T) {
	points := RecordPoints([]models.MapRecord{{Latitude: 49.1, Longitude: 16.5}})
	assert.Equal(t, []orb.Point{{16.5, 49.1}}, points)
}
