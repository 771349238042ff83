package geometry

import (
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/krspack/scrap-booking-for-Brno/internal/catalog"
	"github.com/krspack/scrap-booking-for-Brno/internal/models"
)

// Padding around a lone point, in degrees.
const pointPadding = 0.01

// PropertyFeatures builds the map layer of a table: one point per property
// and, when at least three distinct locations exist, the polygon covering
// all of them.
func PropertyFeatures(t *catalog.Table) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	points := make([]orb.Point, 0, len(t.Properties))

	for _, record := range t.MapView() {
		p := t.Properties[record.PropertyIndex]
		point := orb.Point{record.Longitude, record.Latitude}
		points = append(points, point)

		feature := geojson.NewFeature(point)
		feature.ID = record.PropertyIndex
		feature.Properties = geojson.Properties{
			"hotel_index":  record.PropertyIndex,
			"name":         record.Name,
			"full_address": record.FullAddress,
			"capacity":     record.Capacity,
			"url":          p.URL,
		}
		if price, ok := t.LowestPrice(p); ok {
			feature.Properties["lowest_price"] = price
		}
		fc.Append(feature)
	}

	if hull := ConvexHull(points); hull != nil {
		coverage := geojson.NewFeature(orb.Polygon{hull})
		coverage.Properties = geojson.Properties{
			"kind":       "coverage",
			"properties": len(points),
		}
		fc.Append(coverage)
	}

	if len(points) > 0 {
		fc.BBox = geojson.NewBBox(Bounds(points, points[0]))
	}
	return fc
}

// Bounds returns the box around the points, padded when it is degenerate.
// fallback is used when there are no points at all.
func Bounds(points []orb.Point, fallback orb.Point) orb.Bound {
	if len(points) == 0 {
		return fallback.Bound().Pad(pointPadding)
	}
	b := orb.MultiPoint(points).Bound()
	if b.Left() == b.Right() || b.Bottom() == b.Top() {
		b = b.Pad(pointPadding)
	}
	return b
}

// RecordPoints converts map records to lon/lat points.
func RecordPoints(records []models.MapRecord) []orb.Point {
	points := make([]orb.Point, len(records))
	for i, r := range records {
		points[i] = orb.Point{r.Longitude, r.Latitude}
	}
	return points
}

// ConvexHull returns the closed counter-clockwise hull of the points, or nil
// when they do not span an area.
func ConvexHull(points []orb.Point) orb.Ring {
	if len(points) < 3 {
		return nil
	}

	sorted := make([]orb.Point, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i][0] != sorted[j][0] {
			return sorted[i][0] < sorted[j][0]
		}
		return sorted[i][1] < sorted[j][1]
	})

	// Andrew's monotone chain
	hull := make([]orb.Point, 0, 2*len(sorted))
	for _, p := range sorted {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(sorted) - 2; i >= 0; i-- {
		p := sorted[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}

	// hull now ends with its first point
	if len(hull) < 4 {
		return nil
	}
	return orb.Ring(hull)
}

func cross(o, a, b orb.Point) float64 {
	return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
}
