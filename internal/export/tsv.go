package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/krspack/scrap-booking-for-Brno/internal/catalog"
	"github.com/krspack/scrap-booking-for-Brno/internal/models"
)

// Cell values for a date the property answered as not bookable.
const (
	UnavailablePrice   = "obsazené"
	UnavailableMinStay = "-"
)

var (
	propertyHeader = []string{"", "poradi", "url", "jmeno", "typ", "lat", "lng", "adresa_ulice", "adresa_cela", "pokoje", "kapacita"}
	roomHeader     = []string{"", "hotel_poradi", "hotel_jmeno", "id_pokoje", "url", "typ", "kapacita"}
	mapHeader      = []string{"", "hotel_index", "jmeno", "adresa_cela", "lat", "lng", "kapacita"}
)

func newWriter(w io.Writer) *csv.Writer {
	writer := csv.NewWriter(w)
	writer.Comma = '\t'
	return writer
}

// WriteProperties writes one row per property with two cells per requested
// date. Dates that were never answered stay empty.
func WriteProperties(w io.Writer, t *catalog.Table) error {
	writer := newWriter(w)

	header := append([]string(nil), propertyHeader...)
	for _, d := range t.Dates {
		header = append(header, d+"_min_cena", d+"_min_noci")
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write properties header: %w", err)
	}

	for i, p := range t.Properties {
		rooms, err := json.Marshal(p.RoomSummaries())
		if err != nil {
			return fmt.Errorf("failed to marshal rooms of %s: %w", p.URL, err)
		}

		row := []string{
			strconv.Itoa(i),
			strconv.Itoa(p.Order),
			p.URL,
			p.Name,
			p.Type,
			formatCoordinate(p.Latitude),
			formatCoordinate(p.Longitude),
			p.Street,
			p.FullAddress,
			string(rooms),
			strconv.Itoa(p.Capacity()),
		}
		for _, d := range t.Dates {
			price, stay := DateCells(t, p, d)
			row = append(row, price, stay)
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write property row %d: %w", i, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// DateCells renders the price and minimum-stay cells of one date.
func DateCells(t *catalog.Table, p *models.Property, date string) (price, minStay string) {
	r, ok := t.Result(p, date)
	if !ok {
		return "", ""
	}
	if !r.IsAvailable() {
		return UnavailablePrice, UnavailableMinStay
	}
	amount, _ := r.Price()
	stay, _ := r.MinStay()
	return strconv.Itoa(amount), strconv.Itoa(stay)
}

// WriteRooms writes the full room view, one row per room.
func WriteRooms(w io.Writer, t *catalog.Table) error {
	writer := newWriter(w)
	if err := writer.Write(roomHeader); err != nil {
		return fmt.Errorf("failed to write rooms header: %w", err)
	}

	row := 0
	for _, p := range t.Properties {
		for _, r := range p.Rooms() {
			record := []string{
				strconv.Itoa(row),
				strconv.Itoa(p.Order),
				p.Name,
				r.ID,
				r.URL,
				r.RoomType,
				strconv.Itoa(r.Persons),
			}
			if err := writer.Write(record); err != nil {
				return fmt.Errorf("failed to write room row %d: %w", row, err)
			}
			row++
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteMap writes the compact map view.
func WriteMap(w io.Writer, records []models.MapRecord) error {
	writer := newWriter(w)
	if err := writer.Write(mapHeader); err != nil {
		return fmt.Errorf("failed to write map header: %w", err)
	}

	for i, r := range records {
		record := []string{
			strconv.Itoa(i),
			strconv.Itoa(r.PropertyIndex),
			r.Name,
			r.FullAddress,
			formatCoordinate(r.Latitude),
			formatCoordinate(r.Longitude),
			strconv.Itoa(r.Capacity),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write map row %d: %w", i, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

func formatCoordinate(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
