package catalog

import "github.com/krspack/scrap-booking-for-Brno/internal/models"

// MapView projects the table onto the compact map records, tagged with
// their row index.
func (t *Table) MapView() []models.MapRecord {
	records := make([]models.MapRecord, 0, len(t.Properties))
	for i, p := range t.Properties {
		records = append(records, models.MapRecord{
			PropertyIndex: i,
			Name:          p.Name,
			FullAddress:   p.FullAddress,
			Latitude:      p.Latitude,
			Longitude:     p.Longitude,
			Capacity:      p.Capacity(),
		})
	}
	return records
}

// LowestPrice returns the cheapest available price of a row across the
// requested dates.
func (t *Table) LowestPrice(p *models.Property) (int, bool) {
	lowest, found := 0, false
	for _, d := range t.Dates {
		r, ok := p.Results[d]
		if !ok {
			continue
		}
		if price, available := r.Price(); available && (!found || price < lowest) {
			lowest, found = price, true
		}
	}
	return lowest, found
}
