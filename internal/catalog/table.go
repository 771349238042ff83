package catalog

import (
	"fmt"

	"github.com/krspack/scrap-booking-for-Brno/internal/models"
)

// Table is the in-memory result grid: one row per property, two columns
// (price, minimum stay) per requested date.
type Table struct {
	Request    models.Request
	Dates      []string
	Properties []*models.Property

	dateSet map[string]struct{}
}

// NewTable assigns row indexes and prepares empty result maps. req must be valid.
func NewTable(properties []*models.Property, req models.Request) *Table {
	t := &Table{
		Request:    req,
		Dates:      req.Dates(),
		Properties: properties,
		dateSet:    make(map[string]struct{}),
	}
	for _, d := range t.Dates {
		t.dateSet[d] = struct{}{}
	}
	for i, p := range properties {
		p.Index = i
		p.Results = make(map[string]models.DateResult)
	}
	return t
}

// Property returns the row at index.
func (t *Table) Property(index int) (*models.Property, error) {
	if index < 0 || index >= len(t.Properties) {
		return nil, fmt.Errorf("property index %d out of range", index)
	}
	return t.Properties[index], nil
}

// Apply merges a successful outcome into its row. Dates outside the requested
// range are ignored. It returns the number of dates written and ignored.
// Apply must not be called concurrently for the same row.
func (t *Table) Apply(o models.ScrapeOutcome) (written, ignored int, err error) {
	p, err := t.Property(o.PropertyIndex)
	if err != nil {
		return 0, 0, err
	}
	if !o.Succeeded() {
		return 0, 0, nil
	}

	p.PageName = o.PageName
	p.PageTitle = o.PageTitle
	for _, day := range o.Days {
		if _, ok := t.dateSet[day.Date]; !ok {
			ignored++
			continue
		}
		p.Results[day.Date] = day
		written++
	}
	return written, ignored, nil
}

// Result returns the merged result for a row and date; ok is false when the
// date was never answered.
func (t *Table) Result(p *models.Property, date string) (models.DateResult, bool) {
	r, ok := p.Results[date]
	return r, ok
}
