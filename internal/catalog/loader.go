package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/krspack/scrap-booking-for-Brno/internal/models"
)

// Geocoder resolves coordinates for records that come without a location.
type Geocoder interface {
	GeocodeAddress(ctx context.Context, address string) (float64, float64, error)
}

// IncompleteRecordError describes a catalog record that was skipped.
type IncompleteRecordError struct {
	Position int
	URL      string
	Field    string
	Err      error
}

func (e *IncompleteRecordError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("record %d (%s): %s: %v", e.Position, e.URL, e.Field, e.Err)
	}
	return fmt.Sprintf("record %d (%s): missing %s", e.Position, e.URL, e.Field)
}

func (e *IncompleteRecordError) Unwrap() error {
	return e.Err
}

// Loader reads the pre-fetched property dataset.
type Loader struct {
	logger   *logrus.Logger
	geocoder Geocoder
}

// NewLoader creates a loader. geocoder may be nil, in which case records
// without a location are skipped.
func NewLoader(logger *logrus.Logger, geocoder Geocoder) *Loader {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	return &Loader{logger: logger, geocoder: geocoder}
}

type rawAddress struct {
	Street *string `json:"street"`
	Full   *string `json:"full"`
}

type rawRoom struct {
	ID       flexString `json:"id"`
	URL      string     `json:"url"`
	RoomType string     `json:"roomType"`
	Persons  *int       `json:"persons"`
}

type rawRecord struct {
	Order    *int         `json:"order"`
	URL      *string      `json:"url"`
	Name     *string      `json:"name"`
	Type     string       `json:"type"`
	Location *coordinates `json:"location"`
	Address  *rawAddress  `json:"address"`
	Rooms    *[]rawRoom   `json:"rooms"`
}

// LoadFile opens path and loads it.
func (l *Loader) LoadFile(ctx context.Context, path string) ([]*models.Property, []*IncompleteRecordError, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer f.Close()
	return l.Load(ctx, f)
}

// Load decodes a JSON array of property records. Records missing required
// fields are skipped and reported; only an unreadable document is an error.
func (l *Loader) Load(ctx context.Context, r io.Reader) ([]*models.Property, []*IncompleteRecordError, error) {
	var records []json.RawMessage
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	var (
		properties []*models.Property
		skipped    []*IncompleteRecordError
	)
	for i, data := range records {
		p, err := l.convert(ctx, i, data)
		if err != nil {
			var incomplete *IncompleteRecordError
			if !errors.As(err, &incomplete) {
				incomplete = &IncompleteRecordError{Position: i, Field: "record", Err: err}
			}
			l.logger.WithFields(logrus.Fields{
				"position": incomplete.Position,
				"url":      incomplete.URL,
				"field":    incomplete.Field,
			}).Warn("Skipping incomplete catalog record")
			skipped = append(skipped, incomplete)
			continue
		}
		properties = append(properties, p)
	}

	l.logger.WithFields(logrus.Fields{
		"records":    len(records),
		"properties": len(properties),
		"skipped":    len(skipped),
	}).Info("Loaded catalog")

	return properties, skipped, nil
}

func (l *Loader) convert(ctx context.Context, position int, data []byte) (*models.Property, error) {
	var rec rawRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, &IncompleteRecordError{Position: position, Field: "record", Err: err}
	}

	incomplete := func(field string) error {
		url := ""
		if rec.URL != nil {
			url = *rec.URL
		}
		return &IncompleteRecordError{Position: position, URL: url, Field: field}
	}

	if rec.URL == nil || *rec.URL == "" {
		return nil, incomplete("url")
	}
	if rec.Name == nil {
		return nil, incomplete("name")
	}
	if rec.Address == nil || rec.Address.Street == nil || rec.Address.Full == nil {
		return nil, incomplete("address")
	}
	if rec.Rooms == nil {
		return nil, incomplete("rooms")
	}

	rooms := make([]models.Room, 0, len(*rec.Rooms))
	for _, room := range *rec.Rooms {
		if room.Persons == nil || *room.Persons <= 0 {
			return nil, incomplete("rooms.persons")
		}
		rooms = append(rooms, models.Room{
			ID:       string(room.ID),
			URL:      room.URL,
			RoomType: room.RoomType,
			Persons:  *room.Persons,
		})
	}

	p := &models.Property{
		URL:         stripQuery(*rec.URL),
		Name:        *rec.Name,
		Type:        rec.Type,
		Street:      *rec.Address.Street,
		FullAddress: *rec.Address.Full,
	}
	if rec.Order != nil {
		p.Order = *rec.Order
	}
	p.SetRooms(rooms)

	switch {
	case rec.Location != nil:
		p.Latitude, p.Longitude = rec.Location.lat, rec.Location.lng
	case l.geocoder != nil:
		lat, lng, err := l.geocoder.GeocodeAddress(ctx, p.FullAddress)
		if err != nil {
			return nil, &IncompleteRecordError{Position: position, URL: p.URL, Field: "location", Err: err}
		}
		p.Latitude, p.Longitude = lat, lng
	default:
		return nil, incomplete("location")
	}

	return p, nil
}

func stripQuery(url string) string {
	return strings.SplitN(url, "?", 2)[0]
}

// coordinates keeps the first two values of the location object in
// document order: latitude first, longitude second.
type coordinates struct {
	lat, lng float64
}

func (c *coordinates) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("location must be an object")
	}

	var values []float64
	for dec.More() {
		if _, err := dec.Token(); err != nil {
			return err
		}
		var v interface{}
		if err := dec.Decode(&v); err != nil {
			return err
		}
		f, err := toFloat(v)
		if err != nil {
			return err
		}
		values = append(values, f)
	}
	if len(values) < 2 {
		return fmt.Errorf("location needs two coordinates, got %d", len(values))
	}

	c.lat, c.lng = values[0], values[1]
	return nil
}

func toFloat(v interface{}) (float64, error) {
	switch val := v.(type) {
	case json.Number:
		return val.Float64()
	case string:
		return strconv.ParseFloat(strings.TrimSpace(val), 64)
	default:
		return 0, fmt.Errorf("coordinate has unexpected type %T", v)
	}
}

// flexString accepts both JSON strings and numbers.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = flexString(str)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*s = flexString(n.String())
	return nil
}
