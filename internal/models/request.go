package models

import (
	"fmt"
	"regexp"
	"time"
)

// DateLayout is the calendar date format used for arrival dates and result columns.
const DateLayout = "2006-01-02"

var isoDate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Request holds the stay parameters shared read-only by every task of a run.
type Request struct {
	ArrivalDate string `json:"arrival_date"`
	Nights      int    `json:"nights"`
	Adults      int    `json:"adults"`
	Rooms       int    `json:"rooms"`
}

// ValidationError reports a malformed request parameter.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Validate checks the request once, before any task is created.
func (r Request) Validate() error {
	if !isoDate.MatchString(r.ArrivalDate) {
		return &ValidationError{Field: "arrival_date", Reason: "expected format YYYY-MM-DD"}
	}
	if _, err := time.Parse(DateLayout, r.ArrivalDate); err != nil {
		return &ValidationError{Field: "arrival_date", Reason: "not a calendar date"}
	}
	if r.Nights <= 0 {
		return &ValidationError{Field: "nights", Reason: "must be a positive integer"}
	}
	if r.Adults <= 0 {
		return &ValidationError{Field: "adults", Reason: "must be a positive integer"}
	}
	if r.Rooms <= 0 {
		return &ValidationError{Field: "rooms", Reason: "must be a positive integer"}
	}
	return nil
}

// Dates lists the requested calendar dates, one per night, starting at the arrival date.
// The request must be valid.
func (r Request) Dates() []string {
	start, err := time.Parse(DateLayout, r.ArrivalDate)
	if err != nil || r.Nights <= 0 {
		return nil
	}
	dates := make([]string, r.Nights)
	for i := range dates {
		dates[i] = start.AddDate(0, 0, i).Format(DateLayout)
	}
	return dates
}
