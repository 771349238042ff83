package models

import (
	"encoding/json"
	"fmt"
)

// DateResult is the availability of one property on one date. It is either
// available with a price and minimum stay, or unavailable with neither.
type DateResult struct {
	Date      string
	available bool
	price     int
	minStay   int
}

// Available builds a bookable result.
func Available(date string, price, minStay int) DateResult {
	return DateResult{Date: date, available: true, price: price, minStay: minStay}
}

// Unavailable builds a fully booked result.
func Unavailable(date string) DateResult {
	return DateResult{Date: date}
}

func (r DateResult) IsAvailable() bool { return r.available }

// Price returns the lowest price and true when the date is available.
func (r DateResult) Price() (int, bool) {
	return r.price, r.available
}

// MinStay returns the minimum length of stay and true when the date is available.
func (r DateResult) MinStay() (int, bool) {
	return r.minStay, r.available
}

func (r DateResult) MarshalJSON() ([]byte, error) {
	if !r.available {
		return json.Marshal(struct {
			Date      string `json:"date"`
			Available bool   `json:"available"`
		}{r.Date, false})
	}
	return json.Marshal(struct {
		Date      string `json:"date"`
		Available bool   `json:"available"`
		Price     int    `json:"price"`
		MinStay   int    `json:"min_stay"`
	}{r.Date, true, r.price, r.minStay})
}

// FailureKind classifies why a property produced no results.
type FailureKind int

const (
	FailureNotFound FailureKind = iota
	FailureTimeout
	FailureHTTPError
	FailureExhausted
	FailureBadResponse
)

// String returns the string representation of a FailureKind
func (k FailureKind) String() string {
	switch k {
	case FailureNotFound:
		return "not_found"
	case FailureTimeout:
		return "timeout"
	case FailureHTTPError:
		return "http_error"
	case FailureExhausted:
		return "exhausted"
	case FailureBadResponse:
		return "bad_response"
	default:
		return "unknown"
	}
}

// Failure is the terminal error of a property task.
type Failure struct {
	Kind   FailureKind
	Status int
	Err    error
}

func (f *Failure) Error() string {
	msg := f.Kind.String()
	if f.Kind == FailureHTTPError {
		msg = fmt.Sprintf("%s %d", msg, f.Status)
	}
	if f.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, f.Err)
	}
	return msg
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// ScrapeOutcome is what one property task hands back to the orchestrator.
// Failure is nil on success.
type ScrapeOutcome struct {
	PropertyIndex int
	URL           string
	PageName      string
	PageTitle     string
	Days          []DateResult
	Attempts      int
	Failure       *Failure
}

func (o ScrapeOutcome) Succeeded() bool {
	return o.Failure == nil
}
