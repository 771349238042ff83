package scraping

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/krspack/scrap-booking-for-Brno/internal/models"
)

var ErrUnexpectedShape = errors.New("unexpected availability response shape")

type availabilityResponse struct {
	Data *struct {
		AvailabilityCalendar *struct {
			Days    *[]availabilityDay `json:"days"`
			Message string             `json:"message"`
		} `json:"availabilityCalendar"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

type availabilityDay struct {
	Checkin           string `json:"checkin"`
	Available         *bool  `json:"available"`
	AvgPriceFormatted string `json:"avgPriceFormatted"`
	MinLengthOfStay   *int   `json:"minLengthOfStay"`
}

// ParseAvailability turns the availability calendar response into one
// DateResult per returned day.
func ParseAvailability(body []byte) ([]models.DateResult, error) {
	var resp availabilityResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedShape, err)
	}
	if resp.Data == nil || resp.Data.AvailabilityCalendar == nil {
		if len(resp.Errors) > 0 {
			return nil, fmt.Errorf("%w: %s", ErrUnexpectedShape, resp.Errors[0].Message)
		}
		return nil, fmt.Errorf("%w: missing data.availabilityCalendar", ErrUnexpectedShape)
	}
	calendar := resp.Data.AvailabilityCalendar
	if calendar.Days == nil {
		if calendar.Message != "" {
			return nil, fmt.Errorf("%w: %s", ErrUnexpectedShape, calendar.Message)
		}
		return nil, fmt.Errorf("%w: missing days", ErrUnexpectedShape)
	}

	results := make([]models.DateResult, 0, len(*calendar.Days))
	for i, day := range *calendar.Days {
		if day.Checkin == "" || day.Available == nil {
			return nil, fmt.Errorf("%w: day %d lacks checkin or available", ErrUnexpectedShape, i)
		}
		if !*day.Available {
			results = append(results, models.Unavailable(day.Checkin))
			continue
		}
		price, err := ParsePrice(day.AvgPriceFormatted)
		if err != nil {
			return nil, fmt.Errorf("%w: day %s: %v", ErrUnexpectedShape, day.Checkin, err)
		}
		if day.MinLengthOfStay == nil {
			return nil, fmt.Errorf("%w: day %s lacks minLengthOfStay", ErrUnexpectedShape, day.Checkin)
		}
		results = append(results, models.Available(day.Checkin, price, *day.MinLengthOfStay))
	}
	return results, nil
}

// ParsePrice converts the upstream price label into an integer: a "K"
// becomes two zeros and dots are thousands separators, so "1.2K" is 1200
// and "2.450" is 2450.
func ParsePrice(formatted string) (int, error) {
	s := strings.TrimSpace(formatted)
	s = strings.ReplaceAll(s, "K", "00")
	s = strings.ReplaceAll(s, ".", "")
	price, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid price %q", formatted)
	}
	if price < 0 {
		return 0, fmt.Errorf("negative price %q", formatted)
	}
	return price, nil
}
