package scraping

import (
	"encoding/json"

	"github.com/krspack/scrap-booking-for-Brno/internal/models"
)

const availabilityOperation = "AvailabilityCalendar"

const availabilityQuery = "query AvailabilityCalendar($input: AvailabilityCalendarQueryInput!) {\n  availabilityCalendar(input: $input) {\n    ... on AvailabilityCalendarQueryResult {\n      hotelId\n      days {\n        available\n        avgPriceFormatted\n        checkin\n        minLengthOfStay\n        __typename\n      }\n      __typename\n    }\n    ... on AvailabilityCalendarQueryError {\n      message\n      __typename\n    }\n    __typename\n  }\n}\n"

// leisure travel
const travelPurpose = 2

type graphqlRequest struct {
	OperationName string         `json:"operationName"`
	Variables     queryVariables `json:"variables"`
	Query         string         `json:"query"`
}

type queryVariables struct {
	Input queryInput `json:"input"`
}

type queryInput struct {
	TravelPurpose   int             `json:"travelPurpose"`
	PagenameDetails pagenameDetails `json:"pagenameDetails"`
	SearchConfig    searchConfig    `json:"searchConfig"`
}

type pagenameDetails struct {
	CountryCode string `json:"countryCode"`
	Pagename    string `json:"pagename"`
}

type searchConfig struct {
	SearchConfigDate searchConfigDate `json:"searchConfigDate"`
	NbAdults         int              `json:"nbAdults"`
	NbRooms          int              `json:"nbRooms"`
}

type searchConfigDate struct {
	StartDate    string `json:"startDate"`
	AmountOfDays int    `json:"amountOfDays"`
}

// BuildAvailabilityQuery serializes the availability calendar query for one
// property. The location fields come from the scraped page, never from the
// catalog.
func BuildAvailabilityQuery(tokens SessionTokens, req models.Request) []byte {
	body := graphqlRequest{
		OperationName: availabilityOperation,
		Variables: queryVariables{
			Input: queryInput{
				TravelPurpose: travelPurpose,
				PagenameDetails: pagenameDetails{
					CountryCode: tokens.CountryCode,
					Pagename:    tokens.PageName,
				},
				SearchConfig: searchConfig{
					SearchConfigDate: searchConfigDate{
						StartDate:    req.ArrivalDate,
						AmountOfDays: req.Nights,
					},
					NbAdults: req.Adults,
					NbRooms:  req.Rooms,
				},
			},
		},
		Query: availabilityQuery,
	}

	// only strings and ints, cannot fail
	data, _ := json.Marshal(body)
	return data
}
