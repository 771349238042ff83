package scraping

import (
	"encoding/json"
	"errors"
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krspack/scrap-booking-for-Brno/internal/models"
)

const propertyPage = `<!DOCTYPE html>
<html>
<head>
  <title>Hotel Avion, Brno</title>
  <meta property="og:title" content="Hotel Avion Brno">
</head>
<body>
<script>
  var booking = { env: { b_csrf_token: 'tok-123', b_lang: 'en-gb' } };
  window.utag_data = { hotelCountry: "cz", hotelName: "avion", hotelId: "12345" };
</script>
</body>
</html>`

func TestExtractTokens(t *testing.T) {
	tokens, ok := ExtractTokens(propertyPage)
	require.True(t, ok)
	assert.Equal(t, SessionTokens{CountryCode: "cz", PageName: "avion", CSRFToken: "tok-123"}, tokens)
}

func TestExtractTokensRequiresAllThree(t *testing.T) {
	tests := []struct {
		name string
		html string
	}{
		{name: "No country", html: `hotelName: "avion" b_csrf_token: 'x'`},
		{name: "No page name", html: `hotelCountry: "cz" b_csrf_token: 'x'`},
		{name: "No token", html: `hotelCountry: "cz" hotelName: "avion"`},
		{name: "Token in double quotes", html: `hotelCountry: "cz" hotelName: "avion" b_csrf_token: "x"`},
		{name: "Empty page", html: ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, ok := ExtractTokens(tt.html)
			assert.False(t, ok)
			assert.Equal(t, SessionTokens{}, tokens)
		})
	}
}

func TestPageTitle(t *testing.T) {
	assert.Equal(t, "Hotel Avion Brno", PageTitle(propertyPage))
	assert.Equal(t, "Plain", PageTitle(`<html><head><title> Plain </title></head></html>`))
	assert.Equal(t, "", PageTitle(`<html></html>`))
}

func TestBuildAvailabilityQuery(t *testing.T) {
	body := BuildAvailabilityQuery(
		SessionTokens{CountryCode: "cz", PageName: "avion", CSRFToken: "secret"},
		models.Request{ArrivalDate: "2024-12-02", Nights: 2, Adults: 3, Rooms: 1},
	)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &decoded))

	want := map[string]interface{}{
		"travelPurpose": float64(2),
		"pagenameDetails": map[string]interface{}{
			"countryCode": "cz",
			"pagename":    "avion",
		},
		"searchConfig": map[string]interface{}{
			"searchConfigDate": map[string]interface{}{
				"startDate":    "2024-12-02",
				"amountOfDays": float64(2),
			},
			"nbAdults": float64(3),
			"nbRooms":  float64(1),
		},
	}
	input := decoded["variables"].(map[string]interface{})["input"]
	if diff := cmp.Diff(want, input); diff != "" {
		t.Errorf("query input mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "AvailabilityCalendar", decoded["operationName"])
	assert.Contains(t, decoded["query"], "availabilityCalendar(input: $input)")
	assert.NotContains(t, string(body), "secret")

	// deterministic
	again := BuildAvailabilityQuery(
		SessionTokens{CountryCode: "cz", PageName: "avion", CSRFToken: "secret"},
		models.Request{ArrivalDate: "2024-12-02", Nights: 2, Adults: 3, Rooms: 1},
	)
	assert.Equal(t, body, again)
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		input    string
		expected int
		wantErr  bool
	}{
		{input: "1.2K", expected: 1200},
		{input: "1.5K", expected: 1500},
		{input: "950", expected: 950},
		{input: "2.450", expected: 2450},
		{input: "1K", expected: 100},
		{input: "12K", expected: 1200},
		{input: " 3.1K ", expected: 3100},
		{input: "0", expected: 0},
		{input: "", wantErr: true},
		{input: "€ 95", wantErr: true},
		{input: "-5", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			price, err := ParsePrice(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, price)

			// parsing the printed result yields the same number
			again, err := ParsePrice(strconv.Itoa(price))
			require.NoError(t, err)
			assert.Equal(t, price, again)
		})
	}
}

func TestParseAvailability(t *testing.T) {
	body := `{"data":{"availabilityCalendar":{"hotelId":1,"days":[
		{"checkin":"2024-12-02","available":true,"avgPriceFormatted":"1.5K","minLengthOfStay":2},
		{"checkin":"2024-12-03","available":false,"avgPriceFormatted":"","minLengthOfStay":0}
	]}}}`

	days, err := ParseAvailability([]byte(body))
	require.NoError(t, err)
	require.Len(t, days, 2)

	price, ok := days[0].Price()
	assert.True(t, ok)
	assert.Equal(t, 1500, price)
	stay, _ := days[0].MinStay()
	assert.Equal(t, 2, stay)
	assert.Equal(t, "2024-12-03", days[1].Date)
	assert.False(t, days[1].IsAvailable())
}

func TestParseAvailabilityShapeErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "Not JSON", body: `<html>blocked</html>`},
		{name: "No data", body: `{"errors":[{"message":"unauthorized"}]}`},
		{name: "Query error", body: `{"data":{"availabilityCalendar":{"message":"no such hotel"}}}`},
		{name: "Day without available", body: `{"data":{"availabilityCalendar":{"days":[{"checkin":"2024-12-02"}]}}}`},
		{name: "Unparseable price", body: `{"data":{"availabilityCalendar":{"days":[{"checkin":"2024-12-02","available":true,"avgPriceFormatted":"CZK 1,200","minLengthOfStay":1}]}}}`},
		{name: "Available without min stay", body: `{"data":{"availabilityCalendar":{"days":[{"checkin":"2024-12-02","available":true,"avgPriceFormatted":"100"}]}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseAvailability([]byte(tt.body))
			assert.True(t, errors.Is(err, ErrUnexpectedShape), "got %v", err)
		})
	}
}

func TestParseAvailabilityEmptyDays(t *testing.T) {
	days, err := ParseAvailability([]byte(`{"data":{"availabilityCalendar":{"days":[]}}}`))
	require.NoError(t, err)
	assert.Empty(t, days)
}
