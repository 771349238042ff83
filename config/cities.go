package config

import "strings"

// City represents a city configuration
type City struct {
	Name      string    `json:"name"`
	Center    []float64 `json:"center"`
	ZoomLevel int       `json:"zoom_level"`
}

// SupportedCities is a list of cities the map view knows how to frame
var SupportedCities = []City{
	{
		Name:      "brno",
		Center:    []float64{49.1951, 16.6068},
		ZoomLevel: 13,
	},
	{
		Name:      "jihomoravsky",
		Center:    []float64{49.0200, 16.6300},
		ZoomLevel: 9,
	},
}

// GetCityNames returns a list of supported city names
func GetCityNames() []string {
	names := make([]string, len(SupportedCities))
	for i, city := range SupportedCities {
		names[i] = city.Name
	}
	return names
}

// GetCityByName returns a city configuration by name, case-insensitively
func GetCityByName(name string) *City {
	for _, city := range SupportedCities {
		if strings.EqualFold(city.Name, name) {
			return &city
		}
	}
	return nil
}
