package config

import (
	"time"

	"github.com/caarlos0/env/v6"
)

type Config struct {
	// Request describes the stay being priced for every property
	Request struct {
		// First night of the stay, YYYY-MM-DD
		ArrivalDate string `env:"ARRIVAL_DATE" envDefault:"2024-12-02"`

		// Number of consecutive nights (and date columns) to query
		Nights int `env:"NIGHTS" envDefault:"2"`

		// Only adults are priced
		Adults int `env:"ADULTS" envDefault:"1"`

		Rooms int `env:"ROOMS" envDefault:"1"`
	}

	// Scraping configuration
	Scraping struct {
		// Upper bound of the random pause before every attempt
		SleepLimit time.Duration `env:"SLEEP_LIMIT" envDefault:"150s"`

		// Maximum number of attempts per property
		MaxRetries int `env:"MAX_RETRIES" envDefault:"10"`

		// Pause after a transport failure before the next attempt
		RetryDelay time.Duration `env:"RETRY_DELAY" envDefault:"50s"`

		// Timeout applied to every single HTTP call
		RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"10s"`

		// Maximum number of properties in flight, 0 means one task per property
		MaxConcurrency int `env:"MAX_CONCURRENCY" envDefault:"16"`

		// Requests per second shared by all tasks, 0 disables the limiter
		RateLimit float64 `env:"RATE_LIMIT" envDefault:"0"`
		RateBurst int     `env:"RATE_BURST" envDefault:"1"`

		GraphQLURL string `env:"GRAPHQL_URL" envDefault:"https://www.booking.com/dml/graphql?lang=en-gb"`
		Origin     string `env:"ORIGIN" envDefault:"https://www.booking.com"`
		UserAgent  string `env:"USER_AGENT" envDefault:"Mozilla/5.0 (X11; Fedora; Linux x86_64; rv:115.0) Gecko/20100101 Firefox/115.0"`

		// Whole-run deadline, 0 means none
		RunTimeout time.Duration `env:"RUN_TIMEOUT" envDefault:"0s"`
	}

	// Catalog input
	Catalog struct {
		Path string `env:"CATALOG_PATH" envDefault:"dataset_booking-scraper_2024-09-19_12-33-06-898.json"`

		// Geocode records without a location instead of skipping them
		GeocodeMissing bool   `env:"GEOCODE_MISSING" envDefault:"false"`
		GeocoderURL    string `env:"GEOCODER_URL" envDefault:"https://nominatim.openstreetmap.org/search"`
		GeocodeCache   string `env:"GEOCODE_CACHE_DIR"`
	}

	// Output destinations
	Output struct {
		Properties string `env:"OUTPUT_PROPERTIES" envDefault:"hotely_jmk.csv"`
		Rooms      string `env:"OUTPUT_ROOMS" envDefault:"pokoje_jmk.csv"`
		Map        string `env:"OUTPUT_MAP" envDefault:"pro_mapu_kapacit_jmk.csv"`
		GeoJSON    string `env:"OUTPUT_GEOJSON"`
	}

	// Results store, disabled when Path is empty
	Database struct {
		Path       string        `env:"DATABASE_PATH"`
		MaxRetries int           `env:"STORE_MAX_RETRIES" envDefault:"3"`
		RetryDelay time.Duration `env:"STORE_RETRY_DELAY" envDefault:"5s"`
	}

	// Serve mode
	Server struct {
		ListenAddr     string        `env:"LISTEN_ADDR" envDefault:":5250"`
		ScrapeInterval time.Duration `env:"SCRAPE_INTERVAL" envDefault:"24h"`
		City           string        `env:"CITY" envDefault:"brno"`
	}

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
