package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const cacheFileName = "geocode_cache.json"

var ErrNoResults = errors.New("no geocoding results")

// Geocoder resolves full addresses to coordinates through a Nominatim
// compatible search endpoint, with an optional on-disk cache.
type Geocoder struct {
	logger    *logrus.Logger
	client    *resty.Client
	baseURL   string
	limiter   *rate.Limiter
	cacheDir  string
	cache     map[string][]float64
	cacheLock sync.RWMutex
}

func NewGeocoder(client *resty.Client, baseURL, cacheDir string, logger *logrus.Logger) *Geocoder {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	g := &Geocoder{
		logger:  logger,
		client:  client,
		baseURL: baseURL,
		// Nominatim usage policy: at most one request per second
		limiter:  rate.NewLimiter(rate.Every(time.Second), 1),
		cacheDir: cacheDir,
		cache:    make(map[string][]float64),
	}

	if cacheDir != "" {
		if err := os.MkdirAll(cacheDir, 0755); err != nil {
			logger.WithError(err).Warn("Could not create geocode cache directory")
		}
		g.loadCache()
	}

	return g
}

func (g *Geocoder) loadCache() {
	data, err := os.ReadFile(filepath.Join(g.cacheDir, cacheFileName))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			g.logger.WithError(err).Warn("Could not load geocode cache")
		}
		return
	}

	if err := json.Unmarshal(data, &g.cache); err != nil {
		g.logger.WithError(err).Error("Failed to parse geocode cache")
		g.cache = make(map[string][]float64)
		return
	}

	g.logger.WithField("entries", len(g.cache)).Info("Loaded geocode cache")
}

func (g *Geocoder) saveCache() {
	if g.cacheDir == "" {
		return
	}

	g.cacheLock.RLock()
	data, err := json.Marshal(g.cache)
	g.cacheLock.RUnlock()
	if err != nil {
		g.logger.WithError(err).Error("Failed to marshal geocode cache")
		return
	}

	if err := os.WriteFile(filepath.Join(g.cacheDir, cacheFileName), data, 0644); err != nil {
		g.logger.WithError(err).Error("Failed to save geocode cache")
	}
}

type nominatimResponse []struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// GeocodeAddress returns the latitude and longitude of a full address.
func (g *Geocoder) GeocodeAddress(ctx context.Context, address string) (float64, float64, error) {
	log := g.logger.WithField("address", address)

	g.cacheLock.RLock()
	coords, ok := g.cache[address]
	g.cacheLock.RUnlock()
	if ok {
		if len(coords) != 2 {
			return 0, 0, fmt.Errorf("invalid cached coordinates for %q", address)
		}
		log.WithField("source", "cache").Debug("Found coordinates in cache")
		return coords[0], coords[1], nil
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return 0, 0, err
	}

	var result nominatimResponse
	resp, err := g.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":            address,
			"format":       "json",
			"limit":        "1",
			"countrycodes": "cz",
		}).
		SetHeader("Accept", "application/json").
		SetHeader("Accept-Language", "cs-CZ,cs;q=0.9,en;q=0.8").
		SetResult(&result).
		Get(g.baseURL)
	if err != nil {
		log.WithError(err).Error("Geocoding request failed")
		return 0, 0, fmt.Errorf("geocoding request failed: %w", err)
	}
	if resp.IsError() {
		return 0, 0, fmt.Errorf("geocoding request failed with status %d", resp.StatusCode())
	}

	if len(result) == 0 {
		log.Warn("No results found")
		return 0, 0, fmt.Errorf("%w for address %q", ErrNoResults, address)
	}

	lat, err := strconv.ParseFloat(result[0].Lat, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to parse latitude %q: %w", result[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(result[0].Lon, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to parse longitude %q: %w", result[0].Lon, err)
	}

	log.WithFields(logrus.Fields{
		"latitude":  lat,
		"longitude": lon,
		"source":    "nominatim",
	}).Info("Successfully geocoded address")

	g.cacheLock.Lock()
	g.cache[address] = []float64{lat, lon}
	g.cacheLock.Unlock()
	g.saveCache()

	return lat, lon, nil
}
