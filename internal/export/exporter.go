package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/krspack/scrap-booking-for-Brno/config"
	"github.com/krspack/scrap-booking-for-Brno/internal/catalog"
	"github.com/krspack/scrap-booking-for-Brno/internal/geometry"
)

// Exporter writes the artifacts of a finished run to the configured paths.
// An empty path disables that artifact.
type Exporter struct {
	propertiesPath string
	roomsPath      string
	mapPath        string
	geoJSONPath    string
	logger         *logrus.Logger
}

func NewExporter(cfg *config.Config, logger *logrus.Logger) *Exporter {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	return &Exporter{
		propertiesPath: cfg.Output.Properties,
		roomsPath:      cfg.Output.Rooms,
		mapPath:        cfg.Output.Map,
		geoJSONPath:    cfg.Output.GeoJSON,
		logger:         logger,
	}
}

// Export writes every configured artifact. It stops at the first failure.
func (e *Exporter) Export(t *catalog.Table) error {
	artifacts := []struct {
		path  string
		write func(io.Writer) error
	}{
		{e.propertiesPath, func(w io.Writer) error { return WriteProperties(w, t) }},
		{e.roomsPath, func(w io.Writer) error { return WriteRooms(w, t) }},
		{e.mapPath, func(w io.Writer) error { return WriteMap(w, t.MapView()) }},
		{e.geoJSONPath, func(w io.Writer) error { return WriteGeoJSON(w, t) }},
	}

	for _, a := range artifacts {
		if a.path == "" {
			continue
		}
		if err := WriteFile(a.path, a.write); err != nil {
			return err
		}
		e.logger.WithFields(logrus.Fields{
			"path":       a.path,
			"properties": len(t.Properties),
		}).Info("Wrote export")
	}
	return nil
}

// WriteGeoJSON writes the map layer as a FeatureCollection.
func WriteGeoJSON(w io.Writer, t *catalog.Table) error {
	fc := geometry.PropertyFeatures(t)
	if err := json.NewEncoder(w).Encode(fc); err != nil {
		return fmt.Errorf("failed to encode feature collection: %w", err)
	}
	return nil
}

// WriteFile writes to a temporary file next to path and renames it into
// place, so readers never see a partial export.
func WriteFile(path string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set mode of %s: %w", path, err)
	}

	if err := write(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move export into %s: %w", path, err)
	}
	return nil
}
