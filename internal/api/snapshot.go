package api

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/krspack/scrap-booking-for-Brno/internal/catalog"
	"github.com/krspack/scrap-booking-for-Brno/internal/processor"
)

var ErrNoSnapshot = errors.New("no completed run yet")

// Snapshot is the read-only result of one completed run. Nothing mutates
// its table after it has been published.
type Snapshot struct {
	Table       *catalog.Table
	Report      *processor.ScrapeReport
	Features    *geojson.FeatureCollection
	CompletedAt time.Time
}

// Snapshots holds the snapshot currently being served.
type Snapshots struct {
	current atomic.Pointer[Snapshot]
}

// Publish replaces the served snapshot.
func (s *Snapshots) Publish(snap *Snapshot) {
	s.current.Store(snap)
}

// Current returns the served snapshot or ErrNoSnapshot before the first run.
func (s *Snapshots) Current() (*Snapshot, error) {
	snap := s.current.Load()
	if snap == nil {
		return nil, ErrNoSnapshot
	}
	return snap, nil
}
