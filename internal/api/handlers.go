package api

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"

	"github.com/krspack/scrap-booking-for-Brno/config"
	"github.com/krspack/scrap-booking-for-Brno/internal/database"
	"github.com/krspack/scrap-booking-for-Brno/internal/geometry"
	"github.com/krspack/scrap-booking-for-Brno/internal/models"
)

// PriceHistory looks up stored answers across runs.
type PriceHistory interface {
	PriceHistory(ctx context.Context, url, date string) ([]database.DateResultRecord, error)
}

type Handler struct {
	snapshots *Snapshots
	history   PriceHistory
	city      string
	logger    *logrus.Logger
}

// PropertyView is one catalog row with its merged results.
type PropertyView struct {
	Index       int                  `json:"index"`
	Order       int                  `json:"order"`
	URL         string               `json:"url"`
	Name        string               `json:"name"`
	Type        string               `json:"type"`
	Latitude    float64              `json:"latitude"`
	Longitude   float64              `json:"longitude"`
	Street      string               `json:"street"`
	FullAddress string               `json:"full_address"`
	PageTitle   string               `json:"page_title,omitempty"`
	Rooms       []models.RoomSummary `json:"rooms"`
	Capacity    int                  `json:"capacity"`
	LowestPrice *int                 `json:"lowest_price,omitempty"`
	Results     []models.DateResult  `json:"results"`
}

// RoomView is one row of the full room view.
type RoomView struct {
	PropertyOrder int    `json:"hotel_order"`
	PropertyName  string `json:"hotel_name"`
	ID            string `json:"id"`
	URL           string `json:"url"`
	RoomType      string `json:"room_type"`
	Persons       int    `json:"persons"`
}

// history may be nil when no results store is configured.
func NewHandler(snapshots *Snapshots, history PriceHistory, city string, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	return &Handler{
		snapshots: snapshots,
		history:   history,
		city:      city,
		logger:    logger,
	}
}

func (h *Handler) snapshot(c *gin.Context) (*Snapshot, bool) {
	snap, err := h.snapshots.Current()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "No completed scrape run yet"})
		return nil, false
	}
	return snap, true
}

// GetProperties lists every row. With ?date=YYYY-MM-DD only properties
// bookable on that date are returned; ?min_capacity=N filters by capacity.
func (h *Handler) GetProperties(c *gin.Context) {
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}

	date := c.Query("date")
	minCapacity := 0
	if raw := c.Query("min_capacity"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "min_capacity must be a non-negative integer"})
			return
		}
		minCapacity = n
	}

	t := snap.Table
	views := make([]PropertyView, 0, len(t.Properties))
	for _, p := range t.Properties {
		if p.Capacity() < minCapacity {
			continue
		}
		if date != "" {
			r, answered := t.Result(p, date)
			if !answered || !r.IsAvailable() {
				continue
			}
		}

		view := PropertyView{
			Index:       p.Index,
			Order:       p.Order,
			URL:         p.URL,
			Name:        p.Name,
			Type:        p.Type,
			Latitude:    p.Latitude,
			Longitude:   p.Longitude,
			Street:      p.Street,
			FullAddress: p.FullAddress,
			PageTitle:   p.PageTitle,
			Rooms:       p.RoomSummaries(),
			Capacity:    p.Capacity(),
			Results:     make([]models.DateResult, 0, len(t.Dates)),
		}
		if price, found := t.LowestPrice(p); found {
			view.LowestPrice = &price
		}
		for _, d := range t.Dates {
			if r, answered := t.Result(p, d); answered {
				view.Results = append(view.Results, r)
			}
		}
		views = append(views, view)
	}

	c.JSON(http.StatusOK, views)
}

func (h *Handler) GetRooms(c *gin.Context) {
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}

	rooms := make([]RoomView, 0)
	for _, p := range snap.Table.Properties {
		for _, r := range p.Rooms() {
			rooms = append(rooms, RoomView{
				PropertyOrder: p.Order,
				PropertyName:  p.Name,
				ID:            r.ID,
				URL:           r.URL,
				RoomType:      r.RoomType,
				Persons:       r.Persons,
			})
		}
	}
	c.JSON(http.StatusOK, rooms)
}

func (h *Handler) GetMap(c *gin.Context) {
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, snap.Table.MapView())
}

func (h *Handler) GetMapGeoJSON(c *gin.Context) {
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	c.Header("Content-Type", "application/geo+json")
	c.JSON(http.StatusOK, snap.Features)
}

func (h *Handler) GetReport(c *gin.Context) {
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"report":       snap.Report,
		"by_kind":      snap.Report.FailuresByKind(),
		"completed_at": snap.CompletedAt,
	})
}

// GetCity returns the configured city and the bounds the map should frame:
// the bounds of the served properties, or the city center before the
// first run.
func (h *Handler) GetCity(c *gin.Context) {
	name := c.DefaultQuery("name", h.city)
	city := config.GetCityByName(name)
	if city == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":     "Unknown city",
			"supported": config.GetCityNames(),
		})
		return
	}

	center := orb.Point{city.Center[1], city.Center[0]}
	var points []orb.Point
	if snap, err := h.snapshots.Current(); err == nil {
		points = geometry.RecordPoints(snap.Table.MapView())
	}
	bounds := geometry.Bounds(points, center)

	c.JSON(http.StatusOK, gin.H{
		"city": city,
		"bounds": gin.H{
			"south": bounds.Bottom(),
			"west":  bounds.Left(),
			"north": bounds.Top(),
			"east":  bounds.Right(),
		},
	})
}

// GetHistory returns stored answers for ?url= and ?date= across runs.
func (h *Handler) GetHistory(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "No results store configured"})
		return
	}

	url, date := c.Query("url"), c.Query("date")
	if url == "" || date == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url and date are required"})
		return
	}
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return
	}

	records, err := h.history.PriceHistory(c.Request.Context(), url, date)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get price history")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get price history"})
		return
	}
	c.JSON(http.StatusOK, records)
}

func (h *Handler) Health(c *gin.Context) {
	snap, err := h.snapshots.Current()
	if errors.Is(err, ErrNoSnapshot) {
		c.JSON(http.StatusOK, gin.H{"status": "starting"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"last_run": snap.Report.RunID,
		"at":       snap.CompletedAt,
	})
}
