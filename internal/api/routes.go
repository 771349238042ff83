package api

import (
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/krspack/scrap-booking-for-Brno/internal/obs"
)

// NewRouter builds the engine with CORS, recovery and request logging.
func NewRouter(logger *logrus.Logger) *gin.Engine {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept"},
		MaxAge:          12 * time.Hour,
	}))
	return router
}

func SetupRoutes(router *gin.Engine, handler *Handler, metrics *obs.Metrics) {
	router.GET("/healthz", handler.Health)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := router.Group("/api")
	{
		api.GET("/properties", handler.GetProperties)
		api.GET("/rooms", handler.GetRooms)
		api.GET("/map", handler.GetMap)
		api.GET("/map.geojson", handler.GetMapGeoJSON)
		api.GET("/report", handler.GetReport)
		api.GET("/city", handler.GetCity)
		api.GET("/history", handler.GetHistory)
	}
}

func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}).Debug("Handled request")
	}
}
