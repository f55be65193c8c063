// Package server wires the HTTP surface: router setup, middleware, and
// route registration.
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/qtremors/tremors-music/internal/config"
	"github.com/qtremors/tremors-music/internal/events"
	"github.com/qtremors/tremors-music/internal/scanner"
	"github.com/qtremors/tremors-music/internal/server/handlers"
)

// SetupRouter configures and returns the main router.
func SetupRouter(cfg *config.Config, db *gorm.DB, scans *scanner.Manager, bus *events.Bus) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	if cfg.Server.EnableCORS {
		r.Use(corsMiddleware())
	}

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Tremors Music backend is ready"})
	})

	api := r.Group("/api")
	handlers.NewLibrary(db, scans).RegisterRoutes(api)
	handlers.NewPlaylists(db).RegisterRoutes(api)
	handlers.NewStream(db).RegisterRoutes(api)
	handlers.NewMedia(db, cfg.Scanner).RegisterRoutes(api)
	handlers.NewSystem(cfg).RegisterRoutes(api)
	handlers.NewEventsFeed(bus, scans).RegisterRoutes(api)

	return r
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, Range")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
