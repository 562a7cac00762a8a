package api

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/linechime/backend/internal/api/handlers"
	"github.com/linechime/backend/internal/config"
	"github.com/linechime/backend/internal/middleware"
	"github.com/linechime/backend/internal/sandbox"
	"github.com/linechime/backend/internal/ws"
)

// SetupRoutes configures all API routes. db may be nil, in which case the
// melody library answers 503.
func SetupRoutes(router *gin.Engine, db *sqlx.DB, cfg *config.Config, mgr *sandbox.Manager, hub *ws.Hub) {
	router.Use(middleware.CORSMiddleware(cfg))

	if !cfg.IsProduction() {
		router.Use(func(c *gin.Context) {
			c.Header("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
			c.Header("Pragma", "no-cache")
			c.Header("Expires", "0")
			c.Next()
		})
		log.Println("[DEV MODE] no-cache headers enabled for all routes")
	}

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", handlers.HealthCheck(mgr))
		v1.GET("/catalog", handlers.GetCatalog)

		v1.POST("/sessions", handlers.CreateSession(mgr, cfg))

		session := v1.Group("/sessions/:id", handlers.SessionAuth(cfg))
		{
			session.GET("", handlers.GetSession(mgr))
			session.DELETE("", handlers.CloseSession(mgr))
			session.PATCH("/params", handlers.UpdateParams(mgr))
			session.POST("/pointer", handlers.PostPointer(mgr))
			session.POST("/scale", handlers.ApplyScale(mgr))
			session.POST("/song", handlers.PlaySong(mgr))
			session.DELETE("/song", handlers.StopSong(mgr))
			session.POST("/clear", handlers.ClearSession(mgr))
			session.POST("/recording", handlers.ToggleRecording(mgr))
			session.GET("/recording", handlers.ExportRecording(mgr))
			session.POST("/recording/import", handlers.ImportRecording(mgr))
			session.GET("/recording/wav", handlers.RecordingWAV(mgr))
			session.POST("/recording/save", handlers.SaveRecording(mgr, db))
			session.POST("/melodies/:melody_id/play", handlers.PlayLibraryMelody(mgr, db))
			session.GET("/ws", middleware.WebSocketCORSCheck(cfg), handlers.SessionWebSocket(mgr, hub))
		}

		melodies := v1.Group("/melodies")
		{
			melodies.GET("", handlers.ListMelodies(db))
			melodies.POST("", handlers.CreateMelody(db))
			melodies.GET("/:id", handlers.GetMelody(db))
			melodies.DELETE("/:id", handlers.DeleteMelody(db))
			melodies.GET("/:id/wav", handlers.MelodyWAV(db, mgr))
		}
	}
}
