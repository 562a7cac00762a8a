package middleware

import (
	"log"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/linechime/backend/internal/config"
)

// devOrigins are accepted in development.
var devOrigins = []string{
	"http://localhost:5173", // Vite dev server
	"http://127.0.0.1:5173",
}

func allowedOrigins(cfg *config.Config) []string {
	var origins []string
	if !cfg.IsProduction() {
		origins = append(origins, devOrigins...)
	}
	if cfg.FrontendURL != "" {
		origins = append(origins, cfg.FrontendURL)
	}
	return origins
}

// CORSMiddleware returns a CORS middleware configured for the environment
func CORSMiddleware(cfg *config.Config) gin.HandlerFunc {
	origins := allowedOrigins(cfg)
	log.Printf("[CORS] Environment: %s, allowed origins: %v", cfg.Environment, origins)

	return cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: []string{
			"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS",
		},
		AllowHeaders: []string{
			"Origin", "Content-Length", "Content-Type", "Authorization",
			"X-Owner-Key", "Accept", "Cache-Control", "X-Requested-With",
		},
		ExposeHeaders: []string{
			"Content-Length", "Content-Disposition", "X-Session-ID",
		},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour, // Cache preflight responses
	})
}

// WebSocketCORSCheck validates WebSocket upgrade origins
func WebSocketCORSCheck(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.ToLower(c.GetHeader("Connection")) != "upgrade" ||
			strings.ToLower(c.GetHeader("Upgrade")) != "websocket" {
			c.Next()
			return
		}

		origin := c.GetHeader("Origin")
		if origin == "" {
			c.AbortWithStatusJSON(400, gin.H{"error": "WebSocket origin required"})
			return
		}

		allowed := false
		if !cfg.IsProduction() {
			allowed = strings.HasPrefix(origin, "http://localhost:") ||
				strings.HasPrefix(origin, "http://127.0.0.1:")
		}
		for _, o := range allowedOrigins(cfg) {
			if origin == o {
				allowed = true
				break
			}
		}

		if !allowed {
			log.Printf("[CORS] Rejected WebSocket origin=%s", origin)
			c.AbortWithStatusJSON(403, gin.H{"error": "WebSocket origin not allowed"})
			return
		}
		c.Next()
	}
}
