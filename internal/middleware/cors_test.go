package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/linechime/backend/internal/config"
)

func wsRouter(cfg *config.Config) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(WebSocketCORSCheck(cfg))
	r.GET("/ws", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestWebSocketCORSCheck(t *testing.T) {
	tests := []struct {
		name    string
		env     string
		origin  string
		upgrade bool
		want    int
	}{
		{"plain request skips check", "production", "", false, http.StatusOK},
		{"missing origin", "production", "", true, http.StatusBadRequest},
		{"dev localhost", "development", "http://localhost:3000", true, http.StatusOK},
		{"prod localhost rejected", "production", "http://localhost:3000", true, http.StatusForbidden},
		{"prod frontend url", "production", "https://chime.example.com", true, http.StatusOK},
		{"prod unknown origin", "production", "https://evil.example.com", true, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{Environment: tt.env, FrontendURL: "https://chime.example.com"}
			req := httptest.NewRequest(http.MethodGet, "/ws", nil)
			if tt.upgrade {
				req.Header.Set("Connection", "Upgrade")
				req.Header.Set("Upgrade", "websocket")
			}
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			w := httptest.NewRecorder()
			wsRouter(cfg).ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestAllowedOrigins(t *testing.T) {
	prod := allowedOrigins(&config.Config{Environment: "production", FrontendURL: "https://chime.example.com"})
	if len(prod) != 1 || prod[0] != "https://chime.example.com" {
		t.Errorf("production origins = %v", prod)
	}
	dev := allowedOrigins(&config.Config{Environment: "development"})
	if len(dev) != len(devOrigins) {
		t.Errorf("development origins = %v", dev)
	}
}
