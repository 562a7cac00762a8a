package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/linechime/backend/internal/sandbox"
	"github.com/linechime/backend/internal/ws"
)

// SessionWebSocket attaches a WebSocket client to the authorized session.
func SessionWebSocket(mgr *sandbox.Manager, hub *ws.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := sessionID(c)
		if _, err := mgr.Get(id); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		ws.Serve(c.Writer, c.Request, hub, mgr, id)
	}
}
