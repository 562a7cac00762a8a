package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/linechime/backend/internal/library"
	"github.com/linechime/backend/internal/music"
	"github.com/linechime/backend/internal/sandbox"
)

// statusFor maps a domain error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, sandbox.ErrParamOutOfRange),
		errors.Is(err, music.ErrInvalidMelody),
		errors.Is(err, music.ErrUnknownNote),
		errors.Is(err, music.ErrUnknownScale),
		errors.Is(err, music.ErrUnknownSong),
		errors.Is(err, sandbox.ErrInvalidPointer),
		errors.Is(err, library.ErrNoTitle):
		return http.StatusBadRequest
	case errors.Is(err, library.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, sandbox.ErrSessionNotFound),
		errors.Is(err, sandbox.ErrSessionClosed),
		errors.Is(err, library.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, sandbox.ErrNothingRecorded):
		return http.StatusConflict
	case errors.Is(err, sandbox.ErrTooManySessions):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("[ERROR] %s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// requireDB answers 503 when the melody library is not configured.
func requireDB(c *gin.Context, db *sqlx.DB) bool {
	if db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "melody library is not configured"})
		return false
	}
	return true
}

func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

// sessionID is the session the request's token was issued for.
func sessionID(c *gin.Context) string {
	return c.GetString(sessionIDKey)
}
