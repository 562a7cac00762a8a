package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/linechime/backend/internal/library"
	"github.com/linechime/backend/internal/models"
	"github.com/linechime/backend/internal/music"
	"github.com/linechime/backend/internal/sandbox"
)

// ListMelodies lists the library, newest first. ?note= filters by note.
func ListMelodies(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireDB(c, db) {
			return
		}
		limit, _ := strconv.Atoi(c.Query("limit"))
		offset, _ := strconv.Atoi(c.Query("offset"))
		note := c.Query("note")
		if note != "" && !music.Known(music.Note(note)) {
			respondError(c, fmt.Errorf("%w: %q", music.ErrUnknownNote, note))
			return
		}

		rows, err := library.List(c.Request.Context(), db, limit, offset, note)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"melodies": rows, "count": len(rows)})
	}
}

// GetMelody returns one stored melody with its events.
func GetMelody(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireDB(c, db) {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		row, err := library.Get(c.Request.Context(), db, id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, row)
	}
}

// CreateMelody stores an imported melody.
func CreateMelody(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireDB(c, db) {
			return
		}
		var req struct {
			Title    string `json:"title" binding:"required"`
			Melody   string `json:"melody" binding:"required"`
			OwnerKey string `json:"owner_key"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "title and melody are required"})
			return
		}
		m, err := music.ParseMelody(req.Melody)
		if err != nil {
			respondError(c, err)
			return
		}

		row, err := library.Save(c.Request.Context(), db, library.NewMelody{
			Title:    req.Title,
			Source:   models.SourceImport,
			Melody:   m,
			OwnerKey: req.OwnerKey,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, row)
	}
}

// DeleteMelody removes a melody; the X-Owner-Key header must match.
func DeleteMelody(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireDB(c, db) {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		if err := library.Delete(c.Request.Context(), db, id, c.GetHeader("X-Owner-Key")); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": id})
	}
}

// MelodyWAV renders a stored melody as a WAV file.
func MelodyWAV(db *sqlx.DB, mgr *sandbox.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireDB(c, db) {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		row, err := library.Get(c.Request.Context(), db, id)
		if err != nil {
			respondError(c, err)
			return
		}
		m, err := library.MelodyOf(row)
		if err != nil {
			respondError(c, err)
			return
		}
		sendWAV(c, mgr, m, fmt.Sprintf("melody-%d.wav", row.ID))
	}
}
