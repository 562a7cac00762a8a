package handlers

import (
	"io"
	"log"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/linechime/backend/internal/audio"
	"github.com/linechime/backend/internal/config"
	"github.com/linechime/backend/internal/library"
	"github.com/linechime/backend/internal/models"
	"github.com/linechime/backend/internal/music"
	"github.com/linechime/backend/internal/sandbox"
)

// maxImportBytes bounds an imported melody text.
const maxImportBytes = 1 << 20

// run executes fn on the request's session and answers the error, if any.
// It reports whether fn succeeded.
func run(c *gin.Context, mgr *sandbox.Manager, fn func(*sandbox.Session) error) bool {
	if err := mgr.Do(c.Request.Context(), sessionID(c), fn); err != nil {
		respondError(c, err)
		return false
	}
	return true
}

func snapshotOf(c *gin.Context, mgr *sandbox.Manager) (sandbox.Snapshot, bool) {
	var snap sandbox.Snapshot
	ok := run(c, mgr, func(s *sandbox.Session) error {
		snap = s.Snapshot()
		return nil
	})
	return snap, ok
}

// CreateSession starts a sandbox session and issues its token.
func CreateSession(mgr *sandbox.Manager, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Width  float64 `json:"width"`
			Height float64 `json:"height"`
		}
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
				return
			}
		}
		if req.Width < 0 || req.Height < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "canvas size must be positive"})
			return
		}

		r, err := mgr.Create(req.Width, req.Height)
		if err != nil {
			respondError(c, err)
			return
		}
		token, exp, err := issueSessionToken(cfg, r.ID())
		if err != nil {
			log.Printf("[SESSION] Failed to sign token session=%s: %v", r.ID(), err)
			mgr.Close(r.ID(), "token_error")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		c.Header("X-Session-ID", r.ID())
		c.JSON(http.StatusCreated, gin.H{
			"session_id": r.ID(),
			"token":      token,
			"expires_at": exp.Unix(),
		})
	}
}

// GetSession returns the session snapshot.
func GetSession(mgr *sandbox.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if snap, ok := snapshotOf(c, mgr); ok {
			c.JSON(http.StatusOK, snap)
		}
	}
}

// CloseSession stops the session.
func CloseSession(mgr *sandbox.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := mgr.Close(sessionID(c), "closed_by_client"); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"closed": true})
	}
}

// UpdateParams applies a partial parameter update.
func UpdateParams(mgr *sandbox.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var patch sandbox.ParamsPatch
		if err := c.ShouldBindJSON(&patch); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid parameters"})
			return
		}
		var params sandbox.Params
		ok := run(c, mgr, func(s *sandbox.Session) error {
			if err := s.UpdateParams(patch); err != nil {
				return err
			}
			params = s.Params()
			return nil
		})
		if ok {
			c.JSON(http.StatusOK, params)
		}
	}
}

// PostPointer feeds one pointer event to the input machine.
func PostPointer(mgr *sandbox.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var ev sandbox.PointerEvent
		if err := c.ShouldBindJSON(&ev); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid pointer event"})
			return
		}
		var drawing bool
		ok := run(c, mgr, func(s *sandbox.Session) error {
			if _, err := s.HandlePointer(ev); err != nil {
				return err
			}
			drawing = s.Snapshot().Drawing
			return nil
		})
		if ok {
			c.JSON(http.StatusOK, gin.H{"drawing": drawing})
		}
	}
}

// ApplyScale lays out a built-in scale.
func ApplyScale(mgr *sandbox.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Scale string `json:"scale"`
		}
		c.ShouldBindJSON(&req)
		var snap sandbox.Snapshot
		ok := run(c, mgr, func(s *sandbox.Session) error {
			if err := s.ApplyScale(req.Scale); err != nil {
				return err
			}
			snap = s.Snapshot()
			return nil
		})
		if ok {
			c.JSON(http.StatusOK, gin.H{"scale": snap.Params.Scale, "keys": snap.Keys})
		}
	}
}

// PlaySong plays a demo song.
func PlaySong(mgr *sandbox.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Song string `json:"song"`
		}
		c.ShouldBindJSON(&req)
		var pending int
		var song string
		ok := run(c, mgr, func(s *sandbox.Session) error {
			if err := s.PlaySong(req.Song); err != nil {
				return err
			}
			pending = s.PendingSongEvents()
			song = s.Params().Song
			return nil
		})
		if ok {
			c.JSON(http.StatusOK, gin.H{"song": song, "pending_events": pending})
		}
	}
}

// StopSong cancels the pending song events.
func StopSong(mgr *sandbox.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var canceled int
		ok := run(c, mgr, func(s *sandbox.Session) error {
			canceled = s.StopSong()
			return nil
		})
		if ok {
			c.JSON(http.StatusOK, gin.H{"canceled": canceled})
		}
	}
}

// ClearSession removes every ball, line and spawner.
func ClearSession(mgr *sandbox.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok := run(c, mgr, func(s *sandbox.Session) error {
			s.ClearAll()
			return nil
		})
		if ok {
			c.JSON(http.StatusOK, gin.H{"cleared": true})
		}
	}
}

// ToggleRecording arms or disarms the recorder.
func ToggleRecording(mgr *sandbox.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var armed bool
		ok := run(c, mgr, func(s *sandbox.Session) error {
			armed = s.ToggleRecording()
			return nil
		})
		if ok {
			c.JSON(http.StatusOK, gin.H{"recording": armed})
		}
	}
}

// ExportRecording returns the recorder buffer as melody text.
func ExportRecording(mgr *sandbox.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var text string
		ok := run(c, mgr, func(s *sandbox.Session) (err error) {
			text, err = s.ExportRecording()
			return err
		})
		if ok {
			c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(text))
		}
	}
}

// ImportRecording parses the request body as melody text and plays it.
func ImportRecording(mgr *sandbox.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxImportBytes))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		var pending int
		ok := run(c, mgr, func(s *sandbox.Session) error {
			if err := s.ImportAndPlay(string(body)); err != nil {
				return err
			}
			pending = s.PendingSongEvents()
			return nil
		})
		if ok {
			c.JSON(http.StatusOK, gin.H{"pending_events": pending})
		}
	}
}

// RecordingWAV renders the recorder buffer as a WAV file.
func RecordingWAV(mgr *sandbox.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var m music.Melody
		ok := run(c, mgr, func(s *sandbox.Session) error {
			m = s.RecordedMelody()
			if len(m) == 0 {
				return sandbox.ErrNothingRecorded
			}
			return nil
		})
		if ok {
			sendWAV(c, mgr, m, "recording.wav")
		}
	}
}

// SaveRecording stores the recorder buffer in the melody library.
func SaveRecording(mgr *sandbox.Manager, db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireDB(c, db) {
			return
		}
		var req struct {
			Title    string `json:"title" binding:"required"`
			OwnerKey string `json:"owner_key"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
			return
		}

		var m music.Melody
		ok := run(c, mgr, func(s *sandbox.Session) error {
			m = s.RecordedMelody()
			if len(m) == 0 {
				return sandbox.ErrNothingRecorded
			}
			return nil
		})
		if !ok {
			return
		}

		row, err := library.Save(c.Request.Context(), db, library.NewMelody{
			Title:    req.Title,
			Source:   models.SourceRecording,
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

// PlayLibraryMelody plays a stored melody in the session.
func PlayLibraryMelody(mgr *sandbox.Manager, db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireDB(c, db) {
			return
		}
		id, ok := idParam(c, "melody_id")
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
		var pending int
		ok = run(c, mgr, func(s *sandbox.Session) error {
			if err := s.PlayMelody(m); err != nil {
				return err
			}
			pending = s.PendingSongEvents()
			return nil
		})
		if ok {
			c.JSON(http.StatusOK, gin.H{"melody_id": row.ID, "title": row.Title, "pending_events": pending})
		}
	}
}

// sendWAV renders m to a temporary file and streams it as an attachment.
func sendWAV(c *gin.Context, mgr *sandbox.Manager, m music.Melody, name string) {
	path, err := audio.WriteTempWAV(m, audio.DefaultVoice, mgr.SampleRate())
	if err != nil {
		respondError(c, err)
		return
	}
	defer os.Remove(path)
	c.FileAttachment(path, name)
}
