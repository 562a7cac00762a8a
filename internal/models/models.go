package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
)

// Melody sources.
const (
	SourceRecording = "recording"
	SourceImport    = "import"
	SourceDemo      = "demo"
)

// Melody is a stored melody in the library.
type Melody struct {
	ID            int64          `db:"id" json:"id"`
	Title         string         `db:"title" json:"title"`
	Source        string         `db:"source" json:"source"`
	Events        types.JSONText `db:"events" json:"events"`
	DistinctNotes pq.StringArray `db:"distinct_notes" json:"distinct_notes"`
	NoteCount     int            `db:"note_count" json:"note_count"`
	DurationMs    int64          `db:"duration_ms" json:"duration_ms"`
	OwnerKeyHash  string         `db:"owner_key_hash" json:"-"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
}

// MelodySummary is a library listing row without the events payload.
type MelodySummary struct {
	ID            int64          `db:"id" json:"id"`
	Title         string         `db:"title" json:"title"`
	Source        string         `db:"source" json:"source"`
	DistinctNotes pq.StringArray `db:"distinct_notes" json:"distinct_notes"`
	NoteCount     int            `db:"note_count" json:"note_count"`
	DurationMs    int64          `db:"duration_ms" json:"duration_ms"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
}
