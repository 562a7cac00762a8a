package library

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/linechime/backend/internal/models"
	"github.com/linechime/backend/internal/music"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrNotFound  = errors.New("melody not found")
	ErrForbidden = errors.New("owner key does not match")
	ErrNoTitle   = errors.New("title is required")
)

const (
	maxTitleLength = 120 // runes
	DefaultLimit   = 50
	MaxLimit       = 200
)

// NewMelody is a melody about to be stored.
type NewMelody struct {
	Title    string
	Source   string
	Melody   music.Melody
	OwnerKey string
}

// prepare validates in and builds the row to insert. The owner key, when
// present, is stored as a bcrypt hash.
func prepare(in NewMelody) (*models.Melody, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, ErrNoTitle
	}
	if r := []rune(title); len(r) > maxTitleLength {
		title = string(r[:maxTitleLength])
	}
	if len(in.Melody) == 0 {
		return nil, music.ErrInvalidMelody
	}
	if err := in.Melody.CheckBounds(); err != nil {
		return nil, err
	}
	notes, err := in.Melody.DistinctNotes()
	if err != nil {
		return nil, err
	}

	events, err := json.Marshal(in.Melody)
	if err != nil {
		return nil, fmt.Errorf("failed to encode events: %w", err)
	}

	source := in.Source
	if source == "" {
		source = models.SourceRecording
	}

	row := &models.Melody{
		Title:      title,
		Source:     source,
		Events:     events,
		NoteCount:  len(in.Melody),
		DurationMs: int64(math.Round(in.Melody.Duration())),
	}
	for _, n := range notes {
		row.DistinctNotes = append(row.DistinctNotes, string(n))
	}

	if in.OwnerKey != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(in.OwnerKey), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash owner key: %w", err)
		}
		row.OwnerKeyHash = string(hashed)
	}
	return row, nil
}

// VerifyOwnerKey checks a plain key against the stored hash. Rows without
// an owner key never verify.
func VerifyOwnerKey(hash, plain string) bool {
	if hash == "" || plain == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// MelodyOf decodes the events column back into a melody.
func MelodyOf(row *models.Melody) (music.Melody, error) {
	var m music.Melody
	if err := json.Unmarshal(row.Events, &m); err != nil {
		return nil, fmt.Errorf("corrupt events for melody %d: %w", row.ID, err)
	}
	return m, nil
}

// Save stores a melody and returns the stored row.
func Save(ctx context.Context, db *sqlx.DB, in NewMelody) (*models.Melody, error) {
	row, err := prepare(in)
	if err != nil {
		return nil, err
	}

	err = db.QueryRowxContext(ctx, `
		INSERT INTO melodies (title, source, events, distinct_notes, note_count, duration_ms, owner_key_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING id, created_at
	`, row.Title, row.Source, row.Events, pq.Array(row.DistinctNotes), row.NoteCount, row.DurationMs, row.OwnerKeyHash).
		Scan(&row.ID, &row.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert melody: %w", err)
	}

	log.Printf("[LIBRARY] Saved melody id=%d title=%q notes=%d source=%s", row.ID, row.Title, row.NoteCount, row.Source)
	return row, nil
}

// UpsertDemo stores a built-in song, replacing an earlier copy of it.
func UpsertDemo(ctx context.Context, db *sqlx.DB, song music.Song) (int64, error) {
	row, err := prepare(NewMelody{Title: song.Name, Source: models.SourceDemo, Melody: song.Melody})
	if err != nil {
		return 0, err
	}

	var id int64
	err = db.QueryRowxContext(ctx, `
		INSERT INTO melodies (title, source, events, distinct_notes, note_count, duration_ms, owner_key_hash, created_at)
		VALUES ($1, 'demo', $2, $3, $4, $5, '', NOW())
		ON CONFLICT (title) WHERE source = 'demo' DO UPDATE SET
			events = EXCLUDED.events,
			distinct_notes = EXCLUDED.distinct_notes,
			note_count = EXCLUDED.note_count,
			duration_ms = EXCLUDED.duration_ms
		RETURNING id
	`, row.Title, row.Events, pq.Array(row.DistinctNotes), row.NoteCount, row.DurationMs).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert demo %q: %w", song.Name, err)
	}
	return id, nil
}

// Get loads one melody by id.
func Get(ctx context.Context, db *sqlx.DB, id int64) (*models.Melody, error) {
	var row models.Melody
	err := db.GetContext(ctx, &row, `
		SELECT id, title, source, events, distinct_notes, note_count, duration_ms, owner_key_hash, created_at
		FROM melodies WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// List returns melodies newest first. A non-empty note keeps only melodies
// that use it.
func List(ctx context.Context, db *sqlx.DB, limit, offset int, note string) ([]models.MelodySummary, error) {
	limit, offset = clampPage(limit, offset)

	rows := []models.MelodySummary{}
	var err error
	if note != "" {
		err = db.SelectContext(ctx, &rows, `
			SELECT id, title, source, distinct_notes, note_count, duration_ms, created_at
			FROM melodies
			WHERE $3 = ANY(distinct_notes)
			ORDER BY created_at DESC
			LIMIT $1 OFFSET $2
		`, limit, offset, note)
	} else {
		err = db.SelectContext(ctx, &rows, `
			SELECT id, title, source, distinct_notes, note_count, duration_ms, created_at
			FROM melodies
			ORDER BY created_at DESC
			LIMIT $1 OFFSET $2
		`, limit, offset)
	}
	return rows, err
}

// Delete removes a melody when ownerKey matches the stored hash.
func Delete(ctx context.Context, db *sqlx.DB, id int64, ownerKey string) error {
	row, err := Get(ctx, db, id)
	if err != nil {
		return err
	}
	if !VerifyOwnerKey(row.OwnerKeyHash, ownerKey) {
		log.Printf("[LIBRARY] Delete refused id=%d", id)
		return ErrForbidden
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM melodies WHERE id = $1`, id); err != nil {
		return err
	}
	log.Printf("[LIBRARY] Deleted melody id=%d", id)
	return nil
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
