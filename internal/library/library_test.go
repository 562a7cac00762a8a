package library

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/linechime/backend/internal/models"
	"github.com/linechime/backend/internal/music"
)

func TestPrepareBuildsRow(t *testing.T) {
	m := music.Melody{{Note: "G4", Time: 0}, {Note: "C4", Time: 250}, {Note: "G4", Time: 1499.6}}
	row, err := prepare(NewMelody{Title: "  riff  ", Melody: m, OwnerKey: "s3cret"})
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}

	if row.Title != "riff" {
		t.Errorf("Title = %q, want trimmed", row.Title)
	}
	if row.Source != models.SourceRecording {
		t.Errorf("Source = %q, want %q", row.Source, models.SourceRecording)
	}
	if got := strings.Join(row.DistinctNotes, ","); got != "C4,G4" {
		t.Errorf("DistinctNotes = %s, want C4,G4", got)
	}
	if row.NoteCount != 3 || row.DurationMs != 1500 {
		t.Errorf("NoteCount=%d DurationMs=%d", row.NoteCount, row.DurationMs)
	}
	if row.OwnerKeyHash == "" || row.OwnerKeyHash == "s3cret" {
		t.Errorf("owner key not hashed: %q", row.OwnerKeyHash)
	}
	if !VerifyOwnerKey(row.OwnerKeyHash, "s3cret") {
		t.Error("owner key should verify")
	}
	if VerifyOwnerKey(row.OwnerKeyHash, "guess") {
		t.Error("wrong owner key verified")
	}

	back, err := MelodyOf(row)
	if err != nil {
		t.Fatalf("MelodyOf: %v", err)
	}
	if len(back) != 3 || back[2] != m[2] {
		t.Errorf("events round trip mismatch: %+v", back)
	}
}

func TestPrepareRejectsBadInput(t *testing.T) {
	ok := music.Melody{{Note: "C4", Time: 0}}
	cases := []struct {
		name string
		in   NewMelody
		want error
	}{
		{"no title", NewMelody{Title: " ", Melody: ok}, ErrNoTitle},
		{"empty melody", NewMelody{Title: "x"}, music.ErrInvalidMelody},
		{"unknown note", NewMelody{Title: "x", Melody: music.Melody{{Note: "C9", Time: 0}}}, music.ErrUnknownNote},
		{"event too late", NewMelody{Title: "x", Melody: music.Melody{{Note: "C4", Time: music.MaxEventTime + 1}}}, music.ErrInvalidMelody},
		{"too many events", NewMelody{Title: "x", Melody: make(music.Melody, music.MaxEvents+1)}, music.ErrInvalidMelody},
	}
	for _, tc := range cases {
		if _, err := prepare(tc.in); !errors.Is(err, tc.want) {
			t.Errorf("%s: got %v, want %v", tc.name, err, tc.want)
		}
	}
}

func TestPrepareTruncatesTitleByRune(t *testing.T) {
	row, err := prepare(NewMelody{
		Title:  strings.Repeat("é", maxTitleLength+10),
		Melody: music.Melody{{Note: "C4", Time: 0}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !utf8.ValidString(row.Title) {
		t.Fatalf("title is not valid UTF-8: %q", row.Title)
	}
	if n := utf8.RuneCountInString(row.Title); n != maxTitleLength {
		t.Errorf("title has %d runes, want %d", n, maxTitleLength)
	}
}

func TestRowsWithoutOwnerKeyNeverVerify(t *testing.T) {
	row, err := prepare(NewMelody{Title: "demo", Source: models.SourceDemo, Melody: music.Melody{{Note: "C4", Time: 0}}})
	if err != nil {
		t.Fatal(err)
	}
	if row.OwnerKeyHash != "" {
		t.Errorf("expected empty hash, got %q", row.OwnerKeyHash)
	}
	if VerifyOwnerKey(row.OwnerKeyHash, "") || VerifyOwnerKey(row.OwnerKeyHash, "anything") {
		t.Error("row without owner key must not verify")
	}
}

func TestClampPage(t *testing.T) {
	cases := []struct{ limit, offset, wantLimit, wantOffset int }{
		{0, 0, DefaultLimit, 0},
		{10, -5, 10, 0},
		{1000, 20, MaxLimit, 20},
	}
	for _, tc := range cases {
		l, o := clampPage(tc.limit, tc.offset)
		if l != tc.wantLimit || o != tc.wantOffset {
			t.Errorf("clampPage(%d,%d) = %d,%d", tc.limit, tc.offset, l, o)
		}
	}
}
