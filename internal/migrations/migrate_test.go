package migrations

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFindLatestMigrationVersion(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"000001_create_melodies.up.sql",
		"000001_create_melodies.down.sql",
		"000003_add_index.up.sql",
		"README.md",
		"x_bad.sql",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("--"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "000009_dir"), 0o755); err != nil {
		t.Fatal(err)
	}

	if got := findLatestMigrationVersion(dir); got != 3 {
		t.Errorf("latest = %d, want 3", got)
	}
	if got := findLatestMigrationVersion(filepath.Join(dir, "missing")); got != 0 {
		t.Errorf("missing dir: latest = %d, want 0", got)
	}
}

func TestShippedMigrationsArePaired(t *testing.T) {
	files, err := filepath.Glob("../../migrations/*.sql")
	if err != nil || len(files) == 0 {
		t.Fatalf("no migration files found: %v", err)
	}
	seen := map[string]int{}
	for _, f := range files {
		base := filepath.Base(f)
		switch {
		case len(base) > 7 && base[len(base)-7:] == ".up.sql":
			seen[base[:len(base)-7]]++
		case len(base) > 9 && base[len(base)-9:] == ".down.sql":
			seen[base[:len(base)-9]]++
		default:
			t.Errorf("unexpected migration file %s", base)
		}
	}
	for name, n := range seen {
		if n != 2 {
			t.Errorf("migration %s has %d of up/down", name, n)
		}
	}
}
