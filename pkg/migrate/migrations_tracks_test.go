package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestTracksMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_tracks.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS tracks",
		"FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE",
		"FOREIGN KEY (album_id) REFERENCES albums(id) ON DELETE SET NULL",
		"CHECK (like_count >= 0)",
		"CHECK (comment_count >= 0)",
		"idx_tracks_provider_job_id",
		"DROP TABLE IF EXISTS tracks",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestAlbumsMigrationEnforcesSingleDefault(t *testing.T) {
	content := readMigration(t, "*_create_albums.sql")

	checks := []string{
		"share_token text NOT NULL UNIQUE",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_albums_user_default ON albums(user_id) WHERE is_default",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestBandMembersMigrationBoundsPositions(t *testing.T) {
	content := readMigration(t, "*_create_bands.sql")

	checks := []string{
		"CHECK (position BETWEEN 1 AND 4)",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_band_position ON band_members(band_id, position)",
		"user_id uuid NOT NULL UNIQUE",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration matching %q found", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}
