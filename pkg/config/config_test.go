package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFromMissingFileGivesDefaults(t *testing.T) {
	cfg, err := LoadFrom(t.TempDir())
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if cfg.ParentDir == "" {
		t.Error("default parent_dir must be set")
	}
	if cfg.ConflictStrategy != "auto" {
		t.Errorf("default strategy should be auto, got %q", cfg.ConflictStrategy)
	}
	if cfg.Calendar.CalendarID != "primary" {
		t.Errorf("default calendar should be primary, got %q", cfg.Calendar.CalendarID)
	}
	if len(cfg.SortBy) == 0 {
		t.Error("default sort order must be set")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadFrom(dir)
	if err != nil {
		t.Fatal(err)
	}
	cfg.ParentDir = "/srv/tasks"
	cfg.DefaultRepo = "work"
	cfg.ConflictStrategy = "remote"
	cfg.SortBy = []string{"-due", "title"}
	cfg.Calendar.Enabled = true
	cfg.Calendar.CalendarID = "team@example.com"

	if err := cfg.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := LoadFrom(dir)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if loaded.ParentDir != "/srv/tasks" || loaded.DefaultRepo != "work" ||
		loaded.ConflictStrategy != "remote" {
		t.Errorf("config did not round trip: %+v", loaded)
	}
	if len(loaded.SortBy) != 2 || loaded.SortBy[0] != "-due" {
		t.Errorf("sort_by did not round trip: %v", loaded.SortBy)
	}
	if !loaded.Calendar.Enabled || loaded.Calendar.CalendarID != "team@example.com" {
		t.Errorf("calendar settings did not round trip: %+v", loaded.Calendar)
	}
}

func TestPartialFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("default_repo = \"home\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFrom(dir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DefaultRepo != "home" {
		t.Errorf("expected default_repo home, got %q", cfg.DefaultRepo)
	}
	if cfg.ConflictStrategy != "auto" || len(cfg.SortBy) == 0 {
		t.Error("unset keys must fall back to defaults")
	}
}

func TestStateFilePaths(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadFrom(dir)
	if err != nil {
		t.Fatal(err)
	}
	for name, path := range map[string]string{
		"credentials": cfg.CredentialsFile(),
		"token":       cfg.TokenFile(),
		"mapping":     cfg.MappingFile(),
		"id cache":    cfg.IDCacheFile(),
	} {
		if filepath.Dir(path) != dir {
			t.Errorf("%s file %s not under state dir %s", name, path, dir)
		}
	}
}
