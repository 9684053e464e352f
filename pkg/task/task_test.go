package task

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func sampleTask() *Task {
	due := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
	created := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	return &Task{
		ID:          "7f2c9a4e-0d7b-4c19-9b59-1f2a3b4c5d6e",
		Title:       "Write release notes",
		Status:      StatusInProgress,
		Priority:    PriorityHigh,
		Project:     "launch",
		Assignees:   []string{"@ana", "@bruno"},
		Tags:        []string{"docs", "release"},
		Links:       []string{"https://example.com/draft"},
		Due:         &due,
		Description: "Cover the sync changes.\n\nMention the new TUI.",
		Parent:      "",
		Depends:     []string{"11111111-2222-3333-4444-555555555555"},
		Created:     created,
		Modified:    created.Add(2 * time.Hour),
		Repo:        "work",
	}
}

func TestRenderParseRoundTrip(t *testing.T) {
	orig := sampleTask()
	text, err := orig.Render()
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	parsed, err := Parse(text, orig.ID, "work")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	for _, field := range FieldNames() {
		if !FieldEqual(field, orig, parsed) {
			t.Errorf("field %q not stable across round trip", field)
		}
	}
	if !parsed.Created.Equal(orig.Created) || !parsed.Modified.Equal(orig.Modified) {
		t.Errorf("timestamps not stable: created %v->%v modified %v->%v",
			orig.Created, parsed.Created, orig.Modified, parsed.Modified)
	}
	if parsed.Repo != "work" {
		t.Errorf("expected repo 'work', got %q", parsed.Repo)
	}
}

func TestParseRejectsMalformedInput(t *testing.T) {
	cases := []struct {
		name string
		text string
	}{
		{"no frontmatter", "# Just a heading\n"},
		{"unterminated frontmatter", "---\nstatus: pending\n"},
		{"missing title heading", "---\nstatus: pending\ncreated: 2024-01-01T00:00:00Z\nmodified: 2024-01-01T00:00:00Z\n---\n\nno heading here\n"},
		{"bad status", "---\nstatus: someday\ncreated: 2024-01-01T00:00:00Z\nmodified: 2024-01-01T00:00:00Z\n---\n\n# Title\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Parse(tc.text, "abc", "work"); err == nil {
				t.Errorf("expected parse error for %s", tc.name)
			}
		})
	}
}

func TestParseFilenameIDOverridesFrontmatter(t *testing.T) {
	orig := sampleTask()
	text, err := orig.Render()
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	parsed, err := Parse(text, "042", "work")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if parsed.ID != "042" {
		t.Errorf("expected filename id to win, got %q", parsed.ID)
	}
}

func TestIDFromFileName(t *testing.T) {
	cases := map[string]string{
		"task-042.md":                "042",
		"tasks/task-abc.md":          "abc",
		"/tmp/repo/tasks/task-x1.md": "x1",
		"notes.md":                   "",
		"task-.md":                   "",
		"task-042.txt":               "",
	}
	for in, want := range cases {
		if got := IDFromFileName(in); got != want {
			t.Errorf("IDFromFileName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSaveLoad(t *testing.T) {
	dir := t.TempDir()
	orig := sampleTask()

	path, err := orig.Save(dir)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if filepath.Base(path) != orig.FileName() {
		t.Errorf("unexpected file name %s", filepath.Base(path))
	}

	loaded, err := Load(path, "work")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.ID != orig.ID || loaded.Title != orig.Title {
		t.Errorf("loaded task differs: id %q title %q", loaded.ID, loaded.Title)
	}
}

func TestFieldEqualSetSemantics(t *testing.T) {
	a := sampleTask()
	b := a.Clone()
	b.Tags = []string{"release", "docs"} // same set, different order
	if !FieldEqual(FieldTags, a, b) {
		t.Error("tags should compare as sets")
	}

	b.Assignees = []string{"@bruno", "@ana"} // order matters for assignees
	if FieldEqual(FieldAssignees, a, b) {
		t.Error("assignees should compare as ordered sequences")
	}
}

func TestTouchKeepsInvariant(t *testing.T) {
	tk := New("quick one")
	if tk.Modified.Before(tk.Created) {
		t.Fatal("new task violates modified >= created")
	}
	tk.Touch()
	if tk.Modified.Before(tk.Created) {
		t.Error("touch violated modified >= created")
	}
}

func TestRenderContainsHeadingAndFences(t *testing.T) {
	text, err := sampleTask().Render()
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.HasPrefix(text, "---\n") {
		t.Error("render must start with a frontmatter fence")
	}
	if !strings.Contains(text, "\n# Write release notes\n") {
		t.Error("render must contain the title heading")
	}
}
