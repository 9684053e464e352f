package gitx

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
}

func newTestRepo(t *testing.T) *Client {
	t.Helper()
	dir := t.TempDir()
	c := NewClient(dir)
	ctx := context.Background()
	if err := c.Init(ctx); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	if _, err := c.run(ctx, "config", "user.email", "test@example.com"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.run(ctx, "config", "user.name", "Test"); err != nil {
		t.Fatal(err)
	}
	return c
}

func TestIsRepo(t *testing.T) {
	requireGit(t)
	c := newTestRepo(t)
	if !c.IsRepo(context.Background()) {
		t.Error("expected an initialized repo")
	}

	plain := NewClient(t.TempDir())
	if plain.IsRepo(context.Background()) {
		t.Error("plain directory must not report as a repo")
	}
}

func TestDirtyAddCommitCycle(t *testing.T) {
	requireGit(t)
	c := newTestRepo(t)
	ctx := context.Background()

	dirty, err := c.IsDirty(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if dirty {
		t.Error("fresh repo should be clean")
	}

	path := filepath.Join(c.Dir, "tasks", "task-001.md")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	dirty, err = c.IsDirty(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !dirty {
		t.Error("untracked file should make the repo dirty")
	}

	files, err := c.UncommittedFiles(ctx, "tasks")
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || filepath.ToSlash(files[0]) != "tasks/task-001.md" {
		t.Errorf("unexpected uncommitted files: %v", files)
	}

	if err := c.AddAll(ctx); err != nil {
		t.Fatal(err)
	}
	if err := c.Commit(ctx, "first"); err != nil {
		t.Fatal(err)
	}
	dirty, err = c.IsDirty(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if dirty {
		t.Error("repo should be clean after commit")
	}

	// Committing with nothing staged is a no-op, not an error.
	if err := c.Commit(ctx, "empty"); err != nil {
		t.Errorf("empty commit attempt should be swallowed: %v", err)
	}
}

func TestShowFileAndChangedFiles(t *testing.T) {
	requireGit(t)
	c := newTestRepo(t)
	ctx := context.Background()

	path := filepath.Join(c.Dir, "note.md")
	if err := os.WriteFile(path, []byte("v1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := c.AddAll(ctx); err != nil {
		t.Fatal(err)
	}
	if err := c.Commit(ctx, "v1"); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(path, []byte("v2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := c.AddAll(ctx); err != nil {
		t.Fatal(err)
	}
	if err := c.Commit(ctx, "v2"); err != nil {
		t.Fatal(err)
	}

	content, err := c.ShowFile(ctx, "HEAD~1", "note.md")
	if err != nil {
		t.Fatalf("ShowFile failed: %v", err)
	}
	if content != "v1" {
		t.Errorf("expected v1 content, got %q", content)
	}

	changed, err := c.ChangedFiles(ctx, "HEAD~1", "HEAD")
	if err != nil {
		t.Fatal(err)
	}
	if len(changed) != 1 || changed[0] != "note.md" {
		t.Errorf("unexpected changed files: %v", changed)
	}
}

func TestHasRemote(t *testing.T) {
	requireGit(t)
	c := newTestRepo(t)
	ctx := context.Background()
	if c.HasRemote(ctx) {
		t.Error("fresh repo has no remote")
	}
	if _, err := c.run(ctx, "remote", "add", "origin", c.Dir); err != nil {
		t.Fatal(err)
	}
	if !c.HasRemote(ctx) {
		t.Error("remote not detected")
	}
}
