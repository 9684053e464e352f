package repo

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/paxcalpt/taskrepo/pkg/task"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
}

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	requireGit(t)
	dir := filepath.Join(t.TempDir(), "tasks-work")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	r, err := Open(context.Background(), dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return r
}

func TestOpenRejectsBadNames(t *testing.T) {
	requireGit(t)
	dir := filepath.Join(t.TempDir(), "not-a-task-repo")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(context.Background(), dir); err == nil {
		t.Fatal("directories without the tasks- prefix must be rejected")
	}
}

func TestSaveListGetDelete(t *testing.T) {
	r := newTestRepo(t)

	tk := task.New("Write docs")
	tk.Project = "core"
	if _, err := r.SaveTask(tk); err != nil {
		t.Fatalf("SaveTask failed: %v", err)
	}
	if tk.Repo != "work" {
		t.Errorf("SaveTask should claim ownership, got repo %q", tk.Repo)
	}

	tasks := r.ListTasks(false)
	if len(tasks) != 1 || tasks[0].Title != "Write docs" {
		t.Fatalf("unexpected listing: %+v", tasks)
	}

	got, err := r.GetTask(tk.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.ID != tk.ID {
		t.Fatalf("GetTask returned %+v", got)
	}

	missing, err := r.GetTask("nope")
	if err != nil || missing != nil {
		t.Errorf("missing task should be (nil, nil), got (%v, %v)", missing, err)
	}

	if err := r.DeleteTask(tk.ID); err != nil {
		t.Fatal(err)
	}
	if len(r.ListTasks(false)) != 0 {
		t.Error("task should be gone after delete")
	}
	// Deleting again is not an error.
	if err := r.DeleteTask(tk.ID); err != nil {
		t.Errorf("double delete should be a no-op: %v", err)
	}
}

func TestListTasksSkipsUnparseable(t *testing.T) {
	r := newTestRepo(t)
	if _, err := r.SaveTask(task.New("Good task")); err != nil {
		t.Fatal(err)
	}
	bad := filepath.Join(r.TasksDir(), "task-broken.md")
	if err := os.WriteFile(bad, []byte("no frontmatter here"), 0o644); err != nil {
		t.Fatal(err)
	}

	tasks := r.ListTasks(false)
	if len(tasks) != 1 || tasks[0].Title != "Good task" {
		t.Errorf("broken files must be skipped, got %+v", tasks)
	}
}

func TestArchivedHiddenByDefault(t *testing.T) {
	r := newTestRepo(t)
	tk := task.New("Old work")
	tk.Archived = true
	if _, err := r.SaveTask(tk); err != nil {
		t.Fatal(err)
	}

	if got := r.ListTasks(false); len(got) != 0 {
		t.Errorf("archived tasks should be hidden, got %+v", got)
	}
	if got := r.ListTasks(true); len(got) != 1 {
		t.Errorf("archived tasks should appear with includeArchived, got %+v", got)
	}
}

func TestManagerDiscoverAndFind(t *testing.T) {
	requireGit(t)
	parent := t.TempDir()
	m, err := NewManager(parent)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	work, err := m.Create(ctx, "work")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Create(ctx, "home"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Create(ctx, "work"); err == nil {
		t.Error("creating an existing repository must fail")
	}

	// A stray non-repo directory is ignored.
	if err := os.MkdirAll(filepath.Join(parent, "scratch"), 0o755); err != nil {
		t.Fatal(err)
	}

	repos := m.Discover(ctx)
	if len(repos) != 2 || repos[0].Name != "home" || repos[1].Name != "work" {
		t.Fatalf("unexpected discovery: %+v", repos)
	}

	tk := task.New("Find me")
	if _, err := work.SaveTask(tk); err != nil {
		t.Fatal(err)
	}

	found, r, err := m.FindTask(ctx, tk.ID, "")
	if err != nil || found == nil || r.Name != "work" {
		t.Fatalf("FindTask across repos failed: %v %v %v", found, r, err)
	}
	found, _, err = m.FindTask(ctx, tk.ID, "home")
	if err != nil || found != nil {
		t.Errorf("FindTask in the wrong repo should return nil, got %v %v", found, err)
	}

	all := m.ListAllTasks(ctx, false)
	if len(all) != 1 {
		t.Errorf("expected 1 task across repos, got %d", len(all))
	}
}

func TestProjectsAssigneesTags(t *testing.T) {
	r := newTestRepo(t)
	a := task.New("One")
	a.Project = "core"
	a.Assignees = []string{"@alice"}
	a.Tags = []string{"infra"}
	b := task.New("Two")
	b.Project = "infra"
	b.Assignees = []string{"@bob", "@alice"}
	for _, tk := range []*task.Task{a, b} {
		if _, err := r.SaveTask(tk); err != nil {
			t.Fatal(err)
		}
	}

	if got := r.Projects(); len(got) != 2 || got[0] != "core" {
		t.Errorf("unexpected projects: %v", got)
	}
	if got := r.Assignees(); len(got) != 2 || got[0] != "@alice" {
		t.Errorf("unexpected assignees: %v", got)
	}
	if got := r.Tags(); len(got) != 1 || got[0] != "infra" {
		t.Errorf("unexpected tags: %v", got)
	}
}
