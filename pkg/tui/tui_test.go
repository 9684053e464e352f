package tui

import (
	"context"
	"os/exec"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/paxcalpt/taskrepo/pkg/config"
	"github.com/paxcalpt/taskrepo/pkg/repo"
	"github.com/paxcalpt/taskrepo/pkg/task"
)

func newTestModel(t *testing.T) (*Model, *repo.Manager) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	base := t.TempDir()
	cfg, err := config.LoadFrom(filepath.Join(base, "state"))
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	cfg.ParentDir = filepath.Join(base, "tasks")

	manager, err := repo.NewManager(cfg.ParentDir)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}
	r, err := manager.Create(context.Background(), "work")
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	if _, err := r.SaveTask(task.New("Write the report")); err != nil {
		t.Fatalf("failed to save task: %v", err)
	}

	m, err := New(manager, cfg)
	if err != nil {
		t.Fatalf("failed to build model: %v", err)
	}
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return m, manager
}

func pressKey(m *Model, r rune) {
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
}

func soleTask(t *testing.T, manager *repo.Manager) *task.Task {
	t.Helper()
	tasks := manager.ListAllTasks(context.Background(), false)
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(tasks))
	}
	return tasks[0]
}

func TestKeyPMarksInProgress(t *testing.T) {
	m, manager := newTestModel(t)

	pressKey(m, 'p')

	if got := soleTask(t, manager); got.Status != task.StatusInProgress {
		t.Errorf("expected status %s after pressing p, got %s",
			task.StatusInProgress, got.Status)
	}
}

func TestKeyShiftPCyclesPriority(t *testing.T) {
	m, manager := newTestModel(t)

	// New tasks start at medium; one cycle steps down to low.
	pressKey(m, 'P')

	got := soleTask(t, manager)
	if got.Priority != task.PriorityLow {
		t.Errorf("expected priority %s after pressing P, got %s",
			task.PriorityLow, got.Priority)
	}
	if got.Status != task.StatusPending {
		t.Errorf("priority key must not touch status, got %s", got.Status)
	}
}

func TestKeyDMarksDone(t *testing.T) {
	m, manager := newTestModel(t)

	pressKey(m, 'd')

	if got := soleTask(t, manager); got.Status != task.StatusCompleted {
		t.Errorf("expected status %s after pressing d, got %s",
			task.StatusCompleted, got.Status)
	}
}
