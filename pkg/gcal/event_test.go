package gcal

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"google.golang.org/api/calendar/v3"

	"github.com/paxcalpt/taskrepo/pkg/task"
)

func dueTask(t *testing.T, due string) *task.Task {
	t.Helper()
	d, err := time.Parse(time.RFC3339, due)
	if err != nil {
		t.Fatal(err)
	}
	return &task.Task{
		ID:       "abc123",
		Title:    "Ship release",
		Status:   task.StatusPending,
		Priority: task.PriorityHigh,
		Project:  "core",
		Repo:     "work",
		Due:      &d,
	}
}

func TestEventForTaskAllDay(t *testing.T) {
	tk := dueTask(t, "2026-09-01T00:00:00Z")
	ev, err := EventForTask(tk, "3")
	if err != nil {
		t.Fatalf("EventForTask failed: %v", err)
	}
	if ev.Summary != "[work] [core] Ship release" {
		t.Errorf("unexpected summary: %q", ev.Summary)
	}
	if ev.Start.Date != "2026-09-01" || ev.Start.DateTime != "" {
		t.Errorf("midnight due should be an all-day event, got %+v", ev.Start)
	}
	if ev.ExtendedProperties.Private[taskIDProperty] != "abc123" {
		t.Error("event must carry the task id property")
	}
	if !strings.Contains(ev.Description, "Task ID: abc123") {
		t.Errorf("description missing metadata: %q", ev.Description)
	}
}

func TestEventForTaskTimed(t *testing.T) {
	tk := dueTask(t, "2026-09-01T14:30:00Z")
	ev, err := EventForTask(tk, "3")
	if err != nil {
		t.Fatal(err)
	}
	if ev.Start.DateTime == "" || ev.Start.Date != "" {
		t.Errorf("non-midnight due should be a timed event, got %+v", ev.Start)
	}
	if ev.Start.DateTime != ev.End.DateTime {
		t.Error("start and end should both be the due instant")
	}
}

func TestEventForTaskNoDue(t *testing.T) {
	tk := &task.Task{ID: "x", Title: "No date"}
	if _, err := EventForTask(tk, "1"); err == nil {
		t.Fatal("expected error for task without due date")
	}
}

func TestQualifies(t *testing.T) {
	due := time.Now().Add(24 * time.Hour)
	cases := []struct {
		name string
		task task.Task
		want bool
	}{
		{"pending with due", task.Task{Status: task.StatusPending, Due: &due}, true},
		{"in progress with due", task.Task{Status: task.StatusInProgress, Due: &due}, true},
		{"completed", task.Task{Status: task.StatusCompleted, Due: &due}, false},
		{"cancelled", task.Task{Status: task.StatusCancelled, Due: &due}, false},
		{"archived", task.Task{Status: task.StatusPending, Due: &due, Archived: true}, false},
		{"no due date", task.Task{Status: task.StatusPending}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Qualifies(&tc.task); got != tc.want {
				t.Errorf("Qualifies = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestEventPatchNoChanges(t *testing.T) {
	tk := dueTask(t, "2026-09-01T14:30:00Z")
	ev, err := EventForTask(tk, "3")
	if err != nil {
		t.Fatal(err)
	}
	if patch := EventPatch(ev, ev); patch != nil {
		t.Errorf("identical events should need no patch, got %+v", patch)
	}
}

func TestEventPatchEquivalentTimestamps(t *testing.T) {
	a := &calendar.Event{
		Summary: "x",
		Start:   &calendar.EventDateTime{DateTime: "2026-09-01T14:30:00Z"},
		End:     &calendar.EventDateTime{DateTime: "2026-09-01T14:30:00Z"},
	}
	b := &calendar.Event{
		Summary: "x",
		Start:   &calendar.EventDateTime{DateTime: "2026-09-01T16:30:00+02:00"},
		End:     &calendar.EventDateTime{DateTime: "2026-09-01T16:30:00+02:00"},
	}
	if patch := EventPatch(a, b); patch != nil {
		t.Errorf("same instant in different zones should not patch, got %+v", patch)
	}
}

func TestEventPatchDetectsChanges(t *testing.T) {
	tk := dueTask(t, "2026-09-01T14:30:00Z")
	existing, err := EventForTask(tk, "3")
	if err != nil {
		t.Fatal(err)
	}
	tk2 := tk.Clone()
	tk2.Title = "Ship release v2"
	target, err := EventForTask(tk2, "5")
	if err != nil {
		t.Fatal(err)
	}

	patch := EventPatch(existing, target)
	if patch == nil {
		t.Fatal("expected a patch")
	}
	if patch.Summary != "[work] [core] Ship release v2" {
		t.Errorf("patch missing new summary: %q", patch.Summary)
	}
	if patch.ColorId != "5" {
		t.Errorf("patch missing new color: %q", patch.ColorId)
	}
	// Unchanged times stay out of the patch.
	if patch.Start != nil {
		t.Error("patch should not touch unchanged times")
	}
}

func TestEventIndexRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mapping.json")
	idx := OpenIndex(path)
	idx.Set("task-1", "event-1")
	idx.Set("task-2", "event-2")
	if err := idx.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	reloaded := OpenIndex(path)
	if reloaded.Get("task-1") != "event-1" {
		t.Error("mapping did not survive reload")
	}
	reloaded.Remove("task-1")
	if reloaded.Get("task-1") != "" {
		t.Error("Remove did not take")
	}
	all := reloaded.All()
	if len(all) != 1 || all["task-2"] != "event-2" {
		t.Errorf("unexpected mappings: %v", all)
	}
}

func TestColorCacheStableAssignment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "colors.json")
	c := OpenColors(path)

	first := c.ColorID("core")
	if first == "" || first == defaultColorID {
		t.Fatalf("project should get a real color, got %q", first)
	}
	if again := c.ColorID("core"); again != first {
		t.Errorf("color must be stable: %q then %q", first, again)
	}
	if other := c.ColorID("infra"); other == first {
		t.Error("different projects should get different colors while slots remain")
	}
	if c.ColorID("") != defaultColorID {
		t.Error("no project means the default color")
	}

	if err := c.Save(); err != nil {
		t.Fatal(err)
	}
	reloaded := OpenColors(path)
	if reloaded.ColorID("core") != first {
		t.Error("color assignment must survive reload")
	}
}

func TestColorCacheEvictsLRU(t *testing.T) {
	c := OpenColors(filepath.Join(t.TempDir(), "colors.json"))
	for i := 0; i < colorSlots; i++ {
		c.ColorID(strings.Repeat("p", i+1))
	}
	// All slots taken; a new project must recycle one.
	got := c.ColorID("overflow")
	if got == "" || got == defaultColorID {
		t.Errorf("overflow project should recycle a real color, got %q", got)
	}
}
