package gcal

import (
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/calendar/v3"

	"github.com/paxcalpt/taskrepo/pkg/task"
)

// taskIDProperty is the private extended property that ties a calendar
// event back to its task. Events are found through the local index
// first; this property is the fallback when the index is stale.
const taskIDProperty = "taskrepo_id"

// Qualifies reports whether a task should have a calendar event: it
// must carry a due date and still be open.
func Qualifies(t *task.Task) bool {
	if t.Due == nil || t.Archived {
		return false
	}
	return t.Status == task.StatusPending || t.Status == task.StatusInProgress
}

// EventForTask converts a task into its calendar event. Tasks due at
// midnight become all-day events; any other time becomes a timed event
// at the due instant.
func EventForTask(t *task.Task, colorID string) (*calendar.Event, error) {
	if t.Due == nil {
		return nil, fmt.Errorf("task %s has no due date", t.ID)
	}

	var title strings.Builder
	if t.Repo != "" {
		fmt.Fprintf(&title, "[%s] ", t.Repo)
	}
	if t.Project != "" {
		fmt.Fprintf(&title, "[%s] ", t.Project)
	}
	title.WriteString(t.Title)

	event := &calendar.Event{
		Summary:     title.String(),
		Description: eventDescription(t),
		ColorId:     colorID,
		ExtendedProperties: &calendar.EventExtendedProperties{
			Private: map[string]string{taskIDProperty: t.ID},
		},
	}

	due := *t.Due
	if due.Hour() == 0 && due.Minute() == 0 && due.Second() == 0 {
		date := due.Format("2006-01-02")
		event.Start = &calendar.EventDateTime{Date: date}
		event.End = &calendar.EventDateTime{Date: date}
	} else {
		stamp := due.Format(time.RFC3339)
		event.Start = &calendar.EventDateTime{DateTime: stamp}
		event.End = &calendar.EventDateTime{DateTime: stamp}
	}
	return event, nil
}

func eventDescription(t *task.Task) string {
	var b strings.Builder
	if t.Description != "" {
		b.WriteString(t.Description)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "Task ID: %s\n", t.ID)
	fmt.Fprintf(&b, "Repository: %s\n", t.Repo)
	fmt.Fprintf(&b, "Status: %s\n", t.Status)
	fmt.Fprintf(&b, "Priority: %s\n", t.Priority)
	if len(t.Assignees) > 0 {
		fmt.Fprintf(&b, "Assignees: %s\n", strings.Join(t.Assignees, ", "))
	}
	if len(t.Tags) > 0 {
		fmt.Fprintf(&b, "Tags: %s\n", strings.Join(t.Tags, ", "))
	}
	if t.Project != "" {
		fmt.Fprintf(&b, "Project: %s\n", t.Project)
	}
	return strings.TrimRight(b.String(), "\n")
}

// EventPatch compares an existing event against the target rendering
// and returns a partial event containing only the fields that changed,
// or nil when the event is already up to date.
func EventPatch(existing, target *calendar.Event) *calendar.Event {
	patch := &calendar.Event{}
	changed := false

	if existing.Summary != target.Summary {
		patch.Summary = target.Summary
		changed = true
	}
	if existing.Description != target.Description {
		patch.Description = target.Description
		changed = true
	}
	if existing.ColorId != target.ColorId {
		patch.ColorId = target.ColorId
		changed = true
	}
	if !sameWhen(existing.Start, target.Start) || !sameWhen(existing.End, target.End) {
		patch.Start = target.Start
		patch.End = target.End
		changed = true
	}

	if !changed {
		return nil
	}
	return patch
}

// sameWhen compares two event times, tolerating different RFC 3339
// spellings of the same instant.
func sameWhen(a, b *calendar.EventDateTime) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Date != "" || b.Date != "" {
		return a.Date == b.Date
	}
	at, errA := time.Parse(time.RFC3339, a.DateTime)
	bt, errB := time.Parse(time.RFC3339, b.DateTime)
	if errA != nil || errB != nil {
		return a.DateTime == b.DateTime
	}
	return at.Equal(bt)
}
