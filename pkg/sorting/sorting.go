// Package sorting orders task lists according to the configured
// sort_by fields.
package sorting

import (
	"sort"
	"strings"

	"github.com/paxcalpt/taskrepo/pkg/task"
)

var priorityOrder = map[string]int{
	task.PriorityHigh:   0,
	task.PriorityMedium: 1,
	task.PriorityLow:    2,
}

var statusOrder = map[string]int{
	task.StatusPending:    0,
	task.StatusInProgress: 1,
	task.StatusCompleted:  2,
	task.StatusCancelled:  3,
}

// Sort orders tasks by the given fields, most significant first. A "-"
// prefix reverses a field. "assignee:@name" sorts tasks assigned to
// that person ahead of everyone else. Unknown fields compare equal, so
// a typo in the config degrades to the next field instead of failing.
func Sort(tasks []*task.Task, fields []string) {
	sort.SliceStable(tasks, func(i, j int) bool {
		for _, field := range fields {
			desc := strings.HasPrefix(field, "-")
			name := strings.TrimPrefix(field, "-")
			cmp := compareField(tasks[i], tasks[j], name)
			if cmp == 0 {
				continue
			}
			if desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}

func compareField(a, b *task.Task, field string) int {
	switch {
	case field == "priority":
		return compareInt(rank(priorityOrder, a.Priority), rank(priorityOrder, b.Priority))
	case field == "status":
		return compareInt(rank(statusOrder, a.Status), rank(statusOrder, b.Status))
	case field == "due":
		// Tasks without a due date sort last.
		switch {
		case a.Due == nil && b.Due == nil:
			return 0
		case a.Due == nil:
			return 1
		case b.Due == nil:
			return -1
		default:
			return a.Due.Compare(*b.Due)
		}
	case field == "created":
		return a.Created.Compare(b.Created)
	case field == "modified":
		return a.Modified.Compare(b.Modified)
	case field == "title":
		return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
	case field == "project":
		return strings.Compare(strings.ToLower(a.Project), strings.ToLower(b.Project))
	case field == "repo":
		return strings.Compare(a.Repo, b.Repo)
	case strings.HasPrefix(field, "assignee"):
		preferred := ""
		if _, p, ok := strings.Cut(field, ":"); ok {
			preferred = p
		}
		return compareAssignees(a, b, preferred)
	default:
		return 0
	}
}

// compareAssignees groups tasks by assignment: the preferred person
// first, then any other assignee, then unassigned; ties break on the
// first assignee's name.
func compareAssignees(a, b *task.Task, preferred string) int {
	if cmp := compareInt(assigneeGroup(a, preferred), assigneeGroup(b, preferred)); cmp != 0 {
		return cmp
	}
	return strings.Compare(firstAssignee(a), firstAssignee(b))
}

func assigneeGroup(t *task.Task, preferred string) int {
	if len(t.Assignees) == 0 {
		return 2
	}
	if preferred != "" {
		for _, a := range t.Assignees {
			if a == preferred {
				return 0
			}
		}
	}
	return 1
}

func firstAssignee(t *task.Task) string {
	if len(t.Assignees) == 0 {
		return ""
	}
	return strings.ToLower(t.Assignees[0])
}

func rank(order map[string]int, key string) int {
	if r, ok := order[key]; ok {
		return r
	}
	return len(order) + 1
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
