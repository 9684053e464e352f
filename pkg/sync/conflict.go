// Package sync implements git-based multi-device synchronization for task
// repositories: conflict detection against the remote-tracking branch,
// field-level auto-merge, and conflict-marker recovery after failed pulls.
package sync

import (
	"time"

	"github.com/paxcalpt/taskrepo/pkg/task"
)

// Conflict is one task file whose local and remote versions disagree on at
// least one field. Created fresh per sync attempt, never persisted.
type Conflict struct {
	// FilePath is relative to the repository root.
	FilePath string
	Local    *task.Task
	Remote   *task.Task
	// Fields names every mutable field on which the two versions differ.
	Fields []string
	// CanAutoMerge is true when every conflicting field resolves under the
	// newer-wins-plus-union policy without human input.
	CanAutoMerge bool
}

// ConflictingFields compares every mutable field of the two snapshots and
// returns the names of those that differ. created and modified are
// excluded: they drive the merge policy, not conflict membership.
func ConflictingFields(local, remote *task.Task) []string {
	var fields []string
	for _, name := range task.FieldNames() {
		if !task.FieldEqual(name, local, remote) {
			fields = append(fields, name)
		}
	}
	return fields
}

// CanAutoMerge reports whether a conflict on the given fields resolves
// without human input. Divergent freeform text (title, description) is
// unmergeable by policy: no character-level merge is attempted. Structured
// fields always merge, since newer-wins is a total order per field.
func CanAutoMerge(fields []string) bool {
	for _, f := range fields {
		if task.IsFreeformField(f) {
			return false
		}
	}
	return true
}

// SmartMerge resolves a conflict under the auto-merge policy, or returns
// nil when the conflict needs human input.
//
// The side with the later modified timestamp becomes the base and wins
// every conflicting field in the first pass; list fields (assignees, tags,
// links, depends) are then replaced with the union of both sides so that
// additions made on the losing side survive. Only one aggregate modified
// timestamp exists per task, so a losing-side scalar edit is discarded
// even when keeping it would have been just as valid. That bias is part
// of the contract; tests pin it down.
func SmartMerge(local, remote *task.Task, fields []string) *task.Task {
	if !CanAutoMerge(fields) {
		return nil
	}

	base, other := local, remote
	if remote.Modified.After(local.Modified) {
		base, other = remote, local
	}

	merged := base.Clone()
	for _, f := range fields {
		if !task.IsListField(f) {
			continue
		}
		merged2 := unionValues(task.ListField(f, base), task.ListField(f, other))
		task.SetListField(f, merged, merged2)
	}

	merged.Modified = time.Now().UTC().Truncate(time.Second)
	if merged.Modified.Before(merged.Created) {
		merged.Modified = merged.Created
	}
	return merged
}

// unionValues keeps the base side's order and appends the other side's
// additions in their own order.
func unionValues(base, other []string) []string {
	seen := make(map[string]bool, len(base)+len(other))
	out := make([]string, 0, len(base)+len(other))
	for _, v := range base {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	for _, v := range other {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
