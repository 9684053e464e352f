package sync

import (
	"regexp"
	"strings"

	"github.com/paxcalpt/taskrepo/pkg/task"
)

// Standard git conflict-marker vocabulary. Only the first hunk in a file
// is handled; a file with multiple hunks is reconstructed from its first
// hunk only, which matches the single-match behavior this tool has always
// had. Such files generally fail to reparse and fall through to manual
// resolution.
var markerRe = regexp.MustCompile(`(?s)<<<<<<< HEAD\n(.*?)\n?=======\n(.*?)\n?>>>>>>> [^\n]*\n?`)

// HasMarkers reports whether content contains a git conflict-marker triad.
func HasMarkers(content string) bool {
	return markerRe.MatchString(content)
}

// ParseConflictedFile splits a file that git left with conflict markers
// into full local and remote reconstructions and parses each as a task.
// The task id comes from the task-<id>.md file name.
//
// Returns (nil, nil) when no marker triad is found or either
// reconstruction fails to parse; the caller must treat that as "needs
// manual resolution", never as success.
func ParseConflictedFile(content, filePath, repoName string) (*task.Task, *task.Task) {
	id := task.IDFromFileName(filePath)
	if id == "" {
		return nil, nil
	}

	m := markerRe.FindStringSubmatchIndex(content)
	if m == nil {
		return nil, nil
	}
	before := content[:m[0]]
	localSection := content[m[2]:m[3]]
	remoteSection := content[m[4]:m[5]]
	after := content[m[1]:]

	localDoc := splice(before, localSection, after)
	remoteDoc := splice(before, remoteSection, after)

	local, lerr := task.Parse(localDoc, id, repoName)
	remote, rerr := task.Parse(remoteDoc, id, repoName)
	if lerr != nil || rerr != nil {
		return nil, nil
	}
	return local, remote
}

func splice(before, section, after string) string {
	var b strings.Builder
	b.WriteString(before)
	b.WriteString(section)
	if section != "" && !strings.HasSuffix(section, "\n") && after != "" {
		b.WriteString("\n")
	}
	b.WriteString(after)
	return b.String()
}

// ResolveMarkers picks a winner between the two reconstructions of a
// conflicted file: whichever side was modified later, in full. No
// field-level union is attempted here; the post-pull fallback is
// deliberately simpler and stricter than the pre-pull auto-merge.
func ResolveMarkers(content, filePath, repoName string) *task.Task {
	local, remote := ParseConflictedFile(content, filePath, repoName)
	if local == nil || remote == nil {
		return nil
	}
	if remote.Modified.After(local.Modified) {
		return remote
	}
	return local
}
