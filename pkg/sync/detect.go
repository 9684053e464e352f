package sync

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/paxcalpt/taskrepo/pkg/gitx"
	"github.com/paxcalpt/taskrepo/pkg/task"
)

// Detect finds task files changed on both sides since the merge base of
// the local branch and its remote-tracking counterpart, and loads both
// versions. It fetches remote refs but never mutates the work tree.
//
// skipped counts both-side-changed files that could not be parsed on one
// side or the other; such files cannot be conflict-managed and are left
// for the pull step to surface.
//
// Detection degrades to "no conflicts" when the remote is unreachable or
// no common ancestor exists: sync proceeds optimistically and the pull
// itself fails loudly on real divergence.
func Detect(ctx context.Context, g *gitx.Client, repoPath, repoName string) (conflicts []Conflict, skipped int, err error) {
	if !g.HasRemote(ctx) {
		return nil, 0, nil
	}
	if err := g.Fetch(ctx); err != nil {
		log.Printf("Warning: fetch failed for %s, skipping conflict detection: %v", repoName, err)
		return nil, 0, nil
	}
	upstream := g.UpstreamRef(ctx)
	if upstream == "" {
		return nil, 0, nil
	}
	base, err := g.MergeBase(ctx, "HEAD", upstream)
	if err != nil {
		return nil, 0, nil
	}

	localChanged, err := g.ChangedFiles(ctx, base, "HEAD")
	if err != nil {
		return nil, 0, err
	}
	uncommitted, err := g.UncommittedFiles(ctx, "tasks")
	if err != nil {
		return nil, 0, err
	}
	remoteChanged, err := g.ChangedFiles(ctx, base, upstream)
	if err != nil {
		return nil, 0, err
	}

	localSet := taskFileSet(append(localChanged, uncommitted...))
	remoteSet := taskFileSet(remoteChanged)

	var both []string
	for path := range localSet {
		if remoteSet[path] {
			both = append(both, path)
		}
	}
	sort.Strings(both)

	for _, path := range both {
		id := task.IDFromFileName(path)
		if id == "" {
			continue
		}

		localText, readErr := os.ReadFile(filepath.Join(repoPath, filepath.FromSlash(path)))
		if readErr != nil {
			// Deleted locally; deletion vs. edit is not a field conflict.
			continue
		}
		remoteText, showErr := g.ShowFile(ctx, upstream, path)
		if showErr != nil {
			continue
		}

		local, lerr := task.Parse(string(localText), id, repoName)
		remote, rerr := task.Parse(remoteText, id, repoName)
		if lerr != nil || rerr != nil {
			skipped++
			continue
		}

		fields := ConflictingFields(local, remote)
		if len(fields) == 0 {
			continue
		}
		conflicts = append(conflicts, Conflict{
			FilePath:     path,
			Local:        local,
			Remote:       remote,
			Fields:       fields,
			CanAutoMerge: CanAutoMerge(fields),
		})
	}
	return conflicts, skipped, nil
}

func taskFileSet(paths []string) map[string]bool {
	set := make(map[string]bool, len(paths))
	for _, p := range paths {
		p = filepath.ToSlash(p)
		if strings.HasPrefix(p, "tasks/") && task.IDFromFileName(p) != "" {
			set[p] = true
		}
	}
	return set
}
