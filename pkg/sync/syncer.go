package sync

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/paxcalpt/taskrepo/pkg/repo"
	"github.com/paxcalpt/taskrepo/pkg/task"
)

// Report summarizes one repository's sync pass.
type Report struct {
	Repo         string
	Committed    bool
	Conflicts    int
	Resolved     int
	MarkersFixed int
	Skipped      int
	Pushed       bool
}

// Syncer drives the sync workflow for one repository at a time:
// commit local changes, detect conflicts, resolve them per strategy,
// pull (recovering from conflict markers when the merge leaves them),
// and push. Concurrent syncs against the same repository are not safe;
// the work tree is the mutual-exclusion boundary and callers must
// serialize.
type Syncer struct {
	Strategy Strategy
	Resolver InteractiveResolver
	Push     bool
}

// SyncRepository runs one full sync pass. A task with a real conflict
// always reaches some resolver; when none can handle it (no interactive
// resolver wired in), the pass fails rather than dropping the conflict.
func (s *Syncer) SyncRepository(ctx context.Context, r *repo.Repository) (*Report, error) {
	report := &Report{Repo: r.Name}
	g := r.Git

	dirty, err := g.IsDirty(ctx)
	if err != nil {
		return report, fmt.Errorf("git status failed: %w", err)
	}
	if dirty {
		if err := g.AddAll(ctx); err != nil {
			return report, fmt.Errorf("git add failed: %w", err)
		}
		if err := g.Commit(ctx, "Auto-commit: TaskRepo sync"); err != nil {
			return report, fmt.Errorf("git commit failed: %w", err)
		}
		report.Committed = true
	}

	if !g.HasRemote(ctx) {
		return report, nil
	}

	conflicts, skipped, err := Detect(ctx, g, r.Path, r.Name)
	if err != nil {
		return report, fmt.Errorf("conflict detection failed: %w", err)
	}
	report.Conflicts = len(conflicts)
	report.Skipped = skipped

	for _, c := range conflicts {
		resolved, err := s.resolve(c)
		if err != nil {
			return report, err
		}
		if _, err := r.SaveTask(resolved); err != nil {
			return report, fmt.Errorf("failed to write resolved task %s: %w", c.FilePath, err)
		}
		if err := g.Add(ctx, c.FilePath); err != nil {
			return report, fmt.Errorf("failed to stage resolved task: %w", err)
		}
		report.Resolved++
	}
	if report.Resolved > 0 {
		if err := g.Commit(ctx, "Resolve task conflicts"); err != nil {
			return report, fmt.Errorf("failed to commit resolutions: %w", err)
		}
	}

	if err := g.Pull(ctx); err != nil {
		fixed, fixErr := s.recoverFromMarkers(ctx, r)
		if fixErr != nil {
			return report, fixErr
		}
		if fixed == 0 {
			return report, fmt.Errorf("git pull failed: %w", err)
		}
		report.MarkersFixed = fixed
		if err := g.AddAll(ctx); err != nil {
			return report, fmt.Errorf("failed to stage marker resolutions: %w", err)
		}
		if err := g.Commit(ctx, "Resolve task conflicts after merge"); err != nil {
			return report, fmt.Errorf("failed to commit marker resolutions: %w", err)
		}
	}

	if s.Push {
		if err := g.Push(ctx); err != nil {
			return report, fmt.Errorf("git push failed: %w", err)
		}
		report.Pushed = true
	}
	return report, nil
}

func (s *Syncer) resolve(c Conflict) (*task.Task, error) {
	switch s.Strategy {
	case StrategyLocal:
		t := c.Local.Clone()
		t.Touch()
		return t, nil
	case StrategyRemote:
		t := c.Remote.Clone()
		t.Touch()
		return t, nil
	case StrategyInteractive:
		return s.askHuman(c)
	default: // StrategyAuto
		if merged := SmartMerge(c.Local, c.Remote, c.Fields); merged != nil {
			return merged, nil
		}
		return s.askHuman(c)
	}
}

func (s *Syncer) askHuman(c Conflict) (*task.Task, error) {
	if s.Resolver == nil {
		return nil, fmt.Errorf("conflict in %s needs interactive resolution but no resolver is available", c.FilePath)
	}
	return s.Resolver.Resolve(c)
}

// recoverFromMarkers scans the work tree for task files the merge left
// with conflict markers and resolves each by whole-task recency. Files
// whose markers cannot be parsed back into two tasks stay untouched and
// are reported, not silently "fixed".
func (s *Syncer) recoverFromMarkers(ctx context.Context, r *repo.Repository) (int, error) {
	matches, err := filepath.Glob(filepath.Join(r.TasksDir(), "task-*.md"))
	if err != nil {
		return 0, err
	}

	fixed := 0
	var unresolved []string
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		content := string(data)
		if !HasMarkers(content) {
			continue
		}
		winner := ResolveMarkers(content, path, r.Name)
		if winner == nil {
			unresolved = append(unresolved, filepath.Base(path))
			continue
		}
		if _, err := r.SaveTask(winner); err != nil {
			return fixed, fmt.Errorf("failed to write marker resolution for %s: %w", path, err)
		}
		log.Printf("Resolved merge conflict in %s (kept version modified %s)",
			filepath.Base(path), winner.Modified.Format("2006-01-02 15:04:05"))
		fixed++
	}

	if len(unresolved) > 0 {
		return fixed, fmt.Errorf("could not auto-resolve conflict markers in %d file(s): %v; fix manually and re-run sync",
			len(unresolved), unresolved)
	}
	return fixed, nil
}
