// Package cli implements the tsk command tree.
package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/paxcalpt/taskrepo/pkg/config"
	"github.com/paxcalpt/taskrepo/pkg/idmap"
	"github.com/paxcalpt/taskrepo/pkg/repo"
	"github.com/paxcalpt/taskrepo/pkg/sorting"
	"github.com/paxcalpt/taskrepo/pkg/task"
)

var (
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true)
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#d73a4a")).Bold(true)
	headStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
	faintStyle = lipgloss.NewStyle().Faint(true)
)

var rootCmd = &cobra.Command{
	Use:           "tsk",
	Short:         "Git-backed task tracker",
	Long:          "tsk keeps tasks as markdown files in git repositories and syncs them across machines.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the command tree and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, failStyle.Render("✗")+" "+err.Error())
		os.Exit(1)
	}
}

// env bundles the loaded configuration with the repository manager and
// the display-id cache. Every command starts by building one.
type env struct {
	cfg     *config.Config
	manager *repo.Manager
	ids     *idmap.Cache
}

func loadEnv() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	manager, err := repo.NewManager(cfg.ParentDir)
	if err != nil {
		return nil, err
	}
	return &env{
		cfg:     cfg,
		manager: manager,
		ids:     idmap.Open(cfg.IDCacheFile()),
	}, nil
}

// resolveTask maps a display id, full UUID, or UUID prefix to a task.
func (e *env) resolveTask(ctx context.Context, ref, repoName string) (*task.Task, *repo.Repository, error) {
	id := e.ids.Resolve(ref)
	t, r, err := e.manager.FindTask(ctx, id, repoName)
	if err != nil {
		return nil, nil, err
	}
	if t != nil {
		return t, r, nil
	}

	// Fall back to a unique UUID prefix.
	var matches []*task.Task
	for _, cand := range e.manager.ListAllTasks(ctx, true) {
		if strings.HasPrefix(cand.ID, id) {
			matches = append(matches, cand)
		}
	}
	switch len(matches) {
	case 0:
		return nil, nil, fmt.Errorf("task not found: %s", ref)
	case 1:
		r, err := e.manager.Get(ctx, matches[0].Repo)
		if err != nil || r == nil {
			return nil, nil, fmt.Errorf("repository not found: %s", matches[0].Repo)
		}
		return matches[0], r, nil
	default:
		return nil, nil, fmt.Errorf("ambiguous task id %s matches %d tasks", ref, len(matches))
	}
}

// printTasks renders the task table and rebalances the display-id
// cache so the printed numbers resolve on the next command.
func (e *env) printTasks(tasks []*task.Task) {
	if len(tasks) == 0 {
		fmt.Println(faintStyle.Render("no tasks"))
		return
	}
	sorting.Sort(tasks, e.cfg.SortBy)

	fmt.Println(headStyle.Render(fmt.Sprintf("%-4s %-2s %-3s %-12s %-12s %-10s %s",
		"ID", "P", "St", "Repo", "Project", "Due", "Title")))
	for i, t := range tasks {
		due := ""
		if t.Due != nil {
			due = t.Due.Format("2006-01-02")
		}
		fmt.Printf("%-4d %-2s %-3s %-12s %-12s %-10s %s\n",
			i+1, t.Priority, statusAbbrev(t.Status), t.Repo, t.Project, due, t.Title)
	}

	e.ids.Rebalance(tasks)
	if err := e.ids.Save(); err != nil {
		fmt.Fprintln(os.Stderr, faintStyle.Render("warning: failed to save id cache: "+err.Error()))
	}
}

// refreshIDs reslots the display-id cache without renumbering tasks the
// user can still see. Called after single-task mutations.
func (e *env) refreshIDs(ctx context.Context) {
	e.ids.Update(e.manager.ListAllTasks(ctx, false))
	if err := e.ids.Save(); err != nil {
		fmt.Fprintln(os.Stderr, faintStyle.Render("warning: failed to save id cache: "+err.Error()))
	}
}

func statusAbbrev(status string) string {
	switch status {
	case task.StatusPending:
		return "·"
	case task.StatusInProgress:
		return ">"
	case task.StatusCompleted:
		return "✓"
	case task.StatusCancelled:
		return "✗"
	}
	return "?"
}

func ok(format string, args ...any) {
	fmt.Println(okStyle.Render("✓") + " " + fmt.Sprintf(format, args...))
}
