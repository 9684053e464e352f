package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/paxcalpt/taskrepo/pkg/task"
)

var addCmd = &cobra.Command{
	Use:   "add <title>...",
	Short: "Add a new task",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAdd,
}

var editCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Edit task fields",
	Args:  cobra.ExactArgs(1),
	RunE:  runEdit,
}

var delCmd = &cobra.Command{
	Use:   "del <id>",
	Short: "Delete a task",
	Args:  cobra.ExactArgs(1),
	RunE:  runDel,
}

var archiveCmd = &cobra.Command{
	Use:   "archive <id>",
	Short: "Archive a task, hiding it from listings",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setArchived(cmd, args[0], true) },
}

var unarchiveCmd = &cobra.Command{
	Use:   "unarchive <id>",
	Short: "Bring an archived task back",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setArchived(cmd, args[0], false) },
}

var moveCmd = &cobra.Command{
	Use:   "move <id> <repo>",
	Short: "Move a task to another repository",
	Args:  cobra.ExactArgs(2),
	RunE:  runMove,
}

var extCmd = &cobra.Command{
	Use:   "ext <id> <by>",
	Short: "Push a task's due date (e.g. 3d, 1w, 4h)",
	Args:  cobra.ExactArgs(2),
	RunE:  runExt,
}

func init() {
	addCmd.Flags().StringP("repo", "r", "", "repository to add the task to")
	addCmd.Flags().StringP("priority", "p", task.PriorityMedium, "priority (H, M, L)")
	addCmd.Flags().String("project", "", "project name")
	addCmd.Flags().StringSliceP("assignee", "a", nil, "assignees (@handle)")
	addCmd.Flags().StringSliceP("tag", "t", nil, "tags")
	addCmd.Flags().StringSlice("link", nil, "related URLs")
	addCmd.Flags().StringP("due", "d", "", "due date (2006-01-02 or 2006-01-02 15:04)")
	addCmd.Flags().String("parent", "", "parent task id")
	addCmd.Flags().StringSlice("depends", nil, "task ids this task depends on")
	addCmd.Flags().String("description", "", "task description")

	editCmd.Flags().String("title", "", "new title")
	editCmd.Flags().String("status", "", "new status")
	editCmd.Flags().StringP("priority", "p", "", "new priority (H, M, L)")
	editCmd.Flags().String("project", "", "new project")
	editCmd.Flags().StringSliceP("assignee", "a", nil, "replace assignees")
	editCmd.Flags().StringSliceP("tag", "t", nil, "replace tags")
	editCmd.Flags().StringSlice("link", nil, "replace links")
	editCmd.Flags().StringP("due", "d", "", "new due date (or 'none' to clear)")
	editCmd.Flags().String("description", "", "new description")

	delCmd.Flags().String("repo", "", "repository to search in")
	moveCmd.Flags().String("repo", "", "repository to search in")
	extCmd.Flags().String("repo", "", "repository to search in")
	archiveCmd.Flags().String("repo", "", "repository to search in")
	unarchiveCmd.Flags().String("repo", "", "repository to search in")

	rootCmd.AddCommand(addCmd, editCmd, delCmd, archiveCmd, unarchiveCmd, moveCmd, extCmd)
	addStatusCommands()
}

// Status shortcuts share one implementation.
func addStatusCommands() {
	for _, sc := range []struct {
		use, short, status string
	}{
		{"done", "Mark a task completed", task.StatusCompleted},
		{"in-progress", "Mark a task in progress", task.StatusInProgress},
		{"cancelled", "Mark a task cancelled", task.StatusCancelled},
	} {
		status := sc.status
		cmd := &cobra.Command{
			Use:   sc.use + " <id>",
			Short: sc.short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return setStatus(cmd, args[0], status)
			},
		}
		cmd.Flags().String("repo", "", "repository to search in")
		rootCmd.AddCommand(cmd)
	}
}

func runAdd(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	repoName, _ := cmd.Flags().GetString("repo")
	if repoName == "" {
		repoName = e.cfg.DefaultRepo
	}
	if repoName == "" {
		return fmt.Errorf("no repository given and no default_repo configured")
	}
	r, err := e.manager.Get(ctx, repoName)
	if err != nil {
		return err
	}
	if r == nil {
		return fmt.Errorf("repository not found: %s (create it with 'tsk create-repo %s')", repoName, repoName)
	}

	t := task.New(strings.Join(args, " "))
	t.Priority, _ = cmd.Flags().GetString("priority")
	t.Project, _ = cmd.Flags().GetString("project")
	t.Assignees, _ = cmd.Flags().GetStringSlice("assignee")
	t.Tags, _ = cmd.Flags().GetStringSlice("tag")
	t.Links, _ = cmd.Flags().GetStringSlice("link")
	t.Parent, _ = cmd.Flags().GetString("parent")
	t.Depends, _ = cmd.Flags().GetStringSlice("depends")
	t.Description, _ = cmd.Flags().GetString("description")
	if !validPriority(t.Priority) {
		return fmt.Errorf("invalid priority %q: must be H, M, or L", t.Priority)
	}
	if due, _ := cmd.Flags().GetString("due"); due != "" {
		d, err := parseDue(due)
		if err != nil {
			return err
		}
		t.Due = d
	}
	if t.Parent != "" {
		parent, _, err := e.resolveTask(ctx, t.Parent, "")
		if err != nil {
			return fmt.Errorf("parent task: %w", err)
		}
		t.Parent = parent.ID
	}

	if _, err := r.SaveTask(t); err != nil {
		return err
	}
	e.refreshIDs(ctx)
	ok("added task %s to %s (id %d)", t.Title, r.Name, e.ids.DisplayID(t.ID))
	return nil
}

func runEdit(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	t, r, err := e.resolveTask(ctx, args[0], "")
	if err != nil {
		return err
	}

	changed := false
	setString := func(flag string, dst *string, validate func(string) error) error {
		if !cmd.Flags().Changed(flag) {
			return nil
		}
		v, _ := cmd.Flags().GetString(flag)
		if validate != nil {
			if err := validate(v); err != nil {
				return err
			}
		}
		*dst = v
		changed = true
		return nil
	}

	if err := setString("title", &t.Title, func(v string) error {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("title cannot be empty")
		}
		return nil
	}); err != nil {
		return err
	}
	if err := setString("status", &t.Status, func(v string) error {
		switch v {
		case task.StatusPending, task.StatusInProgress, task.StatusCompleted, task.StatusCancelled:
			return nil
		}
		return fmt.Errorf("invalid status %q", v)
	}); err != nil {
		return err
	}
	if err := setString("priority", &t.Priority, func(v string) error {
		if !validPriority(v) {
			return fmt.Errorf("invalid priority %q: must be H, M, or L", v)
		}
		return nil
	}); err != nil {
		return err
	}
	if err := setString("project", &t.Project, nil); err != nil {
		return err
	}
	if err := setString("description", &t.Description, nil); err != nil {
		return err
	}
	for flag, dst := range map[string]*[]string{
		"assignee": &t.Assignees,
		"tag":      &t.Tags,
		"link":     &t.Links,
	} {
		if cmd.Flags().Changed(flag) {
			v, _ := cmd.Flags().GetStringSlice(flag)
			*dst = v
			changed = true
		}
	}
	if cmd.Flags().Changed("due") {
		v, _ := cmd.Flags().GetString("due")
		if v == "none" {
			t.Due = nil
		} else {
			d, err := parseDue(v)
			if err != nil {
				return err
			}
			t.Due = d
		}
		changed = true
	}

	if !changed {
		return fmt.Errorf("nothing to change, pass at least one field flag")
	}
	t.Touch()
	if _, err := r.SaveTask(t); err != nil {
		return err
	}
	ok("updated %s", t.Title)
	return nil
}

func setStatus(cmd *cobra.Command, ref, status string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	repoName, _ := cmd.Flags().GetString("repo")
	t, r, err := e.resolveTask(ctx, ref, repoName)
	if err != nil {
		return err
	}
	t.Status = status
	t.Touch()
	if _, err := r.SaveTask(t); err != nil {
		return err
	}
	e.refreshIDs(ctx)
	ok("%s → %s", t.Title, status)
	return nil
}

func setArchived(cmd *cobra.Command, ref string, archived bool) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	repoName, _ := cmd.Flags().GetString("repo")
	t, r, err := e.resolveTask(ctx, ref, repoName)
	if err != nil {
		return err
	}
	t.Archived = archived
	t.Touch()
	if _, err := r.SaveTask(t); err != nil {
		return err
	}
	e.refreshIDs(ctx)
	if archived {
		ok("archived %s", t.Title)
	} else {
		ok("unarchived %s", t.Title)
	}
	return nil
}

func runDel(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	repoName, _ := cmd.Flags().GetString("repo")
	t, r, err := e.resolveTask(ctx, args[0], repoName)
	if err != nil {
		return err
	}
	if err := r.DeleteTask(t.ID); err != nil {
		return err
	}
	e.refreshIDs(ctx)
	ok("deleted %s", t.Title)
	return nil
}

func runMove(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	repoName, _ := cmd.Flags().GetString("repo")
	t, from, err := e.resolveTask(ctx, args[0], repoName)
	if err != nil {
		return err
	}
	to, err := e.manager.Get(ctx, args[1])
	if err != nil {
		return err
	}
	if to == nil {
		return fmt.Errorf("repository not found: %s", args[1])
	}
	if from.Name == to.Name {
		return fmt.Errorf("task is already in %s", to.Name)
	}

	t.Touch()
	if _, err := to.SaveTask(t); err != nil {
		return err
	}
	if err := from.DeleteTask(t.ID); err != nil {
		return err
	}
	e.refreshIDs(ctx)
	ok("moved %s from %s to %s", t.Title, from.Name, to.Name)
	return nil
}

func runExt(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	repoName, _ := cmd.Flags().GetString("repo")
	t, r, err := e.resolveTask(ctx, args[0], repoName)
	if err != nil {
		return err
	}
	if t.Due == nil {
		return fmt.Errorf("task %s has no due date to extend", t.Title)
	}
	d, err := parseExtension(args[1])
	if err != nil {
		return err
	}
	due := t.Due.Add(d)
	t.Due = &due
	t.Touch()
	if _, err := r.SaveTask(t); err != nil {
		return err
	}
	ok("%s now due %s", t.Title, due.Format("2006-01-02 15:04"))
	return nil
}

func validPriority(p string) bool {
	return p == task.PriorityHigh || p == task.PriorityMedium || p == task.PriorityLow
}

// parseDue accepts a date, a date with time, or full RFC 3339.
func parseDue(s string) (*time.Time, error) {
	for _, layout := range []string{"2006-01-02", "2006-01-02 15:04", time.RFC3339} {
		if d, err := time.Parse(layout, s); err == nil {
			d = d.UTC()
			return &d, nil
		}
	}
	return nil, fmt.Errorf("invalid due date %q (want 2006-01-02, 2006-01-02 15:04, or RFC 3339)", s)
}

// parseExtension understands 4h, 3d, 1w, and plain day counts.
func parseExtension(s string) (time.Duration, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * 24 * time.Hour, nil
	}
	if len(s) > 1 {
		n, err := strconv.Atoi(s[:len(s)-1])
		if err == nil {
			switch s[len(s)-1] {
			case 'h':
				return time.Duration(n) * time.Hour, nil
			case 'd':
				return time.Duration(n) * 24 * time.Hour, nil
			case 'w':
				return time.Duration(n) * 7 * 24 * time.Hour, nil
			}
		}
	}
	return 0, fmt.Errorf("invalid extension %q (want e.g. 4h, 3d, 1w)", s)
}
