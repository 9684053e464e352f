package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/paxcalpt/taskrepo/pkg/config"
	"github.com/paxcalpt/taskrepo/pkg/task"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the config file and tasks parent directory",
	RunE:  runInit,
}

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List tasks",
	RunE:    runList,
}

var infoCmd = &cobra.Command{
	Use:   "info <id>",
	Short: "Show every field of a task",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

var searchCmd = &cobra.Command{
	Use:   "search <text>...",
	Short: "Find tasks by title substring",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

var reposCmd = &cobra.Command{
	Use:   "repos",
	Short: "List task repositories",
	RunE:  runRepos,
}

var createRepoCmd = &cobra.Command{
	Use:   "create-repo <name>",
	Short: "Create a new task repository",
	Args:  cobra.ExactArgs(1),
	RunE:  runCreateRepo,
}

func init() {
	initCmd.Flags().String("parent-dir", "", "directory to hold the tasks-* repositories")

	listCmd.Flags().StringP("repo", "r", "", "only this repository")
	listCmd.Flags().Bool("all", false, "include archived tasks")
	listCmd.Flags().String("status", "", "only this status")
	listCmd.Flags().String("project", "", "only this project")
	listCmd.Flags().StringP("assignee", "a", "", "only tasks assigned to this handle")
	listCmd.Flags().StringP("tag", "t", "", "only tasks carrying this tag")

	infoCmd.Flags().String("repo", "", "repository to search in")

	createRepoCmd.Flags().String("remote", "", "git remote URL to add as origin")

	rootCmd.AddCommand(initCmd, listCmd, infoCmd, searchCmd, reposCmd, createRepoCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if parent, _ := cmd.Flags().GetString("parent-dir"); parent != "" {
		cfg.ParentDir = parent
	}
	if err := cfg.Save(); err != nil {
		return err
	}
	e, err := loadEnv()
	if err != nil {
		return err
	}
	ok("config written to %s", cfg.ConfigPath())
	ok("task repositories live under %s", e.cfg.ParentDir)
	fmt.Println(faintStyle.Render("next: tsk create-repo <name>, then tsk add"))
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	includeArchived, _ := cmd.Flags().GetBool("all")
	repoName, _ := cmd.Flags().GetString("repo")

	var tasks []*task.Task
	if repoName != "" {
		r, err := e.manager.Get(ctx, repoName)
		if err != nil {
			return err
		}
		if r == nil {
			return fmt.Errorf("repository not found: %s", repoName)
		}
		tasks = r.ListTasks(includeArchived)
	} else {
		tasks = e.manager.ListAllTasks(ctx, includeArchived)
	}

	status, _ := cmd.Flags().GetString("status")
	project, _ := cmd.Flags().GetString("project")
	assignee, _ := cmd.Flags().GetString("assignee")
	tag, _ := cmd.Flags().GetString("tag")
	tasks = filterTasks(tasks, status, project, assignee, tag)

	e.printTasks(tasks)
	return nil
}

func filterTasks(tasks []*task.Task, status, project, assignee, tag string) []*task.Task {
	var out []*task.Task
	for _, t := range tasks {
		if status != "" && t.Status != status {
			continue
		}
		if project != "" && t.Project != project {
			continue
		}
		if assignee != "" && !contains(t.Assignees, assignee) {
			continue
		}
		if tag != "" && !contains(t.Tags, tag) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

func runInfo(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	repoName, _ := cmd.Flags().GetString("repo")
	t, _, err := e.resolveTask(cmd.Context(), args[0], repoName)
	if err != nil {
		return err
	}

	fmt.Println(headStyle.Render(t.Title))
	fmt.Printf("ID:        %s\n", t.ID)
	fmt.Printf("Repo:      %s\n", t.Repo)
	fmt.Printf("Status:    %s\n", t.Status)
	fmt.Printf("Priority:  %s\n", t.Priority)
	if t.Project != "" {
		fmt.Printf("Project:   %s\n", t.Project)
	}
	if len(t.Assignees) > 0 {
		fmt.Printf("Assignees: %s\n", strings.Join(t.Assignees, ", "))
	}
	if len(t.Tags) > 0 {
		fmt.Printf("Tags:      %s\n", strings.Join(t.Tags, ", "))
	}
	if len(t.Links) > 0 {
		fmt.Printf("Links:     %s\n", strings.Join(t.Links, ", "))
	}
	if t.Due != nil {
		fmt.Printf("Due:       %s\n", t.Due.Format("2006-01-02 15:04"))
	}
	if t.Parent != "" {
		fmt.Printf("Parent:    %s\n", t.Parent)
	}
	if len(t.Depends) > 0 {
		fmt.Printf("Depends:   %s\n", strings.Join(t.Depends, ", "))
	}
	if t.Archived {
		fmt.Println("Archived:  yes")
	}
	fmt.Printf("Created:   %s\n", t.Created.Format("2006-01-02 15:04"))
	fmt.Printf("Modified:  %s\n", t.Modified.Format("2006-01-02 15:04"))
	if t.Description != "" {
		fmt.Printf("\n%s\n", t.Description)
	}

	subs := e.manager.Subtasks(cmd.Context(), t.ID)
	if len(subs) > 0 {
		fmt.Println("\nSubtasks:")
		for _, s := range subs {
			fmt.Printf("  %s %s\n", statusAbbrev(s.Status), s.Title)
		}
	}
	return nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	needle := strings.ToLower(strings.Join(args, " "))

	var matches []*task.Task
	for _, t := range e.manager.ListAllTasks(cmd.Context(), false) {
		if strings.Contains(strings.ToLower(t.Title), needle) {
			matches = append(matches, t)
		}
	}
	e.printTasks(matches)
	return nil
}

func runRepos(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	repos := e.manager.Discover(ctx)
	if len(repos) == 0 {
		fmt.Println(faintStyle.Render("no repositories under " + e.cfg.ParentDir))
		return nil
	}
	fmt.Println(headStyle.Render(fmt.Sprintf("%-16s %-6s %-8s %s", "Name", "Tasks", "Remote", "Path")))
	for _, r := range repos {
		remote := "-"
		if r.Git.HasRemote(ctx) {
			remote = "yes"
		}
		fmt.Printf("%-16s %-6d %-8s %s\n", r.Name, len(r.ListTasks(false)), remote, r.Path)
	}
	return nil
}

func runCreateRepo(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	r, err := e.manager.Create(ctx, args[0])
	if err != nil {
		return err
	}
	if remote, _ := cmd.Flags().GetString("remote"); remote != "" {
		if err := r.Git.AddRemote(ctx, "origin", remote); err != nil {
			return err
		}
		ok("created repository %s with origin %s", r.Name, remote)
		return nil
	}
	ok("created repository %s at %s", r.Name, r.Path)
	return nil
}
