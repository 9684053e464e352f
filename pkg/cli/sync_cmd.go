package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/paxcalpt/taskrepo/pkg/gcal"
	"github.com/paxcalpt/taskrepo/pkg/repo"
	"github.com/paxcalpt/taskrepo/pkg/sync"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Commit, pull, resolve conflicts, and push",
	Long: `Sync commits local changes, pulls from the remote, resolves task
conflicts according to the configured strategy, and pushes the result.
When calendar mirroring is enabled, due tasks are synced to Google
Calendar afterwards.`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().StringP("repo", "r", "", "only this repository")
	syncCmd.Flags().StringP("strategy", "s", "", "conflict strategy: auto, local, remote, interactive")
	syncCmd.Flags().Bool("no-push", false, "skip pushing after the merge")
	syncCmd.Flags().Bool("no-calendar", false, "skip the calendar mirror even when enabled")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	strategyName, _ := cmd.Flags().GetString("strategy")
	if strategyName == "" {
		strategyName = e.cfg.ConflictStrategy
	}
	strategy, err := sync.ParseStrategy(strategyName)
	if err != nil {
		return err
	}
	noPush, _ := cmd.Flags().GetBool("no-push")

	var repos []*repo.Repository
	if repoName, _ := cmd.Flags().GetString("repo"); repoName != "" {
		r, err := e.manager.Get(ctx, repoName)
		if err != nil {
			return err
		}
		if r == nil {
			return fmt.Errorf("repository not found: %s", repoName)
		}
		repos = []*repo.Repository{r}
	} else {
		repos = e.manager.Discover(ctx)
	}
	if len(repos) == 0 {
		return fmt.Errorf("no repositories to sync under %s", e.cfg.ParentDir)
	}

	s := &sync.Syncer{
		Strategy: strategy,
		Resolver: &sync.PromptResolver{In: os.Stdin, Out: os.Stdout},
		Push:     !noPush,
	}

	failed := 0
	for _, r := range repos {
		report, err := s.SyncRepository(ctx, r)
		if err != nil {
			fmt.Println(failStyle.Render("✗") + " " + r.Name + ": " + err.Error())
			failed++
			continue
		}
		line := fmt.Sprintf("%s synced", r.Name)
		if report.Conflicts > 0 {
			line += fmt.Sprintf(", %d conflicts resolved", report.Resolved)
		}
		if report.MarkersFixed > 0 {
			line += fmt.Sprintf(", %d conflicted files recovered", report.MarkersFixed)
		}
		if report.Skipped > 0 {
			line += fmt.Sprintf(", %d unparseable files skipped", report.Skipped)
		}
		if report.Pushed {
			line += ", pushed"
		}
		ok("%s", line)
	}

	e.refreshIDs(ctx)

	noCalendar, _ := cmd.Flags().GetBool("no-calendar")
	if e.cfg.Calendar.Enabled && !noCalendar {
		if err := syncCalendar(cmd, e); err != nil {
			fmt.Println(failStyle.Render("✗") + " calendar: " + err.Error())
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d repositories failed to sync", failed, len(repos))
	}
	return nil
}

func syncCalendar(cmd *cobra.Command, e *env) error {
	ctx := cmd.Context()
	client, err := gcal.NewClient(ctx, e.cfg, e.cfg.Calendar.CalendarID)
	if err != nil {
		return err
	}
	stats, err := client.SyncAll(e.manager.ListAllTasks(ctx, true))
	if err != nil {
		return err
	}
	ok("calendar: %d created, %d updated, %d deleted", stats.Created, stats.Updated, stats.Deleted)
	for _, msg := range stats.Errors {
		fmt.Println(failStyle.Render("✗") + " calendar: " + msg)
	}
	if len(stats.Errors) > 0 {
		return fmt.Errorf("%d events failed to sync", len(stats.Errors))
	}
	return nil
}
