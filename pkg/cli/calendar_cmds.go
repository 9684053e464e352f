package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/paxcalpt/taskrepo/pkg/gcal"
)

var calendarSetupCmd = &cobra.Command{
	Use:   "calendar-setup",
	Short: "Authorize Google Calendar access",
	Long: `Runs the OAuth browser flow and stores the token. Download an OAuth
client credentials file from the Google Cloud console and place it at
the path printed by this command before running it.`,
	RunE: runCalendarSetup,
}

var calendarClearCmd = &cobra.Command{
	Use:   "calendar-clear",
	Short: "Delete every calendar event created by tsk",
	RunE:  runCalendarClear,
}

func init() {
	rootCmd.AddCommand(calendarSetupCmd, calendarClearCmd)
}

func runCalendarSetup(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	fmt.Printf("Using credentials file: %s\n", e.cfg.CredentialsFile())
	if err := gcal.Authenticate(ctx, e.cfg); err != nil {
		return err
	}

	client, err := gcal.NewClient(ctx, e.cfg, e.cfg.Calendar.CalendarID)
	if err != nil {
		return err
	}
	calendars, err := client.ListCalendars()
	if err != nil {
		return err
	}
	ok("authenticated, %d calendars visible:", len(calendars))
	for _, c := range calendars {
		fmt.Println("  " + c)
	}

	if !e.cfg.Calendar.Enabled {
		e.cfg.Calendar.Enabled = true
		if err := e.cfg.Save(); err != nil {
			return err
		}
		ok("calendar mirroring enabled (calendar %s)", e.cfg.Calendar.CalendarID)
	}
	return nil
}

func runCalendarClear(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	client, err := gcal.NewClient(cmd.Context(), e.cfg, e.cfg.Calendar.CalendarID)
	if err != nil {
		return err
	}
	deleted, errs := client.ClearAll()
	ok("deleted %d events", deleted)
	for _, msg := range errs {
		fmt.Println(failStyle.Render("✗") + " " + msg)
	}
	if len(errs) > 0 {
		return fmt.Errorf("%d events could not be deleted", len(errs))
	}
	return nil
}
