package cli

import (
	"github.com/spf13/cobra"

	"github.com/paxcalpt/taskrepo/pkg/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Browse tasks interactively",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv()
		if err != nil {
			return err
		}
		return tui.Run(e.manager, e.cfg)
	},
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}
