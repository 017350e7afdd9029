package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "skillprobe",
	Short: "Adaptive skill assessment and learning recommendations",
	Long: "skillprobe runs computerized adaptive tests over a calibrated item bank, " +
		"tracks per-skill mastery and recommends learning content for the gaps it finds.",
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("db", "", "Database DSN or SQLite file path (overrides SKILLPROBE_DB)")
	pf.String("driver", "", "Database driver: sqlite or postgres (overrides SKILLPROBE_DB_DRIVER)")
	pf.String("log", "", "Log mode: dev, prod or quiet (overrides SKILLPROBE_LOG)")
	pf.String("env-file", ".env", "Optional dotenv file to load")

	rootCmd.AddCommand(itemsCmd)
	rootCmd.AddCommand(assessCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(progressCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}
