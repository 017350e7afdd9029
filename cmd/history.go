package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/skillprobe/internal/mastery"
	"github.com/abhisek/skillprobe/internal/store"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show a learner's past assessments",
	RunE: func(cmd *cobra.Command, args []string) error {
		learner, _ := cmd.Flags().GetString("learner")
		limit, _ := cmd.Flags().GetInt("limit")

		rt, err := openRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		list, err := rt.store.Assessments().List(cmd.Context(), learner, limit)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(list) == 0 {
			fmt.Fprintf(out, "No assessments for %s.\n", learner)
			return nil
		}

		fmt.Fprintf(out, "%-19s  %-16s  %7s  %6s  %7s  %-10s  %4s  %s\n",
			"Time", "Skill", "Theta", "SE", "Overall", "Level", "Gaps", "Next")
		fmt.Fprintln(out, strings.Repeat("─", 96))
		for _, a := range list {
			se := "-"
			if a.Session.Estimable() {
				se = fmt.Sprintf("%.3f", a.SE)
			}
			fmt.Fprintf(out, "%-19s  %-16s  %7.3f  %6s  %7.3f  %-10s  %4d  %s\n",
				a.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				truncate(a.Skill, 16),
				a.Theta,
				se,
				a.Overall,
				masteryLevel(a),
				len(a.Bundle.Gaps),
				a.Bundle.NextAssessment,
			)
		}
		return nil
	},
}

// masteryLevel labels the assessed skill's mastery, or "-" when the
// assessment recorded none for it.
func masteryLevel(a store.Assessment) string {
	p, ok := a.Mastery[a.Skill]
	if !ok {
		return "-"
	}
	return string(mastery.LevelOf(p))
}

func init() {
	historyCmd.Flags().String("learner", "", "Learner id (required)")
	historyCmd.Flags().Int("limit", 20, "Maximum number of assessments to show (0 for all)")
	_ = historyCmd.MarkFlagRequired("learner")
}
