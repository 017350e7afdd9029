package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/skillprobe/internal/recommend"
)

var progressCmd = &cobra.Command{
	Use:   "progress",
	Short: "Record finished learning content, or list it",
	RunE: func(cmd *cobra.Command, args []string) error {
		learner, _ := cmd.Flags().GetString("learner")
		content, _ := cmd.Flags().GetStringSlice("content")
		minutes, _ := cmd.Flags().GetInt("minutes")

		rt, err := openRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		if len(content) > 0 {
			orch := recommend.New(nil,
				recommend.WithProgressRecorder(rt.store.Progress()),
				recommend.WithLogger(rt.log),
			)
			rec, err := orch.UpdateAfterLearning(ctx, learner, content, time.Duration(minutes)*time.Minute)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Recorded %d item(s) for %s. Run `skillprobe assess` to update mastery.\n",
				len(rec.ContentIDs), learner)
			return nil
		}

		records, err := rt.store.Progress().List(ctx, learner)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Fprintf(out, "No progress recorded for %s.\n", learner)
			return nil
		}
		for _, r := range records {
			fmt.Fprintf(out, "%s  %4.0f min  %s\n",
				r.RecordedAt.Local().Format("2006-01-02 15:04"),
				r.Elapsed.Minutes(),
				strings.Join(r.ContentIDs, ", "))
		}
		return nil
	},
}

func init() {
	progressCmd.Flags().String("learner", "", "Learner id (required)")
	progressCmd.Flags().StringSlice("content", nil, "Comma-separated content ids the learner finished")
	progressCmd.Flags().Int("minutes", 0, "Time spent, in minutes")
	_ = progressCmd.MarkFlagRequired("learner")
}
