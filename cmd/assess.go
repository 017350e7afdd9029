package cmd

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/abhisek/skillprobe/internal/bankfile"
	"github.com/abhisek/skillprobe/internal/cat"
	"github.com/abhisek/skillprobe/internal/grader"
	"github.com/abhisek/skillprobe/internal/item"
	"github.com/abhisek/skillprobe/internal/llm"
	"github.com/abhisek/skillprobe/internal/mastery"
	"github.com/abhisek/skillprobe/internal/oracle"
	"github.com/abhisek/skillprobe/internal/pipeline"
	"github.com/abhisek/skillprobe/internal/recommend"
	"github.com/abhisek/skillprobe/internal/ui/quiz"
)

var assessCmd = &cobra.Command{
	Use:   "assess",
	Short: "Run an adaptive assessment and recommend learning content",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		flags := cmd.Flags()
		skill, _ := flags.GetString("skill")
		learner, _ := flags.GetString("learner")
		inputPath, _ := flags.GetString("input")
		question, _ := flags.GetString("question")
		seed, _ := flags.GetUint64("seed")
		simulate := flags.Changed("simulate-theta")
		simTheta, _ := flags.GetFloat64("simulate-theta")

		if learner == "" {
			learner = uuid.NewString()
			fmt.Fprintln(cmd.ErrOrStderr(), "Assigned learner id:", learner)
		}

		in := &bankfile.Input{}
		if inputPath != "" {
			var err error
			if in, err = bankfile.LoadInput(inputPath); err != nil {
				return err
			}
		}

		rt, err := openRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		catCfg := rt.cfg.CAT
		if flags.Changed("max-items") {
			catCfg.MaxItems, _ = flags.GetInt("max-items")
		}
		if flags.Changed("se-stop") {
			catCfg.SEStop, _ = flags.GetFloat64("se-stop")
		}

		bank, err := item.LoadBank(ctx, rt.store.Items(), skill)
		if err != nil {
			return err
		}
		if bank.Len() == 0 {
			return fmt.Errorf("no items for skill %q; import a bank first", skill)
		}
		p := pipeline.New(cat.NewEngine(bank, skill, catCfg), mastery.NewTracer(rt.cfg.BKT))

		var pin pipeline.Input
		in.Apply(&pin)

		if simulate {
			pin.Oracle = oracle.NewSimulated(simTheta, seed)
		} else {
			q := quiz.New(quiz.WithTotal(min(catCfg.MaxItems, bank.Len())), quiz.WithContext(ctx))
			pin.Oracle = q
			if pin.FreeText == "" && question != "" {
				if pin.FreeText, err = q.AskText(ctx, question); err != nil {
					return err
				}
			}
		}

		if rt.cfg.LLM.Enabled() && pin.FreeText != "" {
			provider, err := llm.NewProvider(ctx, rt.cfg.LLM, rt.store.Events(), rt.log)
			if err != nil {
				return fmt.Errorf("llm provider: %w", err)
			}
			rubric := pin.Rubric
			if rubric.Empty() {
				rubric = grader.DefaultRubric()
			}
			pin.Scorer = grader.NewLLMScorer(provider, rubric, pin.Reference, grader.DefaultScorerConfig())
		}

		prev, err := rt.store.Assessments().Latest(ctx, learner)
		if err != nil {
			return err
		}
		if prev != nil {
			pin.Mastery = prev.Mastery
			if prev.Skill == skill {
				start := cat.NewSession(prev.Theta)
				pin.Start = &start
			}
		}

		orch := recommend.New(p,
			recommend.WithLookup(rt.lookup(ctx)),
			recommend.WithProgressRecorder(rt.store.Progress()),
			recommend.WithLogger(rt.log),
			recommend.WithStrategy(rt.cfg.Lookup.Strategy),
			recommend.WithTopK(rt.cfg.Lookup.TopK),
		)

		profile := in.Profile(learner)
		bundle, err := orch.RunAssessmentAndRecommend(ctx, learner, pin, &profile)
		if errors.Is(err, quiz.ErrAborted) {
			fmt.Fprintln(cmd.ErrOrStderr(), "Assessment aborted; nothing saved.")
			return nil
		}
		if err != nil {
			return err
		}

		saved, err := rt.store.Assessments().Save(ctx, skill, bundle)
		if err != nil {
			return err
		}
		rt.log.Info("assessment saved", "id", saved.ID, "learner", learner, "skill", skill)

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(bundle)
	},
}

func init() {
	f := assessCmd.Flags()
	f.String("skill", "", "Skill to assess (required)")
	f.String("learner", "", "Learner id (a new one is generated when empty)")
	f.String("input", "", "Assessment input file: free text, self assessment, concept map, profile")
	f.String("question", "", "Free-text question to ask when the input file has no answer")
	f.Float64("simulate-theta", 0, "Answer with a simulated learner of this ability instead of the terminal")
	f.Uint64("seed", 1, "Random seed for the simulated learner")
	f.Int("max-items", 0, "Override the maximum test length")
	f.Float64("se-stop", 0, "Override the standard error stopping threshold")
	_ = assessCmd.MarkFlagRequired("skill")
}
