package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/skillprobe/internal/bankfile"
	"github.com/abhisek/skillprobe/internal/item"
)

var itemsCmd = &cobra.Command{
	Use:   "items",
	Short: "Manage the item bank and content catalog",
}

var itemsImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import items and content from a YAML or JSON bank file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bank, err := bankfile.Load(args[0])
		if err != nil {
			return err
		}

		rt, err := openRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		ctx := cmd.Context()
		if err := rt.store.Items().Upsert(ctx, bank.Items...); err != nil {
			return fmt.Errorf("import items: %w", err)
		}
		if err := rt.store.Catalog().Upsert(ctx, bank.Content...); err != nil {
			return fmt.Errorf("import content: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Imported %d items and %d content entries.\n", len(bank.Items), len(bank.Content))
		if bank.Rubric != nil {
			fmt.Fprintln(out, "Note: rubrics are per assessment; pass them in the --input file.")
		}
		return nil
	},
}

var itemsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List items in the bank",
	RunE: func(cmd *cobra.Command, args []string) error {
		skill, _ := cmd.Flags().GetString("skill")

		rt, err := openRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		ctx := cmd.Context()
		var items []item.Item
		if skill != "" {
			items, err = rt.store.Items().LoadItems(ctx, skill)
		} else {
			items, err = rt.store.Items().All(ctx)
		}
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(items) == 0 {
			fmt.Fprintln(out, "No items found.")
			return nil
		}

		fmt.Fprintf(out, "%-16s  %-16s  %6s  %6s  %-7s  %s\n", "ID", "Skill", "a", "b", "Choices", "Prompt")
		fmt.Fprintln(out, strings.Repeat("─", 80))
		for _, it := range items {
			fmt.Fprintf(out, "%-16s  %-16s  %6.2f  %6.2f  %-7d  %s\n",
				truncate(it.ID, 16), truncate(it.Skill, 16), it.A, it.B, len(it.Choices), truncate(it.Prompt, 40))
		}
		return nil
	},
}

func init() {
	itemsListCmd.Flags().String("skill", "", "Only list items for this skill")

	itemsCmd.AddCommand(itemsImportCmd)
	itemsCmd.AddCommand(itemsListCmd)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
