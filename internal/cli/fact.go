package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mnemo-ai/mnemod/internal/engine"
	"github.com/mnemo-ai/mnemod/internal/memstore"
)

var (
	factNamespace string
	factCategory  string
	factEntity    string
	factKey       string
)

var factCmd = &cobra.Command{
	Use:   "fact",
	Short: "Manage facts that change over time",
}

var factSetCmd = &cobra.Command{
	Use:   "set <content>",
	Short: "Write a fact, superseding any current value for the same key",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runFactSet,
}

var factCurrentCmd = &cobra.Command{
	Use:   "current <query>",
	Short: "Show the current value of a fact",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runFactCurrent,
}

var factHistoryCmd = &cobra.Command{
	Use:   "history <query>",
	Short: "Show how a fact changed over time",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runFactHistory,
}

func init() {
	factCmd.PersistentFlags().StringVarP(&factNamespace, "namespace", "n", "", "namespace (default: user namespace)")
	factCmd.PersistentFlags().StringVarP(&factCategory, "category", "c", "", "fact category")
	factSetCmd.Flags().StringVarP(&factEntity, "entity", "e", "", "entity the fact is about")
	factSetCmd.Flags().StringVarP(&factKey, "key", "k", "", "fact key used to find the superseded record")

	factCmd.AddCommand(factSetCmd)
	factCmd.AddCommand(factCurrentCmd)
	factCmd.AddCommand(factHistoryCmd)
}

func runFactSet(cmd *cobra.Command, args []string) error {
	st, err := buildStack()
	if err != nil {
		return err
	}
	defer st.close()

	eng, err := st.engineFor(factNamespace)
	if err != nil {
		return err
	}

	result, err := eng.UpsertFact(context.Background(), engine.FactInput{
		Content:  strings.Join(args, " "),
		Category: memstore.NormalizeCategory(factCategory),
		Entity:   factEntity,
		FactKey:  factKey,
	})
	if err != nil {
		return err
	}

	fmt.Printf("stored %s\n", result.NewID)
	if result.SupersededID != "" {
		fmt.Printf("supersedes %s\n", result.SupersededID)
	}
	return nil
}

func runFactCurrent(cmd *cobra.Command, args []string) error {
	st, err := buildStack()
	if err != nil {
		return err
	}
	defer st.close()

	eng, err := st.engineFor(factNamespace)
	if err != nil {
		return err
	}

	var category memstore.Category
	if factCategory != "" {
		category = memstore.NormalizeCategory(factCategory)
	}

	rec, err := eng.CurrentFact(context.Background(), strings.Join(args, " "), category)
	if err != nil {
		return err
	}
	if rec == nil {
		fmt.Println("no current fact")
		return nil
	}

	fmt.Printf("%s\n", rec.Content)
	fmt.Printf("  id=%s category=%s valid from %s\n",
		rec.ID, rec.Metadata.Category, rec.EffectiveValidFrom().Format("2006-01-02 15:04"))
	return nil
}

func runFactHistory(cmd *cobra.Command, args []string) error {
	st, err := buildStack()
	if err != nil {
		return err
	}
	defer st.close()

	eng, err := st.engineFor(factNamespace)
	if err != nil {
		return err
	}

	var category memstore.Category
	if factCategory != "" {
		category = memstore.NormalizeCategory(factCategory)
	}

	history, err := eng.FactHistory(context.Background(), strings.Join(args, " "), category)
	if err != nil {
		return err
	}
	if len(history) == 0 {
		fmt.Println("no history")
		return nil
	}

	for _, rec := range history {
		marker := " "
		if rec.Metadata.Current() {
			marker = "*"
		}
		fmt.Printf("%s %s  %s\n", marker, rec.EffectiveValidFrom().Format("2006-01-02 15:04"), firstLine(rec.Content))
	}
	return nil
}
