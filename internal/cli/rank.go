package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mnemo-ai/mnemod/internal/engine"
)

var (
	rankNamespace string
	rankLimit     int
	rankProfile   string
)

var rankCmd = &cobra.Command{
	Use:   "rank <query>",
	Short: "Rank memories by relevance to a query",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRank,
}

func init() {
	rankCmd.Flags().StringVarP(&rankNamespace, "namespace", "n", "", "namespace to search (default: user namespace)")
	rankCmd.Flags().IntVarP(&rankLimit, "limit", "l", 10, "max results")
	rankCmd.Flags().StringVar(&rankProfile, "profile", "", "scoring profile: base or feedback")
}

func runRank(cmd *cobra.Command, args []string) error {
	st, err := buildStack()
	if err != nil {
		return err
	}
	defer st.close()

	eng, err := st.engineFor(rankNamespace)
	if err != nil {
		return err
	}
	if rankProfile != "" {
		eng.Weights = engine.ProfileWeights(rankProfile)
	}

	query := strings.Join(args, " ")
	ranked, err := eng.Rank(context.Background(), query, rankLimit)
	if err != nil {
		return err
	}
	if len(ranked) == 0 {
		fmt.Println("no memories found")
		return nil
	}

	for i, r := range ranked {
		fmt.Printf("%2d. [%.3f] %s\n", i+1, r.Score, firstLine(r.Record.Content))
		fmt.Printf("    id=%s category=%s sem=%.2f rec=%.2f eff=%.2f\n",
			r.Record.ID, r.Record.Metadata.Category, r.Semantic, r.Recency, r.Effectiveness)
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 100 {
		s = s[:100] + "..."
	}
	return s
}
