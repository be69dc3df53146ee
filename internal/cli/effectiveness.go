package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mnemo-ai/mnemod/internal/store"
)

var (
	effectivenessNamespace string
	effectivenessLimit     int
	effectivenessWorst     bool
)

var effectivenessCmd = &cobra.Command{
	Use:   "effectiveness",
	Short: "Show the best or worst performing memories",
	RunE:  runEffectiveness,
}

func init() {
	effectivenessCmd.Flags().StringVarP(&effectivenessNamespace, "namespace", "n", "", "namespace (default: user namespace)")
	effectivenessCmd.Flags().IntVarP(&effectivenessLimit, "limit", "l", 10, "max rows")
	effectivenessCmd.Flags().BoolVar(&effectivenessWorst, "worst", false, "show well-sampled underperformers instead")
}

func runEffectiveness(cmd *cobra.Command, args []string) error {
	st, err := buildStack()
	if err != nil {
		return err
	}
	defer st.close()

	eng, err := st.engineFor(effectivenessNamespace)
	if err != nil {
		return err
	}

	var rows []store.Effectiveness
	if effectivenessWorst {
		rows, err = eng.LeastEffective(effectivenessLimit)
	} else {
		rows, err = eng.MostEffective(effectivenessLimit)
	}
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Println("no tracked memories meet the sample threshold")
		return nil
	}

	for _, row := range rows {
		fmt.Printf("%.3f  retrieved=%-3d helpful=%-3d unhelpful=%-3d  %s\n",
			row.EffectivenessScore, row.TimesRetrieved, row.TimesHelpful, row.TimesUnhelpful, row.MemoryID)
	}
	return nil
}
