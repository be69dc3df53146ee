package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var failuresReplay bool

var failuresCmd = &cobra.Command{
	Use:   "failures",
	Short: "Inspect or replay queued remote-call failures",
	RunE:  runFailures,
}

func init() {
	failuresCmd.Flags().BoolVar(&failuresReplay, "replay", false, "re-attempt every queued failure")
}

func runFailures(cmd *cobra.Command, args []string) error {
	st, err := buildStack()
	if err != nil {
		return err
	}
	defer st.close()

	if failuresReplay {
		replayed := st.mem.Replay(context.Background())
		fmt.Printf("replayed %d, %d remaining\n", replayed, st.mem.Queue().Len())
		return nil
	}

	failed := st.mem.Queue().Failed()
	if len(failed) == 0 {
		fmt.Println("no queued failures")
		return nil
	}
	for _, op := range failed {
		fmt.Printf("%s  %-6s %s  %s\n", op.Timestamp.Format("2006-01-02 15:04:05"), op.Kind, op.Namespace, op.Err)
	}
	return nil
}
