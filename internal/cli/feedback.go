package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mnemo-ai/mnemod/internal/store"
)

var (
	feedbackNamespace string
	feedbackConvID    string
	feedbackCompleted bool
	feedbackText      string
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "Record memory usage and ratings",
}

var feedbackUsageCmd = &cobra.Command{
	Use:   "usage <memory-id>...",
	Short: "Record that a batch of memories was used together",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runFeedbackUsage,
}

var feedbackRateCmd = &cobra.Command{
	Use:   "rate <event-id> <positive|negative|neutral>",
	Short: "Rate a recorded usage event",
	Args:  cobra.ExactArgs(2),
	RunE:  runFeedbackRate,
}

func init() {
	feedbackCmd.PersistentFlags().StringVarP(&feedbackNamespace, "namespace", "n", "", "namespace (default: user namespace)")
	feedbackUsageCmd.Flags().StringVar(&feedbackConvID, "conversation", "", "conversation id")
	feedbackRateCmd.Flags().BoolVar(&feedbackCompleted, "completed", false, "the task was completed")
	feedbackRateCmd.Flags().StringVar(&feedbackText, "text", "", "free-text feedback")

	feedbackCmd.AddCommand(feedbackUsageCmd)
	feedbackCmd.AddCommand(feedbackRateCmd)
}

func runFeedbackUsage(cmd *cobra.Command, args []string) error {
	st, err := buildStack()
	if err != nil {
		return err
	}
	defer st.close()

	eng, err := st.engineFor(feedbackNamespace)
	if err != nil {
		return err
	}

	eventID, err := eng.RecordUsage(context.Background(), args, feedbackConvID)
	if err != nil {
		return err
	}
	fmt.Printf("event %s (%d memories)\n", eventID, len(args))
	return nil
}

func runFeedbackRate(cmd *cobra.Command, args []string) error {
	st, err := buildStack()
	if err != nil {
		return err
	}
	defer st.close()

	eng, err := st.engineFor(feedbackNamespace)
	if err != nil {
		return err
	}

	err = eng.RecordFeedback(context.Background(), args[0], store.ParseRating(args[1]), feedbackCompleted, feedbackText)
	if err != nil {
		return err
	}
	fmt.Println("feedback recorded")
	return nil
}
