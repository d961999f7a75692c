package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <plan>",
	Short: "Train every configuration of a plan",
	Long: `Register the task and configurations of a plan and train each selected
model, trainer, enhancer and loss combination for every trial.
Patterns given with --model, --trainer, --enhancer and --loss restrict
the combinations to the names they match.`,
	Args: cobra.ExactArgs(1),
	RunE: runTrain,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("model", "", "Regular expression selecting models")
	runCmd.Flags().String("trainer", "", "Regular expression selecting trainers")
	runCmd.Flags().String("enhancer", "", "Regular expression selecting enhancers")
	runCmd.Flags().String("loss", "", "Regular expression selecting losses")
	runCmd.Flags().Int("trials", 0, "Number of trials (overrides the plan and EXPCTL_TRIALS)")
	runCmd.Flags().Bool("track", false, "Publish aggregate results to MLflow")
}

// signalContext is cancelled on Ctrl-C so the running tool is killed.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}

func runTrain(cmd *cobra.Command, args []string) error {
	trials, _ := cmd.Flags().GetInt("trials")
	track, _ := cmd.Flags().GetBool("track")

	ctx, stop := signalContext(cmd)
	defer stop()

	s, err := openExperiment(ctx, args[0], openOptions{trials: trials, track: track})
	if err != nil {
		return err
	}
	defer s.Close()

	sel, err := selection(cmd, s)
	if err != nil {
		return err
	}
	return s.exp.TrainSelection(ctx, sel)
}
