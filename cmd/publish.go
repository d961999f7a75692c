package cmd

import (
	"github.com/spf13/cobra"
)

var publishCmd = &cobra.Command{
	Use:   "publish <plan>",
	Short: "Publish trained results to MLflow",
	Long: `Read back the per-trial and aggregate results of already trained
configurations and publish each as an MLflow run with its parameters,
metrics and report files.`,
	Args: cobra.ExactArgs(1),
	RunE: runPublish,
}

func init() {
	rootCmd.AddCommand(publishCmd)

	publishCmd.Flags().String("model", "", "Regular expression selecting models")
	publishCmd.Flags().String("trainer", "", "Regular expression selecting trainers")
	publishCmd.Flags().String("enhancer", "", "Regular expression selecting enhancers")
	publishCmd.Flags().String("loss", "", "Regular expression selecting losses")
	publishCmd.Flags().Int("trials", 0, "Number of trials the plan was run with (overrides the plan and EXPCTL_TRIALS)")
}

func runPublish(cmd *cobra.Command, args []string) error {
	trials, _ := cmd.Flags().GetInt("trials")

	ctx, stop := signalContext(cmd)
	defer stop()

	s, err := openExperiment(ctx, args[0], openOptions{trials: trials, track: true, reuse: true})
	if err != nil {
		return err
	}
	defer s.Close()

	sel, err := selection(cmd, s)
	if err != nil {
		return err
	}
	return s.exp.PublishSelection(ctx, sel)
}
