package cmd

import (
	"github.com/spf13/cobra"

	"github.com/imishinist/expctl/internal/experiment"
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize <plan>",
	Short: "Compare trained configurations along one axis",
	Long: `Compare the names of one axis matching --match while every combination
of the other axes is held fixed. Writes summary tables and box plots under
summary/ and per-trial overlay plots under trial<N>/.`,
	Args: cobra.ExactArgs(1),
	RunE: runSummarize,
}

func init() {
	rootCmd.AddCommand(summarizeCmd)

	summarizeCmd.Flags().String("by", string(experiment.ByModels), "Axis to compare: models, trainers, enhancers, losses")
	summarizeCmd.Flags().String("match", ".*", "Regular expression selecting the compared names")
	summarizeCmd.Flags().String("label", "", "Name standing for the selected names in output files (derived from --match when empty)")
	summarizeCmd.Flags().Int("trials", 0, "Number of trials the plan was run with (overrides the plan and EXPCTL_TRIALS)")
}

func runSummarize(cmd *cobra.Command, args []string) error {
	by, _ := cmd.Flags().GetString("by")
	match, _ := cmd.Flags().GetString("match")
	label, _ := cmd.Flags().GetString("label")
	trials, _ := cmd.Flags().GetInt("trials")

	kind, err := experiment.ParseAxisKind(by)
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	s, err := openExperiment(ctx, args[0], openOptions{trials: trials, reuse: true})
	if err != nil {
		return err
	}
	defer s.Close()

	return s.exp.Summarize(ctx, kind, match, label)
}
