package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/imishinist/expctl/internal/plotter"
)

var plotCmd = &cobra.Command{
	Use:   "plot",
	Short: "Render training histories and results as PDF",
}

var plotTrialCmd = &cobra.Command{
	Use:   "trial <state> <out.pdf>",
	Short: "Plot the loss and error history of one trial",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return plotter.PDF{}.PlotTrial(args[0], args[1])
	},
}

var plotTrialsCmd = &cobra.Command{
	Use:   "trials <out.pdf> <state>...",
	Short: "Overlay the histories of several trials",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return plotter.PDF{}.PlotTrials(args[1:], args[0])
	},
}

var plotConfigsCmd = &cobra.Command{
	Use:   "configs <out.pdf> <name=csv>...",
	Short: "Box-plot the per-trial results of several configurations",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runPlotConfigs,
}

func init() {
	rootCmd.AddCommand(plotCmd)
	plotCmd.AddCommand(plotTrialCmd)
	plotCmd.AddCommand(plotTrialsCmd)
	plotCmd.AddCommand(plotConfigsCmd)
}

// parseNamedPaths splits name=path arguments.
func parseNamedPaths(args []string) (names, paths []string, err error) {
	for _, arg := range args {
		name, path, ok := strings.Cut(arg, "=")
		if !ok || name == "" || path == "" {
			return nil, nil, fmt.Errorf("invalid argument: %s (expected name=csv)", arg)
		}
		names = append(names, name)
		paths = append(paths, path)
	}
	return names, paths, nil
}

func runPlotConfigs(cmd *cobra.Command, args []string) error {
	names, paths, err := parseNamedPaths(args[1:])
	if err != nil {
		return err
	}
	return plotter.PDF{}.PlotConfigs(paths, names, args[0])
}
