package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/imishinist/expctl/internal/models"
	"github.com/imishinist/expctl/internal/parser"
)

var listCmd = &cobra.Command{
	Use:   "list <plan>",
	Short: "List the configuration names of a plan",
	Long: `Print, per axis, the names of a plan matching the --model, --trainer,
--enhancer and --loss patterns. Nothing is written or run.`,
	Args: cobra.ExactArgs(1),
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().String("model", "", "Regular expression selecting models")
	listCmd.Flags().String("trainer", "", "Regular expression selecting trainers")
	listCmd.Flags().String("enhancer", "", "Regular expression selecting enhancers")
	listCmd.Flags().String("loss", "", "Regular expression selecting losses")
}

// planAxes returns the names of each axis of plan in segment order.
func planAxes(plan *models.Plan) ([4]*models.Axis, error) {
	axes := [4]*models.Axis{
		models.NewAxis("model"),
		models.NewAxis("trainer"),
		models.NewAxis("enhancer"),
		models.NewAxis("loss"),
	}
	var names [4][]string
	for _, m := range plan.Models {
		names[0] = append(names[0], m.Name)
	}
	for _, t := range plan.Trainers {
		names[1] = append(names[1], t.Name)
	}
	names[2] = plan.Enhancers
	names[3] = plan.Losses

	for i, axis := range axes {
		for _, name := range names[i] {
			if err := axis.Add(name, nil); err != nil {
				return axes, err
			}
		}
	}
	return axes, nil
}

func runList(cmd *cobra.Command, args []string) error {
	plan, err := parser.LoadPlan(args[0])
	if err != nil {
		return err
	}
	axes, err := planAxes(plan)
	if err != nil {
		return err
	}

	flags := []string{"model", "trainer", "enhancer", "loss"}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "task: %s\n", plan.Task.Name)
	for i, axis := range axes {
		pattern, _ := cmd.Flags().GetString(flags[i])
		names, err := axis.Match(pattern)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%ss: %s\n", axis.Label, strings.Join(names, " "))
	}
	return nil
}
