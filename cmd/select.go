package cmd

import (
	"github.com/spf13/cobra"

	"github.com/imishinist/expctl/internal/experiment"
)

// selection filters the registered names with the --model, --trainer,
// --enhancer and --loss patterns of cmd.
func selection(cmd *cobra.Command, s *session) (experiment.Selection, error) {
	model, _ := cmd.Flags().GetString("model")
	trainer, _ := cmd.Flags().GetString("trainer")
	enhancer, _ := cmd.Flags().GetString("enhancer")
	loss, _ := cmd.Flags().GetString("loss")
	return s.exp.FilterNames(model, trainer, enhancer, loss)
}
