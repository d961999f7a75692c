package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/imishinist/expctl/internal/registry"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Print the names accepted by the toolkit",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		for _, c := range registry.All() {
			fmt.Fprintf(out, "%s: %s\n", c.Kind, strings.Join(c.Names, " "))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(catalogCmd)
}
