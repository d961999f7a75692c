package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/imishinist/expctl/internal/report"
	"github.com/imishinist/expctl/internal/scraper"
)

var parseLogCmd = &cobra.Command{
	Use:   "parse-log <file>...",
	Short: "Extract the results of trainer logs",
	Long: `Print the test value, test error, epoch, speed and duration in seconds
found on the result line of each trainer log.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runParseLog,
}

func init() {
	rootCmd.AddCommand(parseLogCmd)
}

func runParseLog(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "log\t%s\n", strings.Join(report.ResultColumns, "\t"))
	for _, path := range args {
		record, err := scraper.Parse(path)
		if err != nil {
			w.Flush()
			return err
		}
		fmt.Fprintf(w, "%s\t%s\n", path, strings.Join(record.Fields(), "\t"))
	}
	return w.Flush()
}
