package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/imishinist/expctl/internal/ledger"
	"github.com/imishinist/expctl/internal/naming"
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "List recorded trainer invocations",
	Args:  cobra.NoArgs,
	RunE:  runLedger,
}

func init() {
	rootCmd.AddCommand(ledgerCmd)

	ledgerCmd.Flags().String("experiment", "", "Only show invocations of this experiment")
}

func runLedger(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.LedgerPath == "" {
		return fmt.Errorf("ledger is disabled (ledger_path is empty)")
	}
	experimentName, _ := cmd.Flags().GetString("experiment")

	l, err := ledger.Open(cfg.LedgerPath)
	if err != nil {
		return err
	}
	defer l.Close()

	entries, err := l.List(experimentName)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tEXPERIMENT\tCONFIG\tTRIAL\tEXIT\tTEST\tERROR\tSTARTED\tELAPSED")
	for _, e := range entries {
		base := naming.Base(e.Key.Model, e.Key.Trainer, e.Key.Enhancer, e.Key.Loss)
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
			e.ID, e.Experiment, base, naming.TrialTag(e.Key.Trial), e.ExitCode,
			e.Record.TestValue, e.Record.TestError,
			e.StartedAt.Local().Format(time.DateTime), e.FinishedAt.Sub(e.StartedAt).Round(time.Millisecond))
	}
	return w.Flush()
}
