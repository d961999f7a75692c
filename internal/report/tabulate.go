package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/imishinist/expctl/internal/runner"
)

// Tabulator renders a CSV file as an aligned text table.
type Tabulator interface {
	Tabulate(ctx context.Context, csvPath string) (string, error)
}

// ExternalTabulator calls the toolkit's tabulate executable:
//
//	<tabulate> -i <csv> -d ';'
type ExternalTabulator struct {
	Runner  runner.Runner
	Command string
}

func (t *ExternalTabulator) Tabulate(ctx context.Context, csvPath string) (string, error) {
	return runner.Output(ctx, t.Runner, runner.Invocation{
		Tool: runner.ToolTabulate,
		Path: t.Command,
		Args: []string{"-i", csvPath, "-d", string(Delimiter)},
	})
}

// BuiltinTabulator aligns columns in process.
type BuiltinTabulator struct{}

func (BuiltinTabulator) Tabulate(_ context.Context, csvPath string) (string, error) {
	file, err := os.Open(csvPath)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", csvPath, err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.Comma = Delimiter
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return "", fmt.Errorf("failed to parse %s: %w", csvPath, err)
	}

	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	for i, record := range records {
		fmt.Fprintln(w, strings.Join(record, "\t"))
		if i == 0 {
			rule := make([]string, len(record))
			for j, f := range record {
				rule[j] = strings.Repeat("-", len(f))
			}
			fmt.Fprintln(w, strings.Join(rule, "\t"))
		}
	}
	if err := w.Flush(); err != nil {
		return "", err
	}
	return b.String(), nil
}
