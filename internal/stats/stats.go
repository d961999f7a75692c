package stats

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/imishinist/expctl/internal/runner"
)

// Statistician turns a column of numeric strings into one formatted summary.
type Statistician interface {
	Summarize(ctx context.Context, precision int, values []string) (string, error)
}

// External delegates to the toolkit's statistics executable:
//
//	<stats> -p <precision> v1 v2 ...
type External struct {
	Runner  runner.Runner
	Command string
}

func (e *External) Summarize(ctx context.Context, precision int, values []string) (string, error) {
	args := append([]string{"-p", strconv.Itoa(precision)}, values...)
	out, err := runner.Output(ctx, e.Runner, runner.Invocation{
		Tool: runner.ToolStats,
		Path: e.Command,
		Args: args,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Builtin formats mean+/-stddev in process.
type Builtin struct{}

func (Builtin) Summarize(_ context.Context, precision int, values []string) (string, error) {
	if len(values) == 0 {
		return "", fmt.Errorf("no values to summarize")
	}
	xs := make([]float64, len(values))
	for i, v := range values {
		x, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return "", fmt.Errorf("invalid value %q: %w", v, err)
		}
		xs[i] = x
	}

	mean, std := xs[0], 0.0
	if len(xs) > 1 {
		mean, std = stat.MeanStdDev(xs, nil)
	}
	return fmt.Sprintf("%.*f+/-%.*f", precision, mean, precision, std), nil
}
