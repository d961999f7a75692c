package experiment

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/imishinist/expctl/internal/models"
	"github.com/imishinist/expctl/internal/naming"
	"github.com/imishinist/expctl/internal/report"
)

// AxisKind names the axis a summary compares across.
type AxisKind string

const (
	ByModels    AxisKind = "models"
	ByTrainers  AxisKind = "trainers"
	ByEnhancers AxisKind = "enhancers"
	ByLosses    AxisKind = "losses"
)

// AxisKinds lists the valid kinds in segment order.
var AxisKinds = []AxisKind{ByModels, ByTrainers, ByEnhancers, ByLosses}

// DefaultLabel stands for every name of the compared axis.
const DefaultLabel = "all"

func ParseAxisKind(s string) (AxisKind, error) {
	kind := AxisKind(s)
	if !slices.Contains(AxisKinds, kind) {
		return "", fmt.Errorf("invalid axis: %s (valid: models, trainers, enhancers, losses)", s)
	}
	return kind, nil
}

func (e *Experiment) axes() [4]*models.Axis {
	return [4]*models.Axis{e.models, e.trainers, e.enhancers, e.losses}
}

// The SummarizeBy wrappers compare one axis. An empty label is derived
// from the pattern.

func (e *Experiment) SummarizeByModels(ctx context.Context, pattern, label string) error {
	return e.Summarize(ctx, ByModels, pattern, label)
}

func (e *Experiment) SummarizeByTrainers(ctx context.Context, pattern, label string) error {
	return e.Summarize(ctx, ByTrainers, pattern, label)
}

func (e *Experiment) SummarizeByEnhancers(ctx context.Context, pattern, label string) error {
	return e.Summarize(ctx, ByEnhancers, pattern, label)
}

func (e *Experiment) SummarizeByLosses(ctx context.Context, pattern, label string) error {
	return e.Summarize(ctx, ByLosses, pattern, label)
}

var nonLabel = regexp.MustCompile(`[^A-Za-z0-9.+-]+`)

// derivedLabel turns a pattern into a segment that never names a
// registered entry: "mlp[01]" becomes "mlp-01" and "mlp0" "mlp0-group".
func derivedLabel(axis *models.Axis, pattern string) string {
	if pattern == "" || pattern == ".*" {
		return DefaultLabel
	}
	label := strings.Trim(nonLabel.ReplaceAllString(pattern, "-"), "-")
	if label == "" {
		label = "match"
	}
	if _, ok := axis.Get(label); ok {
		label += "-group"
	}
	return label
}

// summaryLabel picks the segment standing for the selected names.
func summaryLabel(axis *models.Axis, pattern, label string) (string, error) {
	if label == "" {
		label = derivedLabel(axis, pattern)
	}
	if err := models.ValidateName(label); err != nil {
		return "", fmt.Errorf("summary label: %w", err)
	}
	if _, ok := axis.Get(label); ok {
		return "", fmt.Errorf("summary label %q is a registered %s", label, axis.Label)
	}
	return label, nil
}

// Summarize compares the names of one axis matching pattern while every
// combination of the other axes is held fixed. For each combination it
// writes summary/<base>.csv with the aggregate row of each selected name,
// tabulates it, box-plots the per-trial results and overlays each trial's
// state files. The compared axis renders as label in <base>; an empty label
// is derived from pattern.
func (e *Experiment) Summarize(ctx context.Context, kind AxisKind, pattern, label string) error {
	vary := slices.Index(AxisKinds, kind)
	if vary < 0 {
		return fmt.Errorf("invalid axis: %s", kind)
	}
	axes := e.axes()

	selected, err := axes[vary].Match(pattern)
	if err != nil {
		return err
	}
	if len(selected) == 0 {
		return fmt.Errorf("no %s matches %q", axes[vary].Label, pattern)
	}
	label, err = summaryLabel(axes[vary], pattern, label)
	if err != nil {
		return err
	}

	var lists [4][]string
	for i, axis := range axes {
		lists[i] = present(axis, axis.Names())
	}
	lists[vary] = []string{label}

	return product(lists, func(names [4]string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return e.summarizeGroup(ctx, vary, names, selected)
	})
}

func (e *Experiment) summarizeGroup(ctx context.Context, vary int, names [4]string, selected []string) error {
	base := naming.Base(names[0], names[1], names[2], names[3])
	logger := e.logger.With("summary", base)

	keys := make([]models.RunKey, 0, len(selected))
	for _, name := range selected {
		k := names
		k[vary] = name
		keys = append(keys, keyOf(k, models.Aggregate))
	}

	rows := make([]report.Row, 0, len(keys))
	csvs := make([]string, 0, len(keys))
	for _, key := range keys {
		statsPath := e.namer.Key(key, naming.ExtStats)
		stats, err := report.ReadCSV(statsPath)
		if err != nil {
			return fmt.Errorf("%s: %w", base, err)
		}
		if len(stats) == 0 {
			return fmt.Errorf("%s: %s has no aggregate row", base, statsPath)
		}
		rows = append(rows, stats[0])
		csvs = append(csvs, e.namer.Key(key, naming.ExtCSV))
	}

	csvPath := e.namer.SummaryPath(names[0], names[1], names[2], names[3], naming.ExtCSV)
	if err := report.WriteCSV(csvPath, rows); err != nil {
		return err
	}
	if err := e.opts.Emitter.Tabulate(ctx, csvPath, e.namer.SummaryPath(names[0], names[1], names[2], names[3], naming.ExtLog)); err != nil {
		return err
	}
	e.plot(logger, e.opts.Emitter.PlotConfigs(csvs, selected, e.namer.SummaryPath(names[0], names[1], names[2], names[3], naming.ExtPlot)))

	group := keyOf(names, models.Aggregate)
	for t := 0; t < e.opts.Trials; t++ {
		trial := models.Trial(t)
		states := make([]string, 0, len(keys))
		for _, key := range keys {
			states = append(states, e.namer.Key(key.WithTrial(trial), naming.ExtState))
		}
		e.plot(logger, e.opts.Emitter.PlotMany(states, e.namer.Key(group.WithTrial(trial), naming.ExtPlot)))
	}

	logger.Info("summarized", "names", strings.Join(selected, ","))
	return nil
}
