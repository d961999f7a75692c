package experiment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/imishinist/expctl/internal/ledger"
	"github.com/imishinist/expctl/internal/models"
	"github.com/imishinist/expctl/internal/naming"
	"github.com/imishinist/expctl/internal/report"
	"github.com/imishinist/expctl/internal/runner"
	"github.com/imishinist/expctl/internal/scraper"
)

// present returns names, or a single absent segment for an empty axis.
func present(axis *models.Axis, names []string) []string {
	if axis.Len() == 0 {
		return []string{""}
	}
	return names
}

// product calls fn for every combination of lists in model, trainer,
// enhancer, loss order.
func product(lists [4][]string, fn func(names [4]string) error) error {
	var names [4]string
	var walk func(i int) error
	walk = func(i int) error {
		if i == len(lists) {
			return fn(names)
		}
		for _, name := range lists[i] {
			names[i] = name
			if err := walk(i + 1); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(0)
}

func keyOf(names [4]string, trial models.Trial) models.RunKey {
	return models.RunKey{Model: names[0], Trainer: names[1], Enhancer: names[2], Loss: names[3], Trial: trial}
}

func rowOf(key models.RunKey, r models.LogRecord) report.Row {
	return report.Row{
		Model:    key.Model,
		Trainer:  key.Trainer,
		Enhancer: key.Enhancer,
		Loss:     key.Loss,
		Value:    r.TestValue,
		Error:    r.TestError,
		Epoch:    r.Epoch,
		Speed:    r.Speed,
		Duration: r.Duration,
	}
}

// TrainAll trains every registered combination.
func (e *Experiment) TrainAll(ctx context.Context) error {
	return e.TrainSelection(ctx, e.Names())
}

// TrainSelection trains every combination of the selected names and stops at
// the first failure.
func (e *Experiment) TrainSelection(ctx context.Context, sel Selection) error {
	if e.taskPath == "" {
		return ErrNoTask
	}
	lists := [4][]string{
		present(e.models, sel.Models),
		present(e.trainers, sel.Trainers),
		present(e.enhancers, sel.Enhancers),
		present(e.losses, sel.Losses),
	}
	return product(lists, func(names [4]string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return e.TrainTrials(ctx, names[0], names[1], names[2], names[3])
	})
}

// trainerArgs renders every trainer argument except the basepath. Absent
// axes contribute no flag.
func (e *Experiment) trainerArgs(model, trainer, enhancer, loss string) ([]string, error) {
	args := []string{"--task", e.taskPath}
	for _, a := range []struct {
		flag string
		axis *models.Axis
		name string
	}{
		{"--loss", e.losses, loss},
		{"--model", e.models, model},
		{"--trainer", e.trainers, trainer},
		{"--enhancer", e.enhancers, enhancer},
	} {
		if a.name == "" {
			continue
		}
		arg, err := e.argument(a.axis, a.name)
		if err != nil {
			return nil, err
		}
		args = append(args, a.flag, arg)
	}
	return args, nil
}

// TrainTrials runs the trainer once per trial for one configuration, then
// writes the per-trial CSV, the aggregate statistics, the tabulated log and
// the overlay plot under the result directory.
func (e *Experiment) TrainTrials(ctx context.Context, model, trainer, enhancer, loss string) error {
	if e.taskPath == "" {
		return ErrNoTask
	}
	base := naming.Base(model, trainer, enhancer, loss)
	args, err := e.trainerArgs(model, trainer, enhancer, loss)
	if err != nil {
		return fmt.Errorf("%s: %w", base, err)
	}

	logger := e.logger.With("config", base)
	aggregate := keyOf([4]string{model, trainer, enhancer, loss}, models.Aggregate)
	records := make([]models.LogRecord, 0, e.opts.Trials)
	states := make([]string, 0, e.opts.Trials)
	for t := 0; t < e.opts.Trials; t++ {
		key := aggregate.WithTrial(models.Trial(t))
		record, err := e.trainOne(ctx, logger, key, args)
		if err != nil {
			return fmt.Errorf("%s %s: %w", base, naming.TrialTag(key.Trial), err)
		}
		records = append(records, record)
		states = append(states, e.namer.Key(key, naming.ExtState))
	}

	if err := e.collect(ctx, logger, aggregate, records, states); err != nil {
		return fmt.Errorf("%s: %w", base, err)
	}
	return nil
}

func (e *Experiment) trainOne(ctx context.Context, logger *slog.Logger, key models.RunKey, args []string) (models.LogRecord, error) {
	basePath := e.namer.BasePath(key)
	logPath := e.namer.Key(key, naming.ExtLog)
	inv := runner.Invocation{
		Tool: runner.ToolTrainer,
		Path: e.opts.TrainCommand,
		Args: append(slices.Clone(args), "--basepath", basePath),
	}
	entry := ledger.Entry{
		Experiment: e.opts.Name,
		Key:        key,
		BasePath:   basePath,
		Command:    inv.CommandLine(),
		StartedAt:  time.Now(),
	}

	logger.Info("training", "trial", naming.TrialTag(key.Trial))
	err := e.runTrainer(ctx, inv, logPath)
	entry.FinishedAt = time.Now()
	if err != nil {
		entry.ExitCode = -1
		var invErr *runner.InvocationError
		if errors.As(err, &invErr) {
			entry.ExitCode = invErr.ExitCode
		}
		entry.Error = err.Error()
		e.record(logger, entry)
		return models.LogRecord{}, err
	}

	e.plot(logger, e.opts.Emitter.PlotOne(e.namer.Key(key, naming.ExtState), e.namer.Key(key, naming.ExtPlot)))

	record, err := scraper.Parse(logPath)
	if err != nil {
		entry.Error = err.Error()
		e.record(logger, entry)
		return models.LogRecord{}, err
	}
	entry.Record = *record
	e.record(logger, entry)

	logger.Debug("trial finished", "trial", naming.TrialTag(key.Trial), "test_value", record.TestValue, "seconds", record.Duration)
	return *record, nil
}

// runTrainer runs inv with its standard output going to logPath.
func (e *Experiment) runTrainer(ctx context.Context, inv runner.Invocation, logPath string) error {
	file, err := os.Create(logPath)
	if err != nil {
		return fmt.Errorf("failed to create trainer log: %w", err)
	}
	defer file.Close()

	inv.Stdout = file
	if err := e.opts.Runner.Run(ctx, inv); err != nil {
		return err
	}
	return file.Close()
}

func (e *Experiment) record(logger *slog.Logger, entry ledger.Entry) {
	if e.opts.Ledger == nil {
		return
	}
	if _, err := e.opts.Ledger.Record(entry); err != nil {
		logger.Warn("failed to record run", "error", err)
	}
}

// plot logs plotting failures; plots never abort training.
func (e *Experiment) plot(logger *slog.Logger, err error) {
	if err != nil {
		logger.Warn("plotting failed", "error", err)
	}
}

func (e *Experiment) collect(ctx context.Context, logger *slog.Logger, key models.RunKey, records []models.LogRecord, states []string) error {
	csvPath := e.namer.Key(key, naming.ExtCSV)
	statsPath := e.namer.Key(key, naming.ExtStats)
	logPath := e.namer.Key(key, naming.ExtLog)
	plotPath := e.namer.Key(key, naming.ExtPlot)

	rows := make([]report.Row, 0, len(records))
	for _, r := range records {
		rows = append(rows, rowOf(key, r))
	}
	if err := report.WriteCSV(csvPath, rows); err != nil {
		return err
	}

	aggregate, err := scraper.Aggregate(ctx, e.opts.Statistician, records)
	if err != nil {
		return err
	}
	if err := report.WriteCSV(statsPath, []report.Row{rowOf(key, aggregate)}); err != nil {
		return err
	}

	if err := e.opts.Emitter.Tabulate(ctx, csvPath, logPath); err != nil {
		return err
	}
	e.plot(logger, e.opts.Emitter.PlotMany(states, plotPath))

	logger.Info("trained", "test_value", aggregate.TestValue, "test_error", aggregate.TestError, "epoch", aggregate.Epoch)

	if e.opts.Tracker == nil {
		return nil
	}
	pub := models.Publication{
		Experiment: e.opts.Name,
		Key:        key,
		Trials:     records,
		Aggregate:  aggregate,
		Artifacts:  existing(csvPath, statsPath, logPath, plotPath),
	}
	if err := e.opts.Tracker.Publish(ctx, pub); err != nil {
		return fmt.Errorf("failed to publish results: %w", err)
	}
	return nil
}

func existing(paths ...string) []string {
	var out []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			out = append(out, p)
		}
	}
	return out
}
