package experiment

import (
	"context"
	"fmt"

	"github.com/imishinist/expctl/internal/models"
	"github.com/imishinist/expctl/internal/naming"
	"github.com/imishinist/expctl/internal/report"
)

func recordOf(r report.Row) models.LogRecord {
	return models.LogRecord{
		TestValue: r.Value,
		TestError: r.Error,
		Epoch:     r.Epoch,
		Speed:     r.Speed,
		Duration:  r.Duration,
	}
}

// PublishSelection sends already-trained results of the selected
// combinations to the tracker, reading them back from the result directory.
func (e *Experiment) PublishSelection(ctx context.Context, sel Selection) error {
	if e.opts.Tracker == nil {
		return fmt.Errorf("no tracker configured")
	}
	lists := [4][]string{
		present(e.models, sel.Models),
		present(e.trainers, sel.Trainers),
		present(e.enhancers, sel.Enhancers),
		present(e.losses, sel.Losses),
	}
	return product(lists, func(names [4]string) error {
		key := keyOf(names, models.Aggregate)
		base := naming.Base(names[0], names[1], names[2], names[3])

		csvPath := e.namer.Key(key, naming.ExtCSV)
		rows, err := report.ReadCSV(csvPath)
		if err != nil {
			return fmt.Errorf("%s: %w", base, err)
		}
		statsPath := e.namer.Key(key, naming.ExtStats)
		stats, err := report.ReadCSV(statsPath)
		if err != nil {
			return fmt.Errorf("%s: %w", base, err)
		}
		if len(stats) == 0 {
			return fmt.Errorf("%s: %s has no aggregate row", base, statsPath)
		}

		records := make([]models.LogRecord, 0, len(rows))
		for _, r := range rows {
			records = append(records, recordOf(r))
		}
		pub := models.Publication{
			Experiment: e.opts.Name,
			Key:        key,
			Trials:     records,
			Aggregate:  recordOf(stats[0]),
			Artifacts:  existing(csvPath, statsPath, e.namer.Key(key, naming.ExtLog), e.namer.Key(key, naming.ExtPlot)),
		}
		if err := e.opts.Tracker.Publish(ctx, pub); err != nil {
			return fmt.Errorf("%s: failed to publish results: %w", base, err)
		}
		e.logger.Info("published", "config", base)
		return nil
	})
}
