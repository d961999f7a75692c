package mlflow

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/imishinist/expctl/internal/models"
	"github.com/imishinist/expctl/internal/naming"
)

// Metric keys, in LogRecord field order.
var recordKeys = []string{"test_value", "test_error", "epoch", "speed", "seconds"}

func axisParams(key models.RunKey) []models.Parameter {
	var params []models.Parameter
	for _, p := range []models.Parameter{
		{Key: "model", Value: key.Model},
		{Key: "trainer", Value: key.Trainer},
		{Key: "enhancer", Value: key.Enhancer},
		{Key: "loss", Value: key.Loss},
	} {
		if p.Value != "" {
			params = append(params, p)
		}
	}
	return params
}

// trialMetrics converts per-trial records into metrics stepped by the
// 1-based trial number. Values that are not numbers are skipped.
func trialMetrics(trials []models.LogRecord, now time.Time) []models.Metric {
	var metrics []models.Metric
	for i, record := range trials {
		for j, field := range record.Fields() {
			value, err := strconv.ParseFloat(field, 64)
			if err != nil {
				continue
			}
			metrics = append(metrics, models.Metric{
				Key:       recordKeys[j],
				Value:     value,
				Timestamp: now,
				Step:      int64(i + 1),
			})
		}
	}
	return metrics
}

// Publish records one configuration as a finished MLflow run: axis names as
// params, every trial as a metric step, aggregate statistics as tags and the
// result files as artifacts.
func (c *Client) Publish(ctx context.Context, pub models.Publication) error {
	tags := map[string]string{
		"expctl.experiment": pub.Experiment,
	}
	for i, field := range pub.Aggregate.Fields() {
		if field != "" {
			tags[naming.AggregateID+"."+recordKeys[i]] = field
		}
	}

	run, err := c.CreateRun(ctx, RunOptions{
		ExperimentID: c.config.ExperimentID,
		RunName:      naming.Base(pub.Key.Model, pub.Key.Trainer, pub.Key.Enhancer, pub.Key.Loss),
		Tags:         tags,
	})
	if err != nil {
		return err
	}

	if err := c.publishRun(ctx, run.RunID, pub); err != nil {
		if uerr := c.UpdateRun(ctx, run.RunID, models.RunStatusFailed); uerr != nil {
			return fmt.Errorf("%w (and %v)", err, uerr)
		}
		return err
	}

	return c.UpdateRun(ctx, run.RunID, models.RunStatusFinished)
}

func (c *Client) publishRun(ctx context.Context, runID string, pub models.Publication) error {
	params := append(axisParams(pub.Key), models.Parameter{Key: "trials", Value: strconv.Itoa(len(pub.Trials))})
	if err := c.LogParams(ctx, runID, params); err != nil {
		return err
	}
	if err := c.LogMetrics(ctx, runID, trialMetrics(pub.Trials, time.Now())); err != nil {
		return err
	}
	return c.UploadArtifacts(ctx, runID, pub.Artifacts)
}
