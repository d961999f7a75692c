package scraper

import (
	"context"
	"fmt"

	"github.com/imishinist/expctl/internal/models"
	"github.com/imishinist/expctl/internal/stats"
)

// Output precision of each record column when summarized.
var precisions = [5]int{3, 3, 0, 3, 0}

var columnNames = [5]string{"test value", "test error", "epoch", "speed", "seconds"}

// Aggregate summarizes the per-trial records column by column. The returned
// record holds the statistician's output verbatim.
func Aggregate(ctx context.Context, s stats.Statistician, records []models.LogRecord) (models.LogRecord, error) {
	if len(records) == 0 {
		return models.LogRecord{}, fmt.Errorf("no trial records to aggregate")
	}

	var columns [5][]string
	for _, r := range records {
		for i, v := range r.Fields() {
			columns[i] = append(columns[i], v)
		}
	}

	var out [5]string
	for i, values := range columns {
		summary, err := s.Summarize(ctx, precisions[i], values)
		if err != nil {
			return models.LogRecord{}, fmt.Errorf("failed to summarize %s: %w", columnNames[i], err)
		}
		out[i] = summary
	}

	return models.LogRecord{
		TestValue: out[0],
		TestError: out[1],
		Epoch:     out[2],
		Speed:     out[3],
		Duration:  out[4],
	}, nil
}
