package models

import "time"

// LogRecord holds the results scraped from one trainer log, or the
// formatted statistics of several of them. Values are kept as text.
type LogRecord struct {
	TestValue string `json:"test_value"`
	TestError string `json:"test_error"`
	Epoch     string `json:"epoch"`
	Speed     string `json:"speed"`
	Duration  string `json:"seconds"`
}

// Fields returns the record values in CSV column order.
func (r LogRecord) Fields() []string {
	return []string{r.TestValue, r.TestError, r.Epoch, r.Speed, r.Duration}
}

type Metric struct {
	Key       string    `json:"key"`
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
	Step      int64     `json:"step"`
}

// Publication is everything sent to the tracking server for one configuration.
type Publication struct {
	Experiment string
	Key        RunKey
	Trials     []LogRecord
	Aggregate  LogRecord
	Artifacts  []string
}
