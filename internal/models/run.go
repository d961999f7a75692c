package models

import "time"

// Trial is a 0-based trial index. Aggregate denotes results pooled over all trials.
type Trial int

const Aggregate Trial = -1

// IsAggregate reports whether t is the aggregate sentinel.
func (t Trial) IsAggregate() bool {
	return t < 0
}

// RunKey identifies one configuration, optionally restricted to a trial.
// Empty axis names are absent from the configuration.
type RunKey struct {
	Model    string `json:"model,omitempty"`
	Trainer  string `json:"trainer,omitempty"`
	Enhancer string `json:"enhancer,omitempty"`
	Loss     string `json:"loss,omitempty"`
	Trial    Trial  `json:"trial"`
}

// WithTrial returns a copy of k bound to trial t.
func (k RunKey) WithTrial(t Trial) RunKey {
	k.Trial = t
	return k
}

type RunInfo struct {
	RunID        string            `json:"run_id"`
	ExperimentID string            `json:"experiment_id"`
	RunName      string            `json:"run_name"`
	Status       string            `json:"status"`
	ArtifactURI  string            `json:"artifact_uri,omitempty"`
	StartTime    time.Time         `json:"start_time"`
	EndTime      *time.Time        `json:"end_time,omitempty"`
	Tags         map[string]string `json:"tags,omitempty"`
}

type RunStatus string

const (
	RunStatusRunning  RunStatus = "RUNNING"
	RunStatusFinished RunStatus = "FINISHED"
	RunStatusFailed   RunStatus = "FAILED"
	RunStatusKilled   RunStatus = "KILLED"
)
