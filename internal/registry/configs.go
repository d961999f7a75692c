package registry

import (
	"encoding/json"
	"fmt"
	"maps"
	"path/filepath"
)

type LossConfig struct {
	Loss string `json:"loss"`
}

type EnhancerConfig struct {
	Enhancer string `json:"enhancer"`
}

// TrainerConfig is the payload of the trainer axis. Batch and TuneEpochs are
// only meaningful for stochastic trainers.
type TrainerConfig struct {
	Trainer    string  `json:"trainer"`
	Solver     string  `json:"solver"`
	Epochs     int     `json:"epochs"`
	Patience   int     `json:"patience"`
	Epsilon    float64 `json:"epsilon"`
	Batch      int     `json:"batch,omitempty"`
	TuneEpochs int     `json:"tune_epochs,omitempty"`
}

// TaskConfig references a dataset. Params are flattened next to task and dir
// when serialized.
type TaskConfig struct {
	Task   string
	Dir    string
	Params map[string]any
}

func (t TaskConfig) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(t.Params)+2)
	maps.Copy(out, t.Params)
	out["task"] = t.Task
	if t.Dir != "" {
		out["dir"] = t.Dir
	}
	return json.Marshal(out)
}

const (
	DefaultEpochs   = 100
	DefaultPatience = 10
	DefaultEpsilon  = 1e-6
	DefaultBatch    = 32
)

func Loss(name string) (LossConfig, error) {
	if err := Losses.Check(name); err != nil {
		return LossConfig{}, err
	}
	return LossConfig{Loss: name}, nil
}

func Enhancer(name string) (EnhancerConfig, error) {
	if err := Enhancers.Check(name); err != nil {
		return EnhancerConfig{}, err
	}
	return EnhancerConfig{Enhancer: name}, nil
}

// BatchTrainer creates a line-search trainer configuration.
func BatchTrainer(solver string, epochs, patience int, epsilon float64) (TrainerConfig, error) {
	if err := BatchSolvers.Check(solver); err != nil {
		return TrainerConfig{}, err
	}
	if err := checkSchedule(epochs, patience, epsilon); err != nil {
		return TrainerConfig{}, err
	}
	return TrainerConfig{
		Trainer:  "batch",
		Solver:   solver,
		Epochs:   epochs,
		Patience: patience,
		Epsilon:  epsilon,
	}, nil
}

// StochTrainer creates a stochastic (mini-batch) trainer configuration.
func StochTrainer(solver string, epochs, patience int, epsilon float64, batch, tuneEpochs int) (TrainerConfig, error) {
	if err := StochSolvers.Check(solver); err != nil {
		return TrainerConfig{}, err
	}
	if err := checkSchedule(epochs, patience, epsilon); err != nil {
		return TrainerConfig{}, err
	}
	if batch < 1 {
		return TrainerConfig{}, fmt.Errorf("%w: batch size must be at least 1, got %d", ErrInvalidParameter, batch)
	}
	if tuneEpochs < 0 {
		return TrainerConfig{}, fmt.Errorf("%w: tune epochs must not be negative, got %d", ErrInvalidParameter, tuneEpochs)
	}
	return TrainerConfig{
		Trainer:    "stoch",
		Solver:     solver,
		Epochs:     epochs,
		Patience:   patience,
		Epsilon:    epsilon,
		Batch:      batch,
		TuneEpochs: tuneEpochs,
	}, nil
}

func checkSchedule(epochs, patience int, epsilon float64) error {
	if epochs < 1 {
		return fmt.Errorf("%w: epochs must be at least 1, got %d", ErrInvalidParameter, epochs)
	}
	if patience < 1 {
		return fmt.Errorf("%w: patience must be at least 1, got %d", ErrInvalidParameter, patience)
	}
	if !(epsilon > 0) {
		return fmt.Errorf("%w: epsilon must be positive, got %g", ErrInvalidParameter, epsilon)
	}
	return nil
}

// Task references a dataset stored under root. The directory is not checked.
func Task(root, name string) TaskConfig {
	return TaskConfig{Task: name, Dir: filepath.Join(root, name)}
}

var syntheticDefaults = map[string]map[string]any{
	"synth-charset": {"type": "digit", "color": "rgb", "irows": 16, "icols": 16, "count": 10000},
	"synth-nparity": {"n": 32, "count": 10000},
	"synth-affine":  {"isize": 32, "osize": 32, "noise": 0.0, "count": 10000},
	"synth-peak2d":  {"irows": 32, "icols": 32, "noise": 0.0, "count": 10000},
}

// SyntheticTask creates a generated task, overriding its defaults with params.
func SyntheticTask(name string, params map[string]any) (TaskConfig, error) {
	if err := SyntheticTasks.Check(name); err != nil {
		return TaskConfig{}, err
	}
	merged := maps.Clone(syntheticDefaults[name])
	for k, v := range params {
		if _, ok := merged[k]; !ok {
			return TaskConfig{}, fmt.Errorf("%w: unknown %s parameter %q", ErrInvalidParameter, name, k)
		}
		merged[k] = v
	}
	return TaskConfig{Task: name, Params: merged}, nil
}
