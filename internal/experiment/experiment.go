package experiment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/imishinist/expctl/internal/builder"
	"github.com/imishinist/expctl/internal/ledger"
	"github.com/imishinist/expctl/internal/models"
	"github.com/imishinist/expctl/internal/naming"
	"github.com/imishinist/expctl/internal/report"
	"github.com/imishinist/expctl/internal/runner"
	"github.com/imishinist/expctl/internal/stats"
)

var (
	ErrDirectoryCreation = errors.New("failed to create directory")
	ErrNoTask            = errors.New("no task set")
)

// DirectoryError reports a part of the output tree that could not be created.
type DirectoryError struct {
	Path string
	Err  error
}

func (e *DirectoryError) Error() string {
	return fmt.Sprintf("%v %s: %v", ErrDirectoryCreation, e.Path, e.Err)
}

func (e *DirectoryError) Is(target error) bool {
	return target == ErrDirectoryCreation
}

func (e *DirectoryError) Unwrap() error {
	return e.Err
}

// ModelBuilder writes the model description of an architecture to jsonPath.
type ModelBuilder interface {
	Build(ctx context.Context, arch builder.Architecture, jsonPath string) error
}

// Recorder keeps a record of every trainer invocation.
type Recorder interface {
	Record(e ledger.Entry) (int64, error)
}

// Tracker publishes the results of a trained configuration.
type Tracker interface {
	Publish(ctx context.Context, pub models.Publication) error
}

type Options struct {
	// Name identifies the experiment in the ledger and the tracker.
	Name   string
	Dir    string
	Trials int

	TrainCommand string
	DatasetsDir  string

	Runner       runner.Runner
	Builder      ModelBuilder
	Statistician stats.Statistician
	Emitter      *report.Emitter

	// Optional collaborators.
	Ledger  Recorder
	Tracker Tracker

	// ReuseModels skips the model builder when its output already exists.
	ReuseModels bool

	// LogOutput receives the experiment log in addition to <Dir>/log.
	LogOutput io.Writer
	LogLevel  slog.Leveler
}

// Experiment trains every combination of its four axes on one task and
// writes the results under a fixed directory.
type Experiment struct {
	opts   Options
	namer  naming.Namer
	logger *slog.Logger
	log    *os.File

	models    *models.Axis
	trainers  *models.Axis
	enhancers *models.Axis
	losses    *models.Axis

	shared   models.Shared
	taskPath string
}

// New creates the output tree and opens the experiment log.
func New(opts Options) (*Experiment, error) {
	if opts.Dir == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	if opts.Trials < 1 {
		return nil, fmt.Errorf("invalid trials: %d (must be at least 1)", opts.Trials)
	}
	if opts.Runner == nil || opts.Statistician == nil || opts.Emitter == nil {
		return nil, fmt.Errorf("runner, statistician and emitter are required")
	}
	if opts.Name == "" {
		opts.Name = filepath.Base(opts.Dir)
	}

	e := &Experiment{
		opts:      opts,
		namer:     naming.Namer{Dir: opts.Dir},
		models:    models.NewAxis("model"),
		trainers:  models.NewAxis("trainer"),
		enhancers: models.NewAxis("enhancer"),
		losses:    models.NewAxis("loss"),
	}
	if err := e.makeDirs(); err != nil {
		return nil, err
	}

	log, err := os.OpenFile(e.namer.LogPath(), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open experiment log: %w", err)
	}
	e.log = log

	var out io.Writer = log
	if opts.LogOutput != nil {
		out = io.MultiWriter(opts.LogOutput, log)
	}
	e.logger = slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: opts.LogLevel})).
		With("experiment", opts.Name)

	return e, nil
}

func (e *Experiment) makeDirs() error {
	dirs := []string{
		e.opts.Dir,
		e.namer.ConfigDir(),
		e.namer.SummaryDir(),
		e.namer.TrialDir(models.Aggregate),
	}
	for t := 0; t < e.opts.Trials; t++ {
		dirs = append(dirs, e.namer.TrialDir(models.Trial(t)))
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &DirectoryError{Path: dir, Err: err}
		}
	}
	return nil
}

// Close releases the experiment log.
func (e *Experiment) Close() error {
	return e.log.Close()
}

func (e *Experiment) Logger() *slog.Logger {
	return e.logger
}

func (e *Experiment) Namer() naming.Namer {
	return e.namer
}

func (e *Experiment) Trials() int {
	return e.opts.Trials
}
