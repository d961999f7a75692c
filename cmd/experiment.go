package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/imishinist/expctl/internal/builder"
	"github.com/imishinist/expctl/internal/config"
	"github.com/imishinist/expctl/internal/experiment"
	"github.com/imishinist/expctl/internal/ledger"
	"github.com/imishinist/expctl/internal/mlflow"
	"github.com/imishinist/expctl/internal/models"
	"github.com/imishinist/expctl/internal/parser"
	"github.com/imishinist/expctl/internal/plotter"
	"github.com/imishinist/expctl/internal/report"
	"github.com/imishinist/expctl/internal/runner"
	"github.com/imishinist/expctl/internal/stats"
)

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

func loadConfig() (*config.Config, error) {
	cfg := config.New()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevels[cfg.LogLevel]}))
}

// session is an experiment opened from a plan, together with the
// resources it holds.
type session struct {
	cfg    *config.Config
	plan   *models.Plan
	exp    *experiment.Experiment
	ledger *ledger.Ledger
}

type openOptions struct {
	trials int
	track  bool
	reuse  bool
}

func outputDir(cfg *config.Config, plan *models.Plan) string {
	if plan.OutDir != "" {
		return config.ExpandHome(plan.OutDir)
	}
	return filepath.Join(cfg.ResultsDir, plan.Name)
}

func trialCount(cfg *config.Config, plan *models.Plan, override int) int {
	switch {
	case override > 0:
		return override
	case plan.Trials > 0:
		return plan.Trials
	default:
		return cfg.Trials
	}
}

// openExperiment loads the plan at planPath, wires the external tools and
// registers every configuration of the plan.
func openExperiment(ctx context.Context, planPath string, opts openOptions) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	plan, err := parser.LoadPlan(planPath)
	if err != nil {
		return nil, err
	}
	timeout, err := cfg.RunTimeout()
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg)
	exec := &runner.Exec{Timeout: timeout, Logger: logger}

	var statistician stats.Statistician = stats.Builtin{}
	if cfg.StatsCommand != "" {
		statistician = &stats.External{Runner: exec, Command: cfg.StatsCommand}
	}
	var tabulator report.Tabulator = report.BuiltinTabulator{}
	if cfg.TabulateCommand != "" {
		tabulator = &report.ExternalTabulator{Runner: exec, Command: cfg.TabulateCommand}
	}

	s := &session{cfg: cfg, plan: plan}
	expOpts := experiment.Options{
		Name:         plan.Name,
		Dir:          outputDir(cfg, plan),
		Trials:       trialCount(cfg, plan, opts.trials),
		TrainCommand: cfg.TrainCommand,
		DatasetsDir:  cfg.DatasetsDir,
		Runner:       exec,
		Builder:      &builder.External{Runner: exec, Command: cfg.BuilderCommand},
		Statistician: statistician,
		Emitter: &report.Emitter{
			Tabulator: tabulator,
			Plotter:   plotter.PDF{},
			Console:   os.Stdout,
		},
		ReuseModels: opts.reuse,
		LogOutput:   os.Stderr,
		LogLevel:    logLevels[cfg.LogLevel],
	}

	if cfg.LedgerPath != "" {
		l, err := ledger.Open(cfg.LedgerPath)
		if err != nil {
			return nil, err
		}
		s.ledger = l
		expOpts.Ledger = l
	}
	if opts.track {
		client, err := mlflow.NewClient(cfg)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to create MLflow client: %w", err)
		}
		expOpts.Tracker = client
	}

	exp, err := experiment.New(expOpts)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.exp = exp

	if err := exp.Register(ctx, plan); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *session) Close() {
	if s.exp != nil {
		s.exp.Close()
	}
	if s.ledger != nil {
		s.ledger.Close()
	}
}
