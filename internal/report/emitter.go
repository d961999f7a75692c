package report

import (
	"context"
	"fmt"
	"io"
	"os"
)

// Plotter renders state and CSV files into multi-page documents.
type Plotter interface {
	PlotTrial(statePath, outPath string) error
	PlotTrials(statePaths []string, outPath string) error
	PlotConfigs(csvPaths, names []string, outPath string) error
}

// Emitter writes text reports and hands plotting to a Plotter.
type Emitter struct {
	Tabulator Tabulator
	Plotter   Plotter
	Console   io.Writer
}

// Tabulate renders csvPath into logPath and echoes the table to the console.
func (e *Emitter) Tabulate(ctx context.Context, csvPath, logPath string) error {
	table, err := e.Tabulator.Tabulate(ctx, csvPath)
	if err != nil {
		return fmt.Errorf("failed to tabulate %s: %w", csvPath, err)
	}
	if err := os.WriteFile(logPath, []byte(table), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", logPath, err)
	}
	if e.Console != nil {
		fmt.Fprint(e.Console, table)
	}
	return nil
}

// PlotOne plots the training history of a single trial.
func (e *Emitter) PlotOne(statePath, outPath string) error {
	if err := e.Plotter.PlotTrial(statePath, outPath); err != nil {
		return fmt.Errorf("failed to plot %s: %w", statePath, err)
	}
	return nil
}

// PlotMany overlays the training histories of several runs.
func (e *Emitter) PlotMany(statePaths []string, outPath string) error {
	if err := e.Plotter.PlotTrials(statePaths, outPath); err != nil {
		return fmt.Errorf("failed to plot %s: %w", outPath, err)
	}
	return nil
}

// PlotConfigs box-plots per-trial results, one box per name.
func (e *Emitter) PlotConfigs(csvPaths, names []string, outPath string) error {
	if len(csvPaths) != len(names) {
		return fmt.Errorf("failed to plot %s: %d files for %d names", outPath, len(csvPaths), len(names))
	}
	if err := e.Plotter.PlotConfigs(csvPaths, names, outPath); err != nil {
		return fmt.Errorf("failed to plot %s: %w", outPath, err)
	}
	return nil
}
