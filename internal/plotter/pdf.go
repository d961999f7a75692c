package plotter

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgpdf"

	"github.com/imishinist/expctl/internal/report"
)

const (
	pageWidth  = 6 * vg.Inch
	pageHeight = 4 * vg.Inch
	boxWidth   = 20
)

// PDF renders one page per tracked metric into a PDF document.
type PDF struct{}

func newPlot(title, xLabel, yLabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel

	grid := plotter.NewGrid()
	grid.Vertical.Dashes = []vg.Length{vg.Points(2), vg.Points(2)}
	grid.Horizontal.Dashes = []vg.Length{vg.Points(2), vg.Points(2)}
	p.Add(grid)
	return p
}

func addLine(p *plot.Plot, ix int, label string, xs, ys []float64) error {
	pts := make(plotter.XYs, len(xs))
	for i := range xs {
		pts[i].X = xs[i]
		pts[i].Y = ys[i]
	}
	l, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("failed to plot %s: %w", label, err)
	}
	l.Color = plotutil.Color(ix)
	p.Add(l)
	p.Legend.Add(label, l)
	return nil
}

func savePDF(pages []*plot.Plot, outPath string) error {
	c := vgpdf.New(pageWidth, pageHeight)
	for i, p := range pages {
		if i > 0 {
			c.NextPage()
		}
		p.Draw(draw.New(c))
	}

	file, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", outPath, err)
	}
	defer file.Close()

	if _, err := c.WriteTo(file); err != nil {
		return fmt.Errorf("failed to write %s: %w", outPath, err)
	}
	return file.Close()
}

func baseName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

// PlotTrial draws the loss and error curves (train, valid, test) of one trial.
func (PDF) PlotTrial(statePath, outPath string) error {
	state, err := ReadState(statePath)
	if err != nil {
		return err
	}
	epochs := state.Column("epoch")

	var pages []*plot.Plot
	for _, metric := range []string{"loss", "error"} {
		p := newPlot(state.Name, "epoch", metric)
		for i, split := range []string{"train", "valid", "test"} {
			name := split + "_" + metric
			if err := addLine(p, i, name, epochs, state.Column(name)); err != nil {
				return err
			}
		}
		pages = append(pages, p)
	}
	return savePDF(pages, outPath)
}

// PlotTrials overlays several runs, one page per metric against epochs and
// against elapsed seconds.
func (PDF) PlotTrials(statePaths []string, outPath string) error {
	if len(statePaths) == 0 {
		return fmt.Errorf("no state files to plot")
	}
	states := make([]*State, 0, len(statePaths))
	for _, path := range statePaths {
		state, err := ReadState(path)
		if err != nil {
			return err
		}
		states = append(states, state)
	}

	var pages []*plot.Plot
	for _, metric := range StateColumns[1 : len(StateColumns)-1] {
		for _, x := range []string{"epoch", "seconds"} {
			p := newPlot(metric, x, metric[strings.Index(metric, "_")+1:])
			for i, state := range states {
				if err := addLine(p, i, state.Name, state.Column(x), state.Column(metric)); err != nil {
					return err
				}
			}
			pages = append(pages, p)
		}
	}
	return savePDF(pages, outPath)
}

// PlotConfigs box-plots every result column of per-trial CSV files, one box
// per configuration name.
func (PDF) PlotConfigs(csvPaths, names []string, outPath string) error {
	if len(csvPaths) != len(names) {
		return fmt.Errorf("%d files for %d names", len(csvPaths), len(names))
	}
	if len(csvPaths) == 0 {
		return fmt.Errorf("no result files to plot")
	}

	tables := make([][]report.Row, len(csvPaths))
	for i, path := range csvPaths {
		rows, err := report.ReadCSV(path)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return fmt.Errorf("%s has no trial rows", path)
		}
		tables[i] = rows
	}

	title := baseName(outPath)
	var pages []*plot.Plot
	for col, column := range report.ResultColumns {
		p := newPlot(title, "", column)
		for i, rows := range tables {
			values := make(plotter.Values, len(rows))
			for j, row := range rows {
				v, err := strconv.ParseFloat(row.Result(col), 64)
				if err != nil {
					return fmt.Errorf("%s: %s: %w", csvPaths[i], column, err)
				}
				values[j] = v
			}
			box, err := plotter.NewBoxPlot(vg.Points(boxWidth), float64(i), values)
			if err != nil {
				return fmt.Errorf("failed to plot %s: %w", names[i], err)
			}
			p.Add(box)
		}
		p.NominalX(names...)
		pages = append(pages, p)
	}
	return savePDF(pages, outPath)
}
