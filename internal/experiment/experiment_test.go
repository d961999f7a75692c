package experiment

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/imishinist/expctl/internal/builder"
	"github.com/imishinist/expctl/internal/ledger"
	"github.com/imishinist/expctl/internal/models"
	"github.com/imishinist/expctl/internal/naming"
	"github.com/imishinist/expctl/internal/registry"
	"github.com/imishinist/expctl/internal/report"
	"github.com/imishinist/expctl/internal/runner"
	"github.com/imishinist/expctl/internal/scraper"
	"github.com/imishinist/expctl/internal/stats"
)

// fakeTrainer writes a result line to the trial log instead of training.
type fakeTrainer struct {
	invocations []runner.Invocation
	failAt      int // 1-based; 0 never fails
	noResult    bool
}

func (f *fakeTrainer) Run(_ context.Context, inv runner.Invocation) error {
	f.invocations = append(f.invocations, inv)
	n := len(f.invocations)
	if n == f.failAt {
		return &runner.InvocationError{Tool: inv.Tool, Command: inv.CommandLine(), ExitCode: 3, Stderr: "diverged"}
	}
	if f.noResult {
		_, err := io.WriteString(inv.Stdout, "loading task\n")
		return err
	}
	_, err := fmt.Fprintf(inv.Stdout, "loading task\ntest=0.%d|0.1%d,epoch=%d,speed=1.5/s,time=00:00:%02d.500\n", n%10, n%10, n, n%60)
	return err
}

func (f *fakeTrainer) basepaths() []string {
	var out []string
	for _, inv := range f.invocations {
		i := slices.Index(inv.Args, "--basepath")
		out = append(out, inv.Args[i+1])
	}
	return out
}

type fakePlotter struct {
	calls []string
}

func (f *fakePlotter) PlotTrial(statePath, outPath string) error {
	f.calls = append(f.calls, "trial "+outPath)
	return nil
}

func (f *fakePlotter) PlotTrials(statePaths []string, outPath string) error {
	f.calls = append(f.calls, "trials "+outPath)
	return nil
}

func (f *fakePlotter) PlotConfigs(csvPaths, names []string, outPath string) error {
	f.calls = append(f.calls, "configs "+outPath)
	return nil
}

type fakeLedger struct {
	entries []ledger.Entry
}

func (f *fakeLedger) Record(e ledger.Entry) (int64, error) {
	f.entries = append(f.entries, e)
	return int64(len(f.entries)), nil
}

type fakeTracker struct {
	pubs []models.Publication
}

func (f *fakeTracker) Publish(_ context.Context, pub models.Publication) error {
	f.pubs = append(f.pubs, pub)
	return nil
}

type fixture struct {
	exp     *Experiment
	trainer *fakeTrainer
	plotter *fakePlotter
	ledger  *fakeLedger
	dir     string
}

func newFixture(t *testing.T, trials int) *fixture {
	t.Helper()
	f := &fixture{
		trainer: &fakeTrainer{},
		plotter: &fakePlotter{},
		ledger:  &fakeLedger{},
		dir:     filepath.Join(t.TempDir(), "iris"),
	}
	exp, err := New(Options{
		Dir:          f.dir,
		Trials:       trials,
		TrainCommand: "train",
		DatasetsDir:  "/data",
		Runner:       f.trainer,
		Statistician: stats.Builtin{},
		Emitter:      &report.Emitter{Tabulator: report.BuiltinTabulator{}, Plotter: f.plotter},
		Ledger:       f.ledger,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { exp.Close() })
	f.exp = exp
	return f
}

func mustAdd(t *testing.T, add func(string, any) error, name string, payload any) {
	t.Helper()
	if err := add(name, payload); err != nil {
		t.Fatal(err)
	}
}

func TestNewCreatesTree(t *testing.T) {
	f := newFixture(t, 3)
	for _, dir := range []string{"config", "summary", "result", "trial1", "trial2", "trial3"} {
		if info, err := os.Stat(filepath.Join(f.dir, dir)); err != nil || !info.IsDir() {
			t.Errorf("%s missing: %v", dir, err)
		}
	}
	if _, err := os.Stat(filepath.Join(f.dir, "trial4")); !os.IsNotExist(err) {
		t.Error("trial4 should not exist")
	}
	if _, err := os.Stat(filepath.Join(f.dir, "log")); err != nil {
		t.Errorf("log missing: %v", err)
	}

	// existing directories are not an error
	again, err := New(f.exp.opts)
	if err != nil {
		t.Fatal(err)
	}
	again.Close()
}

func TestNewDirectoryError(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := New(Options{
		Dir:          filepath.Join(file, "exp"),
		Trials:       1,
		Runner:       &fakeTrainer{},
		Statistician: stats.Builtin{},
		Emitter:      &report.Emitter{},
	})
	if !errors.Is(err, ErrDirectoryCreation) {
		t.Fatalf("err = %v, want ErrDirectoryCreation", err)
	}
	var dirErr *DirectoryError
	if !errors.As(err, &dirErr) || dirErr.Path != filepath.Join(file, "exp") {
		t.Errorf("DirectoryError = %+v", dirErr)
	}
}

func TestTrainWithoutTask(t *testing.T) {
	f := newFixture(t, 1)
	mustAdd(t, f.exp.AddModel, "mlp0", "mlp")
	if err := f.exp.TrainAll(context.Background()); !errors.Is(err, ErrNoTask) {
		t.Errorf("TrainAll() = %v, want ErrNoTask", err)
	}
	if len(f.trainer.invocations) != 0 {
		t.Error("trainer should not run without a task")
	}
}

func TestTrainAllInvocations(t *testing.T) {
	f := newFixture(t, 5)
	if err := f.exp.SetTask(registry.Task("/data", "iris")); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"mlp0", "mlp1"} {
		mustAdd(t, f.exp.AddModel, name, builder.NewModel(builder.Affine(10, "act-snorm"), builder.Output(3)))
	}
	for _, solver := range []string{"gd", "cgd", "lbfgs"} {
		cfg, err := registry.BatchTrainer(solver, 10, 5, 1e-6)
		if err != nil {
			t.Fatal(err)
		}
		mustAdd(t, f.exp.AddTrainer, solver, cfg)
	}
	enhancer, _ := registry.Enhancer("noise")
	mustAdd(t, f.exp.AddEnhancer, "noise", enhancer)
	for _, name := range []string{"cauchy", "square"} {
		loss, _ := registry.Loss(name)
		mustAdd(t, f.exp.AddLoss, name, loss)
	}

	if err := f.exp.TrainAll(context.Background()); err != nil {
		t.Fatal(err)
	}

	if got := len(f.trainer.invocations); got != 60 {
		t.Fatalf("trainer invoked %d times, want 60", got)
	}
	basepaths := f.trainer.basepaths()
	sorted := slices.Clone(basepaths)
	slices.Sort(sorted)
	unique := slices.Compact(sorted)
	if len(unique) != 60 {
		t.Errorf("%d distinct basepaths, want 60", len(unique))
	}
	if len(f.ledger.entries) != 60 {
		t.Errorf("ledger has %d entries", len(f.ledger.entries))
	}

	// iteration order is model, trainer, enhancer, loss, trial
	if want := filepath.Join(f.dir, "trial2", "Mmlp0_Tgd_Enoise_Lcauchy"); basepaths[1] != want {
		t.Errorf("second basepath = %s, want %s", basepaths[1], want)
	}
	if want := filepath.Join(f.dir, "trial1", "Mmlp0_Tgd_Enoise_Lsquare"); basepaths[5] != want {
		t.Errorf("sixth basepath = %s, want %s", basepaths[5], want)
	}

	for _, ext := range []string{".csv", ".stats", ".log"} {
		path := filepath.Join(f.dir, "result", "Mmlp1_Tlbfgs_Enoise_Lsquare"+ext)
		if _, err := os.Stat(path); err != nil {
			t.Errorf("missing %s: %v", path, err)
		}
	}
	rows, err := report.ReadCSV(filepath.Join(f.dir, "result", "Mmlp0_Tgd_Enoise_Lcauchy.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 5 || rows[0].Value != "0.1" || rows[0].Duration != "1.5" {
		t.Errorf("rows = %+v", rows)
	}
	stats, err := report.ReadCSV(filepath.Join(f.dir, "result", "Mmlp0_Tgd_Enoise_Lcauchy.stats"))
	if err != nil {
		t.Fatal(err)
	}
	if len(stats) != 1 || stats[0].Value != "0.300+/-0.158" || stats[0].Epoch != "3+/-2" {
		t.Errorf("stats = %+v", stats)
	}
}

func TestTrainScenario(t *testing.T) {
	f := newFixture(t, 1)
	if err := f.exp.SetTask(registry.Task("/data", "iris")); err != nil {
		t.Fatal(err)
	}
	loss, _ := registry.Loss("cauchy")
	mustAdd(t, f.exp.AddLoss, "cauchy", loss)
	gd, err := registry.BatchTrainer("gd", 10, 5, 1e-6)
	if err != nil {
		t.Fatal(err)
	}
	mustAdd(t, f.exp.AddTrainer, "gd", gd)
	mustAdd(t, f.exp.AddModel, "mlp0", builder.NewModel(builder.Affine(10, "act-snorm"), builder.Output(3)))

	if err := f.exp.TrainAll(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(f.trainer.invocations) != 1 {
		t.Fatalf("trainer invoked %d times", len(f.trainer.invocations))
	}

	inv := f.trainer.invocations[0]
	namer := f.exp.Namer()
	want := []string{
		"--task", namer.TaskPath(),
		"--loss", namer.ConfigPath("loss", "cauchy"),
		"--model", namer.ConfigPath("model", "mlp0"),
		"--trainer", namer.ConfigPath("trainer", "gd"),
		"--basepath", filepath.Join(f.dir, "trial1", "Mmlp0_Tgd_Lcauchy"),
	}
	if inv.Path != "train" || !slices.Equal(inv.Args, want) {
		t.Errorf("invocation = %s %v", inv.Path, inv.Args)
	}
	if !strings.HasSuffix(inv.Args[len(inv.Args)-1], "Mmlp0_Tgd_Lcauchy") {
		t.Errorf("basepath = %s", inv.Args[len(inv.Args)-1])
	}

	data, err := os.ReadFile(namer.ConfigPath("loss", "cauchy"))
	if err != nil || !strings.Contains(string(data), `"cauchy"`) {
		t.Errorf("loss payload = %s, %v", data, err)
	}
	data, err = os.ReadFile(namer.TaskPath())
	if err != nil || !strings.Contains(string(data), `"iris"`) {
		t.Errorf("task payload = %s, %v", data, err)
	}

	wantPlots := []string{
		"trial " + filepath.Join(f.dir, "trial1", "Mmlp0_Tgd_Lcauchy.pdf"),
		"trials " + filepath.Join(f.dir, "result", "Mmlp0_Tgd_Lcauchy.pdf"),
	}
	if !slices.Equal(f.plotter.calls, wantPlots) {
		t.Errorf("plot calls = %v", f.plotter.calls)
	}
}

func TestStringPayloadSubstitution(t *testing.T) {
	f := newFixture(t, 1)
	if err := f.exp.SetTask(registry.Task("/data", "iris")); err != nil {
		t.Fatal(err)
	}
	f.exp.SetShared(models.Shared{Epochs: 42})
	mustAdd(t, f.exp.AddModel, "lin", "linear")
	mustAdd(t, f.exp.AddTrainer, "custom", "--epochs {epochs} --batch {batch}")

	if err := f.exp.TrainAll(context.Background()); err != nil {
		t.Fatal(err)
	}
	args := f.trainer.invocations[0].Args
	if i := slices.Index(args, "--trainer"); args[i+1] != "--epochs 42 --batch 32" {
		t.Errorf("trainer payload = %q", args[i+1])
	}
	if i := slices.Index(args, "--model"); args[i+1] != "linear" {
		t.Errorf("model payload = %q", args[i+1])
	}
	// absent axes contribute neither a flag nor a segment
	if slices.Contains(args, "--loss") || slices.Contains(args, "--enhancer") {
		t.Errorf("args = %v", args)
	}
	if want := filepath.Join(f.dir, "trial1", "Mlin_Tcustom"); args[len(args)-1] != want {
		t.Errorf("basepath = %s", args[len(args)-1])
	}
}

func TestTrainFailFast(t *testing.T) {
	f := newFixture(t, 2)
	f.trainer.failAt = 3
	if err := f.exp.SetTask(registry.Task("/data", "iris")); err != nil {
		t.Fatal(err)
	}
	mustAdd(t, f.exp.AddModel, "a", "m")
	mustAdd(t, f.exp.AddModel, "b", "m")
	mustAdd(t, f.exp.AddModel, "c", "m")

	err := f.exp.TrainAll(context.Background())
	if !errors.Is(err, runner.ErrTrainerInvocation) {
		t.Fatalf("err = %v, want ErrTrainerInvocation", err)
	}
	if !strings.Contains(err.Error(), "Mb trial1") || !strings.Contains(err.Error(), "diverged") {
		t.Errorf("error lacks context: %v", err)
	}
	if len(f.trainer.invocations) != 3 {
		t.Errorf("trainer invoked %d times after failure", len(f.trainer.invocations))
	}
	last := f.ledger.entries[len(f.ledger.entries)-1]
	if last.ExitCode != 3 || last.Error == "" || last.Key.Model != "b" {
		t.Errorf("ledger entry = %+v", last)
	}
	if _, err := os.Stat(filepath.Join(f.dir, "result", "Mb.csv")); !os.IsNotExist(err) {
		t.Error("failed configuration should not have results")
	}
}

func TestTrainMalformedLog(t *testing.T) {
	f := newFixture(t, 1)
	f.trainer.noResult = true
	if err := f.exp.SetTask(registry.Task("/data", "iris")); err != nil {
		t.Fatal(err)
	}
	mustAdd(t, f.exp.AddModel, "a", "m")

	err := f.exp.TrainAll(context.Background())
	if !errors.Is(err, scraper.ErrMalformedLog) {
		t.Fatalf("err = %v, want ErrMalformedLog", err)
	}
	var malformed *scraper.MalformedLogError
	if !errors.As(err, &malformed) || malformed.Path != filepath.Join(f.dir, "trial1", "Ma.log") {
		t.Errorf("MalformedLogError = %+v", malformed)
	}
}

func TestTrainCanceled(t *testing.T) {
	f := newFixture(t, 1)
	if err := f.exp.SetTask(registry.Task("/data", "iris")); err != nil {
		t.Fatal(err)
	}
	mustAdd(t, f.exp.AddModel, "a", "m")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := f.exp.TrainAll(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("TrainAll() = %v, want context.Canceled", err)
	}
}

func TestTrainPublishes(t *testing.T) {
	f := newFixture(t, 2)
	tracker := &fakeTracker{}
	f.exp.opts.Tracker = tracker
	if err := f.exp.SetTask(registry.Task("/data", "iris")); err != nil {
		t.Fatal(err)
	}
	mustAdd(t, f.exp.AddModel, "a", "m")
	mustAdd(t, f.exp.AddLoss, "square", "square")

	if err := f.exp.TrainAll(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(tracker.pubs) != 1 {
		t.Fatalf("published %d times", len(tracker.pubs))
	}
	pub := tracker.pubs[0]
	if pub.Experiment != "iris" || pub.Key.Model != "a" || !pub.Key.Trial.IsAggregate() || len(pub.Trials) != 2 {
		t.Errorf("publication = %+v", pub)
	}
	// the fake plotter writes no pdf
	if len(pub.Artifacts) != 3 {
		t.Errorf("artifacts = %v", pub.Artifacts)
	}

	tracker.pubs = nil
	if err := f.exp.PublishSelection(context.Background(), f.exp.Names()); err != nil {
		t.Fatal(err)
	}
	if len(tracker.pubs) != 1 || tracker.pubs[0].Aggregate != pub.Aggregate || len(tracker.pubs[0].Trials) != 2 {
		t.Errorf("republished = %+v", tracker.pubs)
	}
}

func TestFilterNames(t *testing.T) {
	f := newFixture(t, 1)
	for _, name := range []string{"mlp0", "cnn1", "mlp2", "xmlp"} {
		mustAdd(t, f.exp.AddModel, name, "m")
	}
	mustAdd(t, f.exp.AddLoss, "cauchy", "cauchy")

	sel, err := f.exp.FilterNames("mlp", "", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(sel.Models, []string{"mlp0", "mlp2"}) {
		t.Errorf("Models = %v", sel.Models)
	}
	if !slices.Equal(sel.Losses, []string{"cauchy"}) || len(sel.Trainers) != 0 {
		t.Errorf("sel = %+v", sel)
	}

	all, _ := f.exp.FilterNames("", "", "", "")
	if !slices.Equal(all.Models, []string{"mlp0", "cnn1", "mlp2", "xmlp"}) {
		t.Errorf("Models = %v", all.Models)
	}
	if _, err := f.exp.FilterNames("(", "", "", ""); err == nil {
		t.Error("expected error for invalid pattern")
	}
}

func TestAddInvalidName(t *testing.T) {
	f := newFixture(t, 1)
	for _, name := range []string{"", "a_b", "a/b", "a b"} {
		if err := f.exp.AddModel(name, "m"); !errors.Is(err, models.ErrInvalidName) {
			t.Errorf("AddModel(%q) = %v", name, err)
		}
	}
}

func trainForSummary(t *testing.T) *fixture {
	t.Helper()
	f := newFixture(t, 2)
	if err := f.exp.SetTask(registry.Task("/data", "iris")); err != nil {
		t.Fatal(err)
	}
	mustAdd(t, f.exp.AddModel, "mlp0", "m0")
	mustAdd(t, f.exp.AddModel, "mlp1", "m1")
	mustAdd(t, f.exp.AddModel, "cnn0", "c0")
	mustAdd(t, f.exp.AddTrainer, "gd", "gd")
	mustAdd(t, f.exp.AddLoss, "cauchy", "cauchy")
	mustAdd(t, f.exp.AddLoss, "square", "square")
	if err := f.exp.TrainAll(context.Background()); err != nil {
		t.Fatal(err)
	}
	f.plotter.calls = nil
	return f
}

func TestSummarizeByModels(t *testing.T) {
	f := trainForSummary(t)
	ctx := context.Background()

	if err := f.exp.SummarizeByModels(ctx, ".*", ""); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(f.dir, "summary", "Mall_Tgd_Lcauchy.csv")
	first, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	rows, err := report.ReadCSV(path)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, r := range rows {
		names = append(names, r.Model)
		if r.Loss != "cauchy" || !strings.Contains(r.Value, "+/-") {
			t.Errorf("row = %+v", r)
		}
	}
	if !slices.Equal(names, []string{"mlp0", "mlp1", "cnn0"}) {
		t.Errorf("summary models = %v", names)
	}
	if _, err := os.Stat(filepath.Join(f.dir, "summary", "Mall_Tgd_Lsquare.log")); err != nil {
		t.Error(err)
	}

	// one box plot and one overlay per trial, for each of the two losses
	if len(f.plotter.calls) != 6 {
		t.Errorf("plot calls = %v", f.plotter.calls)
	}
	if want := "trials " + filepath.Join(f.dir, "trial2", "Mall_Tgd_Lsquare.pdf"); f.plotter.calls[5] != want {
		t.Errorf("last plot = %s, want %s", f.plotter.calls[5], want)
	}

	if err := f.exp.SummarizeByModels(ctx, ".*", ""); err != nil {
		t.Fatal(err)
	}
	second, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first, second) {
		t.Errorf("summary changed between runs:\n%s\n%s", first, second)
	}
}

func TestSummarizeSubset(t *testing.T) {
	f := trainForSummary(t)
	ctx := context.Background()

	if err := f.exp.SummarizeByModels(ctx, "mlp", ""); err != nil {
		t.Fatal(err)
	}
	rows, err := report.ReadCSV(filepath.Join(f.dir, "summary", "Mmlp_Tgd_Lsquare.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Errorf("rows = %+v", rows)
	}

	if err := f.exp.Summarize(ctx, ByLosses, "", "both"); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(f.dir, "summary", "Mcnn0_Tgd_Lboth.csv")); err != nil {
		t.Error(err)
	}

	tests := []struct {
		name    string
		kind    AxisKind
		pattern string
		label   string
	}{
		{"no match", ByModels, "rnn", ""},
		{"bad pattern", ByModels, "mlp[", ""},
		{"label is a name", ByModels, "", "mlp0"},
		{"bad axis", AxisKind("tasks"), "", ""},
	}
	for _, tt := range tests {
		if err := f.exp.Summarize(ctx, tt.kind, tt.pattern, tt.label); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}

func TestSummarizeRegexLabels(t *testing.T) {
	f := trainForSummary(t)
	ctx := context.Background()

	tests := []struct {
		pattern string
		label   string
		file    string
		rows    int
	}{
		{"mlp[01]", "", "Mmlp-01_Tgd_Lcauchy.csv", 2},
		{"cnn|mlp1", "", "Mcnn-mlp1_Tgd_Lcauchy.csv", 2},
		{"mlp0", "", "Mmlp0-group_Tgd_Lcauchy.csv", 1},
		{"cnn|mlp", "every", "Mevery_Tgd_Lcauchy.csv", 3},
	}
	for _, tt := range tests {
		if err := f.exp.SummarizeByModels(ctx, tt.pattern, tt.label); err != nil {
			t.Errorf("SummarizeByModels(%q, %q): %v", tt.pattern, tt.label, err)
			continue
		}
		rows, err := report.ReadCSV(filepath.Join(f.dir, "summary", tt.file))
		if err != nil {
			t.Error(err)
			continue
		}
		if len(rows) != tt.rows {
			t.Errorf("%s: rows = %d, want %d", tt.file, len(rows), tt.rows)
		}
	}

	if err := f.exp.SummarizeByLosses(ctx, "square|cauchy", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(f.dir, "summary", "Mmlp0_Tgd_Lsquare-cauchy.csv")); err != nil {
		t.Error(err)
	}
}

func TestSummarizeUntrained(t *testing.T) {
	f := newFixture(t, 1)
	mustAdd(t, f.exp.AddModel, "a", "m")
	if err := f.exp.SummarizeByModels(context.Background(), "", ""); err == nil {
		t.Error("expected error without results")
	}
}

func TestParseAxisKind(t *testing.T) {
	if kind, err := ParseAxisKind("trainers"); err != nil || kind != ByTrainers {
		t.Errorf("ParseAxisKind() = %v, %v", kind, err)
	}
	if _, err := ParseAxisKind("tasks"); err == nil {
		t.Error("expected error")
	}
}

func TestResultPathsMatchNamer(t *testing.T) {
	f := trainForSummary(t)
	key := models.RunKey{Model: "cnn0", Trainer: "gd", Loss: "square", Trial: models.Aggregate}
	if _, err := os.Stat(f.exp.Namer().Key(key, naming.ExtStats)); err != nil {
		t.Error(err)
	}
}
