package report

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestCSVHeaderAndRow(t *testing.T) {
	if got := CSVHeader(); got != "model;trainer;enhancer;loss;test_value;test_error;epoch;speed;seconds" {
		t.Errorf("CSVHeader() = %s", got)
	}

	got := CSVRow("mlp0", "gd", "", "cauchy", "0.42", "0.10", "37", "12.5", "83.456")
	if got != "mlp0;gd;;cauchy;0.42;0.10;37;12.5;83.456" {
		t.Errorf("CSVRow() = %s", got)
	}

	// a delimiter inside a value is quoted rather than shifting columns
	got = CSVRow("a;b", "gd", "", "cauchy", "1", "2", "3", "4", "5")
	if !strings.HasPrefix(got, `"a;b";gd`) {
		t.Errorf("CSVRow() with delimiter = %s", got)
	}
}

func TestWriteReadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "result.csv")
	rows := []Row{
		{Model: "mlp0", Trainer: "gd", Loss: "cauchy", Value: "0.1", Error: "0.2", Epoch: "3", Speed: "4", Duration: "5"},
		{Model: "mlp1", Trainer: "gd", Loss: "cauchy", Value: "0.6", Error: "0.7", Epoch: "8", Speed: "9", Duration: "10"},
	}
	if err := WriteCSV(path, rows); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if lines[0] != CSVHeader() || lines[1] != CSVRow("mlp0", "gd", "", "cauchy", "0.1", "0.2", "3", "4", "5") {
		t.Errorf("file content:\n%s", data)
	}

	got, err := ReadCSV(path)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, rows) {
		t.Errorf("ReadCSV() = %+v", got)
	}
	if got[1].Result(2) != "8" {
		t.Errorf("Result(2) = %s, want epoch", got[1].Result(2))
	}

	// rewriting replaces the previous content
	if err := WriteCSV(path, rows[:1]); err != nil {
		t.Fatal(err)
	}
	if got, _ := ReadCSV(path); len(got) != 1 {
		t.Errorf("rows after rewrite = %d", len(got))
	}
}

func TestBuiltinTabulator(t *testing.T) {
	path := filepath.Join(t.TempDir(), "result.csv")
	if err := WriteCSV(path, []Row{{Model: "mlp0", Value: "0.42", Error: "0.1", Epoch: "37", Speed: "12.5", Duration: "83"}}); err != nil {
		t.Fatal(err)
	}

	table, err := BuiltinTabulator{}.Tabulate(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(table, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("table:\n%s", table)
	}
	if !strings.HasPrefix(lines[0], "model  ") || !strings.HasPrefix(lines[1], "-----") {
		t.Errorf("table:\n%s", table)
	}
	if strings.Index(lines[0], "test_value") != strings.Index(lines[2], "0.42") {
		t.Errorf("columns not aligned:\n%s", table)
	}
}

type fakePlotter struct {
	calls []string
}

func (f *fakePlotter) PlotTrial(statePath, outPath string) error {
	f.calls = append(f.calls, "trial:"+outPath)
	return nil
}

func (f *fakePlotter) PlotTrials(statePaths []string, outPath string) error {
	f.calls = append(f.calls, "trials:"+outPath)
	return nil
}

func (f *fakePlotter) PlotConfigs(csvPaths, names []string, outPath string) error {
	f.calls = append(f.calls, "configs:"+outPath)
	return nil
}

func TestEmitter(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "r.csv")
	logPath := filepath.Join(dir, "r.log")
	if err := WriteCSV(csvPath, nil); err != nil {
		t.Fatal(err)
	}

	var console bytes.Buffer
	p := &fakePlotter{}
	e := &Emitter{Tabulator: BuiltinTabulator{}, Plotter: p, Console: &console}

	if err := e.Tabulate(context.Background(), csvPath, logPath); err != nil {
		t.Fatal(err)
	}
	written, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(written) != console.String() || !strings.Contains(console.String(), "test_error") {
		t.Errorf("log = %q, console = %q", written, console.String())
	}

	if err := e.PlotConfigs([]string{"a.csv"}, []string{"a", "b"}, "x.pdf"); err == nil {
		t.Error("expected error for mismatched names")
	}
	if err := e.PlotOne("s", "one.pdf"); err != nil {
		t.Fatal(err)
	}
	if err := e.PlotMany([]string{"s"}, "many.pdf"); err != nil {
		t.Fatal(err)
	}
	if want := []string{"trial:one.pdf", "trials:many.pdf"}; !reflect.DeepEqual(p.calls, want) {
		t.Errorf("plot calls = %v", p.calls)
	}
}
