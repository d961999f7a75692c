package stats

import (
	"context"
	"reflect"
	"testing"

	"github.com/imishinist/expctl/internal/runner"
)

func TestBuiltin(t *testing.T) {
	tests := []struct {
		precision int
		values    []string
		want      string
	}{
		{3, []string{"0.5"}, "0.500+/-0.000"},
		{2, []string{"1", "3"}, "2.00+/-1.41"},
		{0, []string{"10", "20", "30"}, "20+/-10"},
	}
	for _, tt := range tests {
		got, err := Builtin{}.Summarize(context.Background(), tt.precision, tt.values)
		if err != nil {
			t.Fatalf("Summarize(%v): %v", tt.values, err)
		}
		if got != tt.want {
			t.Errorf("Summarize(%d, %v) = %s, want %s", tt.precision, tt.values, got, tt.want)
		}
	}

	if _, err := (Builtin{}).Summarize(context.Background(), 1, []string{"x"}); err == nil {
		t.Error("expected error for non-numeric value")
	}
	if _, err := (Builtin{}).Summarize(context.Background(), 1, nil); err == nil {
		t.Error("expected error for no values")
	}
}

type echoRunner struct {
	got runner.Invocation
}

func (r *echoRunner) Run(_ context.Context, inv runner.Invocation) error {
	r.got = inv
	_, err := inv.Stdout.Write([]byte("  1.0+/-0.1\n"))
	return err
}

func TestExternal(t *testing.T) {
	r := &echoRunner{}
	s := &External{Runner: r, Command: "stats"}

	got, err := s.Summarize(context.Background(), 3, []string{"0.9", "1.1"})
	if err != nil {
		t.Fatal(err)
	}
	if got != "1.0+/-0.1" {
		t.Errorf("summary = %q", got)
	}
	if want := []string{"-p", "3", "0.9", "1.1"}; !reflect.DeepEqual(r.got.Args, want) {
		t.Errorf("args = %v, want %v", r.got.Args, want)
	}
	if r.got.Tool != runner.ToolStats {
		t.Errorf("tool = %s", r.got.Tool)
	}
}
