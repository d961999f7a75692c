package parser

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const yamlPlan = `name: iris
trials: 5
task:
  name: iris
shared:
  epochs: 100
models:
  - name: mlp0
    layers:
      - kind: affine
        out: 10
        activation: act-snorm
      - kind: output
        out: 3
  - name: mlp1
    architecture:
      kind: mlp
      affine: [20, 10]
      activation: act-tanh
      imaps: 1
      irows: 4
      icols: 1
      omaps: 3
      orows: 1
      ocols: 1
trainers:
  - name: gd
    type: batch
    solver: gd
    epochs: 200
  - name: custom
    payload: "--epochs {epochs}"
losses: [cauchy, classnll]
`

const jsonPlan = `{
  "task": {"name": "synth-affine", "params": {"isize": 5}},
  "models": [{"name": "lin", "payload": "linear"}],
  "trainers": [{"name": "adam", "type": "stoch", "solver": "adam", "batch": 16}],
  "losses": ["square"]
}`

func writePlan(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadPlanYAML(t *testing.T) {
	plan, err := LoadPlan(writePlan(t, "iris.yaml", yamlPlan))
	if err != nil {
		t.Fatal(err)
	}
	if plan.Name != "iris" || plan.Trials != 5 || plan.Shared.Epochs != 100 {
		t.Errorf("plan = %+v", plan)
	}
	if len(plan.Models) != 2 || len(plan.Models[0].Layers) != 2 || plan.Models[0].Layers[1].Kind != "output" {
		t.Errorf("models = %+v", plan.Models)
	}
	if arch := plan.Models[1].Architecture; arch == nil || arch.Kind != "mlp" || len(arch.Affine) != 2 {
		t.Errorf("architecture = %+v", arch)
	}
	if plan.Trainers[1].Payload != "--epochs {epochs}" {
		t.Errorf("trainers = %+v", plan.Trainers)
	}
	if strings.Join(plan.Losses, ",") != "cauchy,classnll" {
		t.Errorf("losses = %v", plan.Losses)
	}
}

func TestLoadPlanJSON(t *testing.T) {
	plan, err := LoadPlan(writePlan(t, "affine.json", jsonPlan))
	if err != nil {
		t.Fatal(err)
	}
	// named after the file
	if plan.Name != "affine" {
		t.Errorf("Name = %s", plan.Name)
	}
	if plan.Task.Params["isize"] != float64(5) {
		t.Errorf("task params = %v", plan.Task.Params)
	}
	if plan.Trainers[0].Batch != 16 {
		t.Errorf("trainers = %+v", plan.Trainers)
	}
}

func TestLoadPlanErrors(t *testing.T) {
	tests := map[string]string{
		"plan.toml":    "name = 'x'",
		"unknown.json": `{"modles": []}`,
		"unknown.yaml": "modles: []\n",
		"broken.yaml":  "models: [\n",
	}
	for name, content := range tests {
		if _, err := LoadPlan(writePlan(t, name, content)); err == nil {
			t.Errorf("LoadPlan(%s) succeeded", name)
		}
	}
	if _, err := LoadPlan(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("LoadPlan(missing) succeeded")
	}
}
