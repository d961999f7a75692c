package builder

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/imishinist/expctl/internal/registry"
	"github.com/imishinist/expctl/internal/runner"
)

// Architecture describes a network for the external model builder.
type Architecture struct {
	Kind       string // linear, mlp or cnn
	Conv       []int  // [omaps,krows,kcols,kconn,kdrow,kdcol]+
	Affine     []int  // [omaps,orows,ocols]+
	Activation string
	IMaps      int
	IRows      int
	ICols      int
	OMaps      int
	ORows      int
	OCols      int
}

// Validate checks the closed names; dimensions are left to the builder.
func (a Architecture) Validate() error {
	if _, err := registry.Architecture(a.Kind); err != nil {
		return err
	}
	if a.Kind != "linear" {
		if _, err := registry.Activation(a.Activation); err != nil {
			return err
		}
	}
	return nil
}

// Args renders the builder command line writing the model description to jsonPath.
func (a Architecture) Args(jsonPath string) []string {
	args := []string{"--" + a.Kind}
	if a.Kind != "linear" {
		args = append(args,
			"--act-type", a.Activation,
			"--conv3d-param", joinInts(a.Conv),
			"--affine-param", joinInts(a.Affine),
		)
	}
	args = append(args,
		"--imaps", strconv.Itoa(a.IMaps),
		"--irows", strconv.Itoa(a.IRows),
		"--icols", strconv.Itoa(a.ICols),
		"--omaps", strconv.Itoa(a.OMaps),
		"--orows", strconv.Itoa(a.ORows),
		"--ocols", strconv.Itoa(a.OCols),
		"--json", jsonPath,
	)
	return args
}

func joinInts(vs []int) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

// External invokes the model builder executable.
type External struct {
	Runner  runner.Runner
	Command string
}

// Build runs the builder synchronously and returns once jsonPath is written.
func (e *External) Build(ctx context.Context, arch Architecture, jsonPath string) error {
	if err := arch.Validate(); err != nil {
		return err
	}
	err := e.Runner.Run(ctx, runner.Invocation{
		Tool: runner.ToolBuilder,
		Path: e.Command,
		Args: arch.Args(jsonPath),
	})
	if err != nil {
		return fmt.Errorf("failed to build model %s: %w", jsonPath, err)
	}
	return nil
}
