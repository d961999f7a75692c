package experiment

import (
	"context"
	"fmt"

	"github.com/imishinist/expctl/internal/builder"
	"github.com/imishinist/expctl/internal/models"
	"github.com/imishinist/expctl/internal/registry"
)

var trainerTypes = []string{"batch", "stoch"}

// Register translates a plan into registrations, stopping at the first
// invalid entry.
func (e *Experiment) Register(ctx context.Context, plan *models.Plan) error {
	e.SetShared(plan.Shared)

	task, err := e.taskConfig(plan.Task)
	if err != nil {
		return fmt.Errorf("task %s: %w", plan.Task.Name, err)
	}
	if err := e.SetTask(task); err != nil {
		return err
	}

	for _, m := range plan.Models {
		if err := e.registerModel(ctx, m); err != nil {
			return err
		}
	}
	for _, t := range plan.Trainers {
		if err := e.registerTrainer(t, plan.Shared); err != nil {
			return fmt.Errorf("trainer %s: %w", t.Name, err)
		}
	}
	for _, name := range plan.Enhancers {
		cfg, err := registry.Enhancer(name)
		if err != nil {
			return err
		}
		if err := e.AddEnhancer(name, cfg); err != nil {
			return err
		}
	}
	for _, name := range plan.Losses {
		cfg, err := registry.Loss(name)
		if err != nil {
			return err
		}
		if err := e.AddLoss(name, cfg); err != nil {
			return err
		}
	}
	return nil
}

func (e *Experiment) taskConfig(t models.TaskPlan) (registry.TaskConfig, error) {
	if t.Name == "" {
		return registry.TaskConfig{}, fmt.Errorf("task name is required")
	}
	if len(t.Params) > 0 || registry.SyntheticTasks.Contains(t.Name) {
		return registry.SyntheticTask(t.Name, t.Params)
	}
	root := e.opts.DatasetsDir
	if t.Dir != "" {
		root = t.Dir
	}
	return registry.Task(root, t.Name), nil
}

func (e *Experiment) registerModel(ctx context.Context, m models.ModelPlan) error {
	switch {
	case m.Architecture != nil:
		a := m.Architecture
		return e.AddBuiltModel(ctx, m.Name, builder.Architecture{
			Kind:       a.Kind,
			Conv:       a.Conv,
			Affine:     a.Affine,
			Activation: a.Activation,
			IMaps:      a.IMaps,
			IRows:      a.IRows,
			ICols:      a.ICols,
			OMaps:      a.OMaps,
			ORows:      a.ORows,
			OCols:      a.OCols,
		})
	case len(m.Layers) > 0:
		spec, err := modelSpec(m.Layers)
		if err != nil {
			return fmt.Errorf("model %s: %w", m.Name, err)
		}
		return e.AddModel(m.Name, spec)
	case m.Payload != "":
		return e.AddModel(m.Name, m.Payload)
	default:
		return fmt.Errorf("model %s: one of payload, layers or architecture is required", m.Name)
	}
}

func modelSpec(layers []models.LayerPlan) (*builder.ModelSpec, error) {
	spec := builder.NewModel()
	for i, l := range layers {
		if l.Activation != "" {
			if _, err := registry.Activation(l.Activation); err != nil {
				return nil, fmt.Errorf("layer %d: %w", i+1, err)
			}
		}
		switch l.Kind {
		case "affine":
			spec.Append(builder.Affine(l.Out, l.Activation))
		case "conv":
			spec.Append(builder.Conv(l.Out, l.Rows, l.Cols, orDefault(l.Groups, 1), orDefault(l.StrideRows, 1), orDefault(l.StrideCols, 1), l.Activation))
		case "norm":
			spec.Append(builder.Norm(l.Norm, l.Activation))
		case "output":
			spec.Append(builder.Output(l.Out))
		default:
			return nil, fmt.Errorf("layer %d: unknown kind %q (valid: affine, conv, norm, output)", i+1, l.Kind)
		}
	}
	return spec, nil
}

func (e *Experiment) registerTrainer(t models.TrainerPlan, shared models.Shared) error {
	if t.Payload != "" {
		return e.AddTrainer(t.Name, t.Payload)
	}

	epochs := orDefault(t.Epochs, orDefault(shared.Epochs, registry.DefaultEpochs))
	patience := orDefault(t.Patience, orDefault(shared.Patience, registry.DefaultPatience))
	epsilon := t.Epsilon
	if epsilon == 0 {
		epsilon = registry.DefaultEpsilon
	}

	var cfg registry.TrainerConfig
	var err error
	switch t.Type {
	case "batch":
		cfg, err = registry.BatchTrainer(t.Solver, epochs, patience, epsilon)
	case "stoch":
		batch := orDefault(t.Batch, orDefault(shared.Batch, registry.DefaultBatch))
		cfg, err = registry.StochTrainer(t.Solver, epochs, patience, epsilon, batch, t.TuneEpochs)
	default:
		err = &registry.NameError{Kind: "trainer type", Name: t.Type, Valid: trainerTypes}
	}
	if err != nil {
		return err
	}
	return e.AddTrainer(t.Name, cfg)
}
