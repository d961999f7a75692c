package experiment

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/imishinist/expctl/internal/builder"
	"github.com/imishinist/expctl/internal/models"
	"github.com/imishinist/expctl/internal/registry"
)

// ConfigFile is a payload already written to disk; its path is passed as is.
type ConfigFile string

// Selection holds the names chosen on each axis, in registration order.
type Selection struct {
	Models    []string
	Trainers  []string
	Enhancers []string
	Losses    []string
}

func (e *Experiment) AddModel(name string, payload any) error {
	return e.add(e.models, name, payload)
}

func (e *Experiment) AddTrainer(name string, payload any) error {
	return e.add(e.trainers, name, payload)
}

func (e *Experiment) AddEnhancer(name string, payload any) error {
	return e.add(e.enhancers, name, payload)
}

func (e *Experiment) AddLoss(name string, payload any) error {
	return e.add(e.losses, name, payload)
}

// AddBuiltModel runs the model builder for arch and registers its output.
func (e *Experiment) AddBuiltModel(ctx context.Context, name string, arch builder.Architecture) error {
	if err := models.ValidateName(name); err != nil {
		return fmt.Errorf("model: %w", err)
	}
	path := e.namer.ConfigPath(e.models.Label, name)
	if e.opts.ReuseModels {
		if _, err := os.Stat(path); err == nil {
			return e.add(e.models, name, ConfigFile(path))
		}
	}
	if e.opts.Builder == nil {
		return fmt.Errorf("model %s: no model builder configured", name)
	}
	if err := e.opts.Builder.Build(ctx, arch, path); err != nil {
		return fmt.Errorf("model %s: %w", name, err)
	}
	return e.add(e.models, name, ConfigFile(path))
}

// add registers a payload, writing structured payloads to the config
// directory so registration errors surface before any training starts.
func (e *Experiment) add(axis *models.Axis, name string, payload any) error {
	if err := models.ValidateName(name); err != nil {
		return fmt.Errorf("%s: %w", axis.Label, err)
	}
	switch p := payload.(type) {
	case string, ConfigFile:
		e.logger.Debug("registered", "axis", axis.Label, "name", name, "payload", p)
	case *builder.ModelSpec:
		e.logger.Debug("registered", "axis", axis.Label, "name", name, "layers", p.Flat())
		if err := e.writeJSON(e.namer.ConfigPath(axis.Label, name), p); err != nil {
			return err
		}
	default:
		e.logger.Debug("registered", "axis", axis.Label, "name", name)
		if err := e.writeJSON(e.namer.ConfigPath(axis.Label, name), p); err != nil {
			return err
		}
	}
	return axis.Add(name, payload)
}

func (e *Experiment) writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// SetTask writes the task descriptor to the config directory.
func (e *Experiment) SetTask(task any) error {
	path := e.namer.TaskPath()
	if err := e.writeJSON(path, task); err != nil {
		return fmt.Errorf("task: %w", err)
	}
	e.taskPath = path
	return nil
}

// SetShared sets the values substituted into string payloads.
func (e *Experiment) SetShared(shared models.Shared) {
	e.shared = shared
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func (e *Experiment) substitute(payload string) string {
	return strings.NewReplacer(
		"{epochs}", strconv.Itoa(orDefault(e.shared.Epochs, registry.DefaultEpochs)),
		"{patience}", strconv.Itoa(orDefault(e.shared.Patience, registry.DefaultPatience)),
		"{batch}", strconv.Itoa(orDefault(e.shared.Batch, registry.DefaultBatch)),
	).Replace(payload)
}

// argument renders the trainer argument for a registered name.
func (e *Experiment) argument(axis *models.Axis, name string) (string, error) {
	nc, ok := axis.Get(name)
	if !ok {
		return "", fmt.Errorf("unknown %s %q", axis.Label, name)
	}
	switch p := nc.Payload.(type) {
	case string:
		return e.substitute(p), nil
	case ConfigFile:
		return string(p), nil
	default:
		return e.namer.ConfigPath(axis.Label, name), nil
	}
}

// FilterNames selects, per axis, the names matching each pattern from their
// first character. An empty pattern selects every name.
func (e *Experiment) FilterNames(model, trainer, enhancer, loss string) (Selection, error) {
	var sel Selection
	var err error
	if sel.Models, err = e.models.Match(model); err != nil {
		return Selection{}, err
	}
	if sel.Trainers, err = e.trainers.Match(trainer); err != nil {
		return Selection{}, err
	}
	if sel.Enhancers, err = e.enhancers.Match(enhancer); err != nil {
		return Selection{}, err
	}
	if sel.Losses, err = e.losses.Match(loss); err != nil {
		return Selection{}, err
	}
	return sel, nil
}

// Names returns every registered name per axis.
func (e *Experiment) Names() Selection {
	return Selection{
		Models:    e.models.Names(),
		Trainers:  e.trainers.Names(),
		Enhancers: e.enhancers.Names(),
		Losses:    e.losses.Names(),
	}
}
