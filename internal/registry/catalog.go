package registry

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	ErrInvalidConfigName = errors.New("invalid configuration name")
	ErrInvalidParameter  = errors.New("invalid configuration parameter")
)

// NameError reports a name missing from one of the closed catalogs.
type NameError struct {
	Kind  string
	Name  string
	Valid []string
}

func (e *NameError) Error() string {
	return fmt.Sprintf("invalid %s: %q (valid: %s)", e.Kind, e.Name, strings.Join(e.Valid, ", "))
}

func (e *NameError) Unwrap() error {
	return ErrInvalidConfigName
}

// Catalog is a closed, ordered set of identifiers.
type Catalog struct {
	Kind  string
	Names []string
}

func (c Catalog) Contains(name string) bool {
	return slices.Contains(c.Names, name)
}

// Check returns a *NameError if name is not in the catalog.
func (c Catalog) Check(name string) error {
	if !c.Contains(name) {
		return &NameError{Kind: c.Kind, Name: name, Valid: c.Names}
	}
	return nil
}

var (
	Losses = Catalog{Kind: "loss", Names: []string{
		"cauchy",        // regression (robust to noise)
		"square",        // regression
		"classnll",      // classification (single label)
		"s-logistic",    // classification (single label)
		"m-logistic",    // classification (multi label)
		"s-exponential", // classification (single label)
		"m-exponential", // classification (multi label)
	}}

	Enhancers = Catalog{Kind: "enhancer", Names: []string{
		"default",
		"noise",
		"warp",
		"noclass",
	}}

	BatchSolvers = Catalog{Kind: "batch solver", Names: []string{
		"gd", "cgd", "lbfgs",
	}}

	StochSolvers = Catalog{Kind: "stochastic solver", Names: []string{
		"ag", "agfr", "aggr",
		"sg", "sgm", "ngd", "svrg", "asgd",
		"adagrad", "adadelta", "adam", "rmsprop",
	}}

	Activations = Catalog{Kind: "activation", Names: []string{
		"act-unit",
		"act-sin",   // [-1, +1]
		"act-tanh",  // [-1, +1]
		"act-splus", // [ 0,  1]
		"act-snorm", // [-1, +1]
		"act-ssign", // [-1, +1]
		"act-sigm",  // [ 0,  1]
		"act-pwave", // [-1, +1]
	}}

	Architectures = Catalog{Kind: "architecture", Names: []string{
		"linear", "mlp", "cnn",
	}}

	SyntheticTasks = Catalog{Kind: "synthetic task", Names: []string{
		"synth-charset", "synth-nparity", "synth-affine", "synth-peak2d",
	}}
)

// All lists every catalog, in the order the CLI prints them.
func All() []Catalog {
	return []Catalog{Losses, Enhancers, BatchSolvers, StochSolvers, Activations, Architectures, SyntheticTasks}
}

// Activation validates an activation name.
func Activation(name string) (string, error) {
	if err := Activations.Check(name); err != nil {
		return "", err
	}
	return name, nil
}

// Architecture validates a model builder architecture name.
func Architecture(name string) (string, error) {
	if err := Architectures.Check(name); err != nil {
		return "", err
	}
	return name, nil
}
