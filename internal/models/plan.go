package models

// Plan describes one experiment: a task and the four configuration axes.
type Plan struct {
	Name      string        `json:"name" yaml:"name"`
	OutDir    string        `json:"outdir,omitempty" yaml:"outdir,omitempty"`
	Trials    int           `json:"trials,omitempty" yaml:"trials,omitempty"`
	Task      TaskPlan      `json:"task" yaml:"task"`
	Shared    Shared        `json:"shared,omitempty" yaml:"shared,omitempty"`
	Models    []ModelPlan   `json:"models" yaml:"models"`
	Trainers  []TrainerPlan `json:"trainers" yaml:"trainers"`
	Losses    []string      `json:"losses" yaml:"losses"`
	Enhancers []string      `json:"enhancers,omitempty" yaml:"enhancers,omitempty"`
}

// Shared values substituted into string payloads as {epochs}, {patience} and {batch}.
type Shared struct {
	Epochs   int `json:"epochs,omitempty" yaml:"epochs,omitempty"`
	Patience int `json:"patience,omitempty" yaml:"patience,omitempty"`
	Batch    int `json:"batch,omitempty" yaml:"batch,omitempty"`
}

// TaskPlan names a dataset under the datasets directory, or a synthetic
// task when Params is set.
type TaskPlan struct {
	Name   string         `json:"name" yaml:"name"`
	Dir    string         `json:"dir,omitempty" yaml:"dir,omitempty"`
	Params map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
}

// ModelPlan holds exactly one of Payload, Layers or Architecture.
type ModelPlan struct {
	Name         string            `json:"name" yaml:"name"`
	Payload      string            `json:"payload,omitempty" yaml:"payload,omitempty"`
	Layers       []LayerPlan       `json:"layers,omitempty" yaml:"layers,omitempty"`
	Architecture *ArchitecturePlan `json:"architecture,omitempty" yaml:"architecture,omitempty"`
}

type LayerPlan struct {
	Kind       string `json:"kind" yaml:"kind"` // affine, conv, norm, output
	Out        int    `json:"out,omitempty" yaml:"out,omitempty"`
	Rows       int    `json:"rows,omitempty" yaml:"rows,omitempty"`
	Cols       int    `json:"cols,omitempty" yaml:"cols,omitempty"`
	Groups     int    `json:"groups,omitempty" yaml:"groups,omitempty"`
	StrideRows int    `json:"stride_rows,omitempty" yaml:"stride_rows,omitempty"`
	StrideCols int    `json:"stride_cols,omitempty" yaml:"stride_cols,omitempty"`
	Norm       string `json:"norm,omitempty" yaml:"norm,omitempty"`
	Activation string `json:"activation,omitempty" yaml:"activation,omitempty"`
}

// ArchitecturePlan is handed to the external model builder.
type ArchitecturePlan struct {
	Kind       string `json:"kind" yaml:"kind"` // linear, mlp, cnn
	Conv       []int  `json:"conv,omitempty" yaml:"conv,omitempty"`
	Affine     []int  `json:"affine,omitempty" yaml:"affine,omitempty"`
	Activation string `json:"activation,omitempty" yaml:"activation,omitempty"`
	IMaps      int    `json:"imaps" yaml:"imaps"`
	IRows      int    `json:"irows" yaml:"irows"`
	ICols      int    `json:"icols" yaml:"icols"`
	OMaps      int    `json:"omaps" yaml:"omaps"`
	ORows      int    `json:"orows" yaml:"orows"`
	OCols      int    `json:"ocols" yaml:"ocols"`
}

type TrainerPlan struct {
	Name       string  `json:"name" yaml:"name"`
	Type       string  `json:"type" yaml:"type"` // batch or stoch
	Solver     string  `json:"solver" yaml:"solver"`
	Epochs     int     `json:"epochs,omitempty" yaml:"epochs,omitempty"`
	Patience   int     `json:"patience,omitempty" yaml:"patience,omitempty"`
	Epsilon    float64 `json:"epsilon,omitempty" yaml:"epsilon,omitempty"`
	Batch      int     `json:"batch,omitempty" yaml:"batch,omitempty"`
	TuneEpochs int     `json:"tune_epochs,omitempty" yaml:"tune_epochs,omitempty"`
	Payload    string  `json:"payload,omitempty" yaml:"payload,omitempty"`
}
