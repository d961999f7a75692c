package builder

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Param is one layer parameter. Order is kept as given.
type Param struct {
	Key   string
	Value string
}

// LayerSpec is a typed layer with its parameters and an optional activation.
type LayerSpec struct {
	Kind       string
	Params     []Param
	Activation string
}

// Layer creates a layer. Numeric ranges are left to the external builder.
func Layer(kind string, params []Param, activation string) LayerSpec {
	return LayerSpec{Kind: kind, Params: params, Activation: activation}
}

func Affine(out int, activation string) LayerSpec {
	return Layer("affine", []Param{intParam("omaps", out)}, activation)
}

func Conv(out, krows, kcols, groups, drow, dcol int, activation string) LayerSpec {
	return Layer("conv", []Param{
		intParam("omaps", out),
		intParam("krows", krows),
		intParam("kcols", kcols),
		intParam("kconn", groups),
		intParam("kdrow", drow),
		intParam("kdcol", dcol),
	}, activation)
}

// Norm creates a normalization layer, e.g. "plane" or "global".
func Norm(kind, activation string) LayerSpec {
	return Layer("norm", []Param{{Key: "type", Value: kind}}, activation)
}

// Output is the terminal affine layer, without activation.
func Output(out int) LayerSpec {
	return Affine(out, "")
}

func intParam(key string, v int) Param {
	return Param{Key: key, Value: strconv.Itoa(v)}
}

// flat renders "kind:k1=v1,k2=v2;activation;".
func (l LayerSpec) flat() string {
	var b strings.Builder
	b.WriteString(l.Kind)
	b.WriteByte(':')
	for i, p := range l.Params {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(p.Key)
		b.WriteByte('=')
		b.WriteString(p.Value)
	}
	b.WriteByte(';')
	if l.Activation != "" {
		b.WriteString(l.Activation)
		b.WriteByte(';')
	}
	return b.String()
}

// ModelSpec is an ordered list of layers, input to output.
type ModelSpec struct {
	Layers []LayerSpec
}

func NewModel(layers ...LayerSpec) *ModelSpec {
	return &ModelSpec{Layers: layers}
}

func (m *ModelSpec) Append(layers ...LayerSpec) *ModelSpec {
	m.Layers = append(m.Layers, layers...)
	return m
}

// Flat renders the delimited form used in logs and the run ledger.
func (m *ModelSpec) Flat() string {
	var b strings.Builder
	for _, l := range m.Layers {
		b.WriteString(l.flat())
	}
	return b.String()
}

type node struct {
	Name       string            `json:"name"`
	Kind       string            `json:"type"`
	Params     map[string]string `json:"params,omitempty"`
	Activation string            `json:"activation,omitempty"`
}

type graph struct {
	Nodes []node   `json:"nodes"`
	Order []string `json:"order"`
}

// MarshalJSON writes the structured form: a node list plus the explicit
// execution order.
func (m *ModelSpec) MarshalJSON() ([]byte, error) {
	g := graph{
		Nodes: make([]node, 0, len(m.Layers)),
		Order: make([]string, 0, len(m.Layers)),
	}
	for i, l := range m.Layers {
		n := node{
			Name:       l.Kind + strconv.Itoa(i),
			Kind:       l.Kind,
			Activation: l.Activation,
		}
		if len(l.Params) > 0 {
			n.Params = make(map[string]string, len(l.Params))
			for _, p := range l.Params {
				n.Params[p.Key] = p.Value
			}
		}
		g.Nodes = append(g.Nodes, n)
		g.Order = append(g.Order, n.Name)
	}
	return json.Marshal(g)
}
