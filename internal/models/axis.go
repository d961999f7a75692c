package models

import (
	"fmt"
	"regexp"
)

// Axis is an insertion-ordered collection of named configurations.
type Axis struct {
	Label   string
	entries []NamedConfig
	index   map[string]int
}

func NewAxis(label string) *Axis {
	return &Axis{Label: label, index: make(map[string]int)}
}

// Add appends a configuration. Re-adding a name replaces its payload in place.
func (a *Axis) Add(name string, payload any) error {
	if err := ValidateName(name); err != nil {
		return fmt.Errorf("%s: %w", a.Label, err)
	}
	if i, ok := a.index[name]; ok {
		a.entries[i].Payload = payload
		return nil
	}
	a.index[name] = len(a.entries)
	a.entries = append(a.entries, NamedConfig{Name: name, Payload: payload})
	return nil
}

func (a *Axis) Get(name string) (NamedConfig, bool) {
	i, ok := a.index[name]
	if !ok {
		return NamedConfig{}, false
	}
	return a.entries[i], true
}

func (a *Axis) Len() int {
	return len(a.entries)
}

func (a *Axis) Names() []string {
	names := make([]string, 0, len(a.entries))
	for _, e := range a.entries {
		names = append(names, e.Name)
	}
	return names
}

// Match returns the names matching pattern from their first character, in
// registration order. An empty pattern selects every name.
func (a *Axis) Match(pattern string) ([]string, error) {
	if pattern == "" {
		return a.Names(), nil
	}
	re, err := regexp.Compile(`^(?:` + pattern + `)`)
	if err != nil {
		return nil, fmt.Errorf("invalid %s pattern %q: %w", a.Label, pattern, err)
	}

	var names []string
	for _, e := range a.entries {
		if re.MatchString(e.Name) {
			names = append(names, e.Name)
		}
	}
	return names, nil
}
