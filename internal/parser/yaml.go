package parser

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/imishinist/expctl/internal/models"
)

func ParseYAMLPlan(reader io.Reader) (*models.Plan, error) {
	var plan models.Plan
	decoder := yaml.NewDecoder(reader)
	decoder.KnownFields(true)

	if err := decoder.Decode(&plan); err != nil {
		return nil, fmt.Errorf("failed to parse YAML plan: %w", err)
	}

	return &plan, nil
}
