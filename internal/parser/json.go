package parser

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/imishinist/expctl/internal/models"
)

func ParseJSONPlan(reader io.Reader) (*models.Plan, error) {
	var plan models.Plan
	decoder := json.NewDecoder(reader)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(&plan); err != nil {
		return nil, fmt.Errorf("failed to parse JSON plan: %w", err)
	}

	return &plan, nil
}
