package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/imishinist/expctl/internal/models"
)

// LoadPlan reads a plan file, choosing the decoder by extension. A plan
// without a name is named after its file.
func LoadPlan(path string) (*models.Plan, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open plan: %w", err)
	}
	defer file.Close()

	var plan *models.Plan
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json":
		plan, err = ParseJSONPlan(file)
	case ".yaml", ".yml":
		plan, err = ParseYAMLPlan(file)
	default:
		return nil, fmt.Errorf("unsupported plan format: %s (use .json, .yaml or .yml)", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if plan.Name == "" {
		plan.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return plan, nil
}
