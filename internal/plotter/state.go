package plotter

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Columns of a trainer state file, in file order.
var StateColumns = []string{
	"epoch",
	"train_loss", "train_error",
	"valid_loss", "valid_error",
	"test_loss", "test_error",
	"seconds",
}

// State is the per-epoch history written by the trainer for one trial.
type State struct {
	Name string
	Rows [][]float64
}

func columnIndex(name string) int {
	for i, c := range StateColumns {
		if c == name {
			return i
		}
	}
	return -1
}

// Column returns every value of the named column.
func (s *State) Column(name string) []float64 {
	i := columnIndex(name)
	if i < 0 {
		return nil
	}
	values := make([]float64, len(s.Rows))
	for j, row := range s.Rows {
		values[j] = row[i]
	}
	return values
}

// ReadState parses a whitespace-delimited state file. Comment lines and a
// leading header are skipped.
func ReadState(path string) (*State, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open state file %s: %w", path, err)
	}
	defer file.Close()

	state := &State{Name: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))}
	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if _, err := strconv.ParseFloat(fields[0], 64); err != nil && len(state.Rows) == 0 {
			continue
		}
		if len(fields) < len(StateColumns) {
			return nil, fmt.Errorf("%s:%d: expected %d columns, got %d", path, lineNo, len(StateColumns), len(fields))
		}

		row := make([]float64, len(StateColumns))
		for i := range row {
			v, err := strconv.ParseFloat(fields[i], 64)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: column %s: %w", path, lineNo, StateColumns[i], err)
			}
			row[i] = v
		}
		state.Rows = append(state.Rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read state file %s: %w", path, err)
	}
	if len(state.Rows) == 0 {
		return nil, fmt.Errorf("state file %s has no data", path)
	}
	return state, nil
}
