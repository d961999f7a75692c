package models

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidName = errors.New("invalid configuration name")

// NamedConfig pairs an axis entry name with its payload. String payloads are
// passed to the trainer verbatim, anything else is serialized as JSON.
type NamedConfig struct {
	Name    string
	Payload any
}

type Parameter struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ValidateName rejects names that could make two run keys share a file name.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidName)
	}
	if strings.ContainsAny(name, "_/\\ \t\n") {
		return fmt.Errorf("%w: %q (no underscores, slashes or whitespace)", ErrInvalidName, name)
	}
	return nil
}
