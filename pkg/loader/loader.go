package loader

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/flowman-io/flowman/pkg/flow"
)

// DefinitionLoader parses flow definitions from YAML or JSON. JSON is a
// subset of YAML, so one decoder covers both wire formats.
type DefinitionLoader struct{}

// NewDefinitionLoader creates a new DefinitionLoader
func NewDefinitionLoader() *DefinitionLoader {
	return &DefinitionLoader{}
}

// envelope allows definitions wrapped under a top-level "flow" key as
// well as bare definitions
type envelope struct {
	Flow *flow.Definition `yaml:"flow" json:"flow"`
}

// Parse deserializes a flow definition and validates its structure
func (l *DefinitionLoader) Parse(content []byte) (*flow.Definition, error) {
	// Try the wrapped form first
	var env envelope
	if err := yaml.Unmarshal(content, &env); err == nil && env.Flow != nil {
		if err := env.Flow.Validate(); err != nil {
			return nil, err
		}
		return env.Flow, nil
	}

	var def flow.Definition
	if err := yaml.Unmarshal(content, &def); err != nil {
		return nil, fmt.Errorf("failed to parse flow definition: %w", err)
	}

	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// Validate checks a serialized flow definition without returning it
func (l *DefinitionLoader) Validate(content []byte) error {
	_, err := l.Parse(content)
	return err
}
