// Package loader parses and validates flow definitions.
package loader

import "github.com/flowman-io/flowman/pkg/flow"

// Loader parses flow definitions from their serialized form
type Loader interface {
	// Parse deserializes a flow definition and validates its structure
	Parse(content []byte) (*flow.Definition, error)

	// Validate checks a serialized flow definition without returning it
	Validate(content []byte) error
}
