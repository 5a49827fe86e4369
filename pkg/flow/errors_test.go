package flow

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsDefinitionError(t *testing.T) {
	err := &DefinitionError{Reason: "flow id is required"}
	assert.True(t, IsDefinitionError(err))
	assert.True(t, IsDefinitionError(fmt.Errorf("create failed: %w", err)))
	assert.False(t, IsDefinitionError(errors.New("create failed")))
	assert.Contains(t, err.Error(), "invalid flow definition")
}

func TestEngineFault(t *testing.T) {
	cause := errors.New("index out of range")
	fault := &EngineFault{ExecutionID: "e1", TaskName: "transform", Cause: cause}

	assert.Contains(t, fault.Error(), "e1")
	assert.Contains(t, fault.Error(), "transform")
	assert.True(t, errors.Is(fault, cause))

	bare := &EngineFault{ExecutionID: "e1", Cause: cause}
	assert.NotContains(t, bare.Error(), "at task")
}
