package loader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowman-io/flowman/pkg/flow"
)

const jsonDefinition = `{
  "id": "data-pipeline",
  "name": "Data Pipeline",
  "start_task": "fetch",
  "tasks": [
    {"name": "fetch", "task_type": "fetch_data", "parameters": {"data_source": "orders_api"}},
    {"name": "process", "task_type": "process_data"}
  ],
  "conditions": [
    {
      "name": "after_fetch",
      "source_task": "fetch",
      "outcome": "success",
      "target_task_success": "process",
      "target_task_failure": "end"
    }
  ]
}`

const yamlDefinition = `
id: data-pipeline
name: Data Pipeline
start_task: fetch
tasks:
  - name: fetch
    task_type: fetch_data
    parameters:
      data_source: orders_api
  - name: process
    task_type: process_data
conditions:
  - name: after_fetch
    source_task: fetch
    outcome: success
    target_task_success: process
    target_task_failure: end
`

const wrappedDefinition = `
flow:
  id: data-pipeline
  start_task: fetch
  tasks:
    - name: fetch
      task_type: fetch_data
`

func TestLoaderParseJSON(t *testing.T) {
	def, err := NewDefinitionLoader().Parse([]byte(jsonDefinition))
	require.NoError(t, err)

	assert.Equal(t, "data-pipeline", def.ID)
	assert.Equal(t, "fetch", def.StartTask)
	require.Len(t, def.Tasks, 2)
	assert.Equal(t, "orders_api", def.Tasks[0].Parameters["data_source"])
	require.Len(t, def.Conditions, 1)
	assert.Equal(t, flow.EndMarker, def.Conditions[0].TargetTaskFailure)
}

func TestLoaderParseYAML(t *testing.T) {
	fromJSON, err := NewDefinitionLoader().Parse([]byte(jsonDefinition))
	require.NoError(t, err)

	fromYAML, err := NewDefinitionLoader().Parse([]byte(yamlDefinition))
	require.NoError(t, err)

	// Both wire formats deserialize to the same definition
	assert.Equal(t, fromJSON, fromYAML)
}

func TestLoaderParseWrapped(t *testing.T) {
	def, err := NewDefinitionLoader().Parse([]byte(wrappedDefinition))
	require.NoError(t, err)
	assert.Equal(t, "data-pipeline", def.ID)
	assert.Len(t, def.Tasks, 1)
}

func TestLoaderParseInvalid(t *testing.T) {
	loader := NewDefinitionLoader()

	t.Run("malformed input", func(t *testing.T) {
		_, err := loader.Parse([]byte("{not valid"))
		assert.Error(t, err)
	})

	t.Run("structurally invalid definition", func(t *testing.T) {
		_, err := loader.Parse([]byte(`{"id": "x", "start_task": "a", "tasks": [{"name": "b", "task_type": "print"}]}`))
		require.Error(t, err)
		assert.True(t, flow.IsDefinitionError(err))
	})
}

func TestLoaderValidate(t *testing.T) {
	loader := NewDefinitionLoader()
	assert.NoError(t, loader.Validate([]byte(jsonDefinition)))
	assert.Error(t, loader.Validate([]byte(`{"id": ""}`)))
}
