package tasks

import (
	"github.com/flowman-io/flowman/pkg/engine"
	"github.com/flowman-io/flowman/pkg/logging"
)

// Deps carries the collaborators built-in tasks need
type Deps struct {
	// Logger used by print and script tasks
	Logger logging.Logger

	// Store is the destination for store_data. Defaults to an in-memory
	// store when nil.
	Store DataStore
}

// RegisterBuiltins registers all built-in task types with the registry.
// Registration must complete before any flow referencing these types
// executes.
func RegisterBuiltins(reg *engine.TaskRegistry, deps Deps) {
	store := deps.Store
	if store == nil {
		store = NewMemoryDataStore()
	}

	reg.Register("fetch_data", NewFetchDataTask)
	reg.Register("process_data", NewProcessDataTask)
	reg.Register("store_data", NewStoreDataFactory(store))
	reg.Register("print", NewPrintFactory(deps.Logger))
	reg.Register("wait", NewWaitTask)
	reg.Register("http_request", NewHTTPRequestTask)
	reg.Register("script", NewScriptFactory(deps.Logger))
}
