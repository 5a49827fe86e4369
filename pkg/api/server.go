// Package api exposes the flow engine over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/flowman-io/flowman/pkg/config"
	"github.com/flowman-io/flowman/pkg/engine"
	"github.com/flowman-io/flowman/pkg/flow"
	"github.com/flowman-io/flowman/pkg/loader"
	"github.com/flowman-io/flowman/pkg/logging"
	"github.com/flowman-io/flowman/pkg/storage"
)

// Server represents the HTTP API server
type Server struct {
	config    *config.Config
	router    *mux.Router
	server    *http.Server
	engine    *engine.Engine
	flowStore storage.FlowStore
	loader    loader.Loader
	ws        *WebSocketManager
	logger    logging.Logger
}

// NewServer creates a new API server. Pass a nil WebSocketManager to have
// the server create its own; pass a shared one when the engine should use
// it as an execution listener.
func NewServer(cfg *config.Config, eng *engine.Engine, flowStore storage.FlowStore, ws *WebSocketManager, logger logging.Logger) *Server {
	if ws == nil {
		ws = NewWebSocketManager(logger)
	}
	s := &Server{
		config:    cfg,
		router:    mux.NewRouter(),
		engine:    eng,
		flowStore: flowStore,
		loader:    loader.NewDefinitionLoader(),
		ws:        ws,
		logger:    logger,
	}

	s.setupRoutes()
	return s
}

// Listener returns the execution event listener that feeds websocket
// subscribers. Attach it to the engine with engine.WithListener.
func (s *Server) Listener() engine.Listener {
	return s.ws
}

// Handler returns the root HTTP handler. Used by tests with httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting HTTP server", logging.F("addr", addr))

	err := s.server.ListenAndServe()
	// If the server was shut down gracefully, this error is expected
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop stops the HTTP server gracefully
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	// Flow definition routes
	api.HandleFunc("/flows/schema", s.handleFlowSchema).Methods(http.MethodGet)
	api.HandleFunc("/flows", s.handleCreateFlow).Methods(http.MethodPost)
	api.HandleFunc("/flows", s.handleListFlows).Methods(http.MethodGet)
	api.HandleFunc("/flows/{id}", s.handleGetFlow).Methods(http.MethodGet)
	api.HandleFunc("/flows/{id}", s.handleDeleteFlow).Methods(http.MethodDelete)
	api.HandleFunc("/flows/{id}/executions", s.handleExecuteFlow).Methods(http.MethodPost)

	// Execution routes
	api.HandleFunc("/executions/sync", s.handleExecuteSync).Methods(http.MethodPost)
	api.HandleFunc("/executions/summary", s.handleSummary).Methods(http.MethodGet)
	api.HandleFunc("/executions", s.handleListExecutions).Methods(http.MethodGet)
	api.HandleFunc("/executions/{id}", s.handleGetExecution).Methods(http.MethodGet)
	api.HandleFunc("/executions/{id}", s.handleDeleteExecution).Methods(http.MethodDelete)
	api.HandleFunc("/executions/{id}/tasks/{task}", s.handleGetTaskResult).Methods(http.MethodGet)

	// Real-time execution updates
	api.HandleFunc("/ws", s.ws.HandleConnection).Methods(http.MethodGet)
}

// handleHealth handles the health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// handleFlowSchema serves the JSON schema describing the definition format
func (s *Server) handleFlowSchema(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/schema+json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(loader.FlowSchema))
}

// handleCreateFlow stores a new flow definition. The body is a JSON or
// YAML definition, optionally wrapped under a top-level "flow" key.
func (s *Server) handleCreateFlow(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	def, err := s.loader.Parse(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.flowStore.SaveFlow(*def); err != nil {
		s.logger.Error("failed to save flow", logging.F("flow_id", def.ID), logging.F("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to save flow")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"flow_id":   def.ID,
		"flow_name": def.Name,
		"message":   "flow created successfully",
	})
}

// handleListFlows returns all stored flow definitions
func (s *Server) handleListFlows(w http.ResponseWriter, r *http.Request) {
	defs, err := s.flowStore.ListFlows()
	if err != nil {
		s.logger.Error("failed to list flows", logging.F("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list flows")
		return
	}
	writeJSON(w, http.StatusOK, defs)
}

// handleGetFlow returns a single flow definition
func (s *Server) handleGetFlow(w http.ResponseWriter, r *http.Request) {
	flowID := mux.Vars(r)["id"]

	def, err := s.flowStore.GetFlow(flowID)
	if err != nil {
		if errors.Is(err, flow.ErrFlowNotFound) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("flow %s not found", flowID))
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get flow")
		return
	}
	writeJSON(w, http.StatusOK, def)
}

// handleDeleteFlow removes a flow definition
func (s *Server) handleDeleteFlow(w http.ResponseWriter, r *http.Request) {
	flowID := mux.Vars(r)["id"]

	if err := s.flowStore.DeleteFlow(flowID); err != nil {
		if errors.Is(err, flow.ErrFlowNotFound) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("flow %s not found", flowID))
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete flow")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("flow %s deleted successfully", flowID),
	})
}

// handleExecuteFlow creates an execution for a stored flow and runs it in
// the background. The response carries the execution ID for polling.
func (s *Server) handleExecuteFlow(w http.ResponseWriter, r *http.Request) {
	flowID := mux.Vars(r)["id"]

	def, err := s.flowStore.GetFlow(flowID)
	if err != nil {
		if errors.Is(err, flow.ErrFlowNotFound) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("flow %s not found", flowID))
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get flow")
		return
	}

	executionID, err := s.engine.CreateExecution(&def)
	if err != nil {
		if flow.IsDefinitionError(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create execution")
		return
	}

	if err := s.engine.RunAsync(executionID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"execution_id": executionID,
		"flow_id":      flowID,
		"status":       string(flow.ExecutionRunning),
	})
}

// handleExecuteSync runs an inline flow definition synchronously and
// returns its final state
func (s *Server) handleExecuteSync(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	def, err := s.loader.Parse(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	executionID, err := s.engine.CreateExecution(def)
	if err != nil {
		if flow.IsDefinitionError(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create execution")
		return
	}

	state, err := s.engine.Run(executionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// handleListExecutions returns all tracked execution states
func (s *Server) handleListExecutions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.ListExecutions())
}

// handleGetExecution returns the state of one execution
func (s *Server) handleGetExecution(w http.ResponseWriter, r *http.Request) {
	executionID := mux.Vars(r)["id"]

	state, err := s.engine.GetState(executionID)
	if err != nil {
		if errors.Is(err, flow.ErrExecutionNotFound) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("execution %s not found", executionID))
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get execution")
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// handleDeleteExecution removes an execution from the engine
func (s *Server) handleDeleteExecution(w http.ResponseWriter, r *http.Request) {
	executionID := mux.Vars(r)["id"]

	if !s.engine.Delete(executionID) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("execution %s not found", executionID))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("execution %s deleted successfully", executionID),
	})
}

// handleGetTaskResult returns the result of a single task of an execution
func (s *Server) handleGetTaskResult(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	executionID := vars["id"]
	taskName := vars["task"]

	result, err := s.engine.GetTaskResult(executionID, taskName)
	if err != nil {
		if errors.Is(err, flow.ErrExecutionNotFound) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("execution %s not found", executionID))
			return
		}
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleSummary returns aggregate execution statistics
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Summary())
}

// writeJSON writes a JSON response with the given status
func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError writes a JSON error response
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
