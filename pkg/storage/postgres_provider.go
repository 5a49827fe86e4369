package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/flowman-io/flowman/pkg/flow"
)

// PostgreSQLProvider implements the Provider interface using PostgreSQL
type PostgreSQLProvider struct {
	db             *sql.DB
	flowStore      *PostgreSQLFlowStore
	executionStore *PostgreSQLExecutionStore
}

// PostgreSQLProviderConfig contains configuration for the PostgreSQL provider
type PostgreSQLProviderConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// NewPostgreSQLProvider creates a new PostgreSQL storage provider
func NewPostgreSQLProvider(config PostgreSQLProviderConfig) (*PostgreSQLProvider, error) {
	// Set default port if not specified
	if config.Port == 0 {
		config.Port = 5432
	}

	// Set default SSL mode if not specified
	if config.SSLMode == "" {
		config.SSLMode = "disable"
	}

	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.Database, config.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	return &PostgreSQLProvider{
		db:             db,
		flowStore:      &PostgreSQLFlowStore{db: db},
		executionStore: &PostgreSQLExecutionStore{db: db},
	}, nil
}

// Initialize sets up the storage backend
func (p *PostgreSQLProvider) Initialize() error {
	if err := p.flowStore.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize flow store: %w", err)
	}
	if err := p.executionStore.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize execution store: %w", err)
	}
	return nil
}

// Close cleans up resources
func (p *PostgreSQLProvider) Close() error {
	return p.db.Close()
}

// GetFlowStore returns a store for flow definitions
func (p *PostgreSQLProvider) GetFlowStore() FlowStore {
	return p.flowStore
}

// GetExecutionStore returns a store for execution data
func (p *PostgreSQLProvider) GetExecutionStore() ExecutionStore {
	return p.executionStore
}

// PostgreSQLFlowStore implements the FlowStore interface using PostgreSQL
type PostgreSQLFlowStore struct {
	db *sql.DB
}

// Initialize creates the flows table if it doesn't exist
func (s *PostgreSQLFlowStore) Initialize() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS flows (
			id TEXT PRIMARY KEY,
			definition JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create flows table: %w", err)
	}
	return nil
}

// SaveFlow persists a flow definition, keyed by its ID
func (s *PostgreSQLFlowStore) SaveFlow(def flow.Definition) error {
	data, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("failed to marshal flow definition: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO flows (id, definition, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (id) DO UPDATE SET definition = $2, updated_at = now()
	`, def.ID, data)
	if err != nil {
		return fmt.Errorf("failed to save flow %s: %w", def.ID, err)
	}
	return nil
}

// GetFlow retrieves a flow definition
func (s *PostgreSQLFlowStore) GetFlow(flowID string) (flow.Definition, error) {
	var data []byte
	err := s.db.QueryRow(`SELECT definition FROM flows WHERE id = $1`, flowID).Scan(&data)
	if err == sql.ErrNoRows {
		return flow.Definition{}, fmt.Errorf("%w: %s", flow.ErrFlowNotFound, flowID)
	}
	if err != nil {
		return flow.Definition{}, fmt.Errorf("failed to get flow %s: %w", flowID, err)
	}

	var def flow.Definition
	if err := json.Unmarshal(data, &def); err != nil {
		return flow.Definition{}, fmt.Errorf("failed to unmarshal flow %s: %w", flowID, err)
	}
	return def, nil
}

// ListFlows returns all stored flow definitions
func (s *PostgreSQLFlowStore) ListFlows() ([]flow.Definition, error) {
	rows, err := s.db.Query(`SELECT definition FROM flows ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list flows: %w", err)
	}
	defer rows.Close()

	var defs []flow.Definition
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan flow row: %w", err)
		}

		var def flow.Definition
		if err := json.Unmarshal(data, &def); err != nil {
			return nil, fmt.Errorf("failed to unmarshal flow row: %w", err)
		}
		defs = append(defs, def)
	}
	return defs, rows.Err()
}

// DeleteFlow removes a flow definition
func (s *PostgreSQLFlowStore) DeleteFlow(flowID string) error {
	result, err := s.db.Exec(`DELETE FROM flows WHERE id = $1`, flowID)
	if err != nil {
		return fmt.Errorf("failed to delete flow %s: %w", flowID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", flow.ErrFlowNotFound, flowID)
	}
	return nil
}

// PostgreSQLExecutionStore implements the ExecutionStore interface using
// PostgreSQL
type PostgreSQLExecutionStore struct {
	db *sql.DB
}

// Initialize creates the executions table if it doesn't exist
func (s *PostgreSQLExecutionStore) Initialize() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS executions (
			id TEXT PRIMARY KEY,
			flow_id TEXT NOT NULL,
			status TEXT NOT NULL,
			state JSONB NOT NULL,
			ended_at TIMESTAMPTZ
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create executions table: %w", err)
	}
	return nil
}

// SaveExecution persists an execution state
func (s *PostgreSQLExecutionStore) SaveExecution(state flow.ExecutionState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal execution state: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO executions (id, flow_id, status, state, ended_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET status = $3, state = $4, ended_at = $5
	`, state.ExecutionID, state.FlowID, state.Status, data, state.EndTime)
	if err != nil {
		return fmt.Errorf("failed to save execution %s: %w", state.ExecutionID, err)
	}
	return nil
}

// GetExecution retrieves an execution state
func (s *PostgreSQLExecutionStore) GetExecution(executionID string) (flow.ExecutionState, error) {
	var data []byte
	err := s.db.QueryRow(`SELECT state FROM executions WHERE id = $1`, executionID).Scan(&data)
	if err == sql.ErrNoRows {
		return flow.ExecutionState{}, fmt.Errorf("%w: %s", flow.ErrExecutionNotFound, executionID)
	}
	if err != nil {
		return flow.ExecutionState{}, fmt.Errorf("failed to get execution %s: %w", executionID, err)
	}

	var state flow.ExecutionState
	if err := json.Unmarshal(data, &state); err != nil {
		return flow.ExecutionState{}, fmt.Errorf("failed to unmarshal execution %s: %w", executionID, err)
	}
	return state, nil
}

// ListExecutions returns all stored execution states
func (s *PostgreSQLExecutionStore) ListExecutions() ([]flow.ExecutionState, error) {
	rows, err := s.db.Query(`SELECT state FROM executions ORDER BY ended_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}
	defer rows.Close()

	var states []flow.ExecutionState
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan execution row: %w", err)
		}

		var state flow.ExecutionState
		if err := json.Unmarshal(data, &state); err != nil {
			return nil, fmt.Errorf("failed to unmarshal execution row: %w", err)
		}
		states = append(states, state)
	}
	return states, rows.Err()
}

// DeleteExecution removes an execution state
func (s *PostgreSQLExecutionStore) DeleteExecution(executionID string) error {
	result, err := s.db.Exec(`DELETE FROM executions WHERE id = $1`, executionID)
	if err != nil {
		return fmt.Errorf("failed to delete execution %s: %w", executionID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", flow.ErrExecutionNotFound, executionID)
	}
	return nil
}
