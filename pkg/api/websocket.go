package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/flowman-io/flowman/pkg/flow"
	"github.com/flowman-io/flowman/pkg/logging"
)

// WebSocketManager manages WebSocket connections for real-time updates.
// It implements engine.Listener so the engine can push status changes and
// task results to subscribed clients as they happen.
type WebSocketManager struct {
	// upgrader for upgrading HTTP connections to WebSocket
	upgrader websocket.Upgrader

	// connections maps execution IDs to sets of WebSocket connections
	connections map[string]map[*websocket.Conn]bool

	// connectionMeta stores metadata for each connection
	connectionMeta map[*websocket.Conn]*ConnectionMetadata

	// writeMu serializes writes per connection
	writeMu map[*websocket.Conn]*sync.Mutex

	// mutex for thread-safe access
	mu sync.RWMutex

	logger logging.Logger
}

// ConnectionMetadata stores metadata about a WebSocket connection
type ConnectionMetadata struct {
	ConnectedAt   time.Time
	LastPingAt    time.Time
	Subscriptions map[string]bool // execution IDs this connection is subscribed to
}

// ExecutionUpdate represents a real-time update for a flow execution
type ExecutionUpdate struct {
	Type        string               `json:"type"` // "status", "task_result", "complete", "error", "pong"
	ExecutionID string               `json:"execution_id,omitempty"`
	Timestamp   time.Time            `json:"timestamp"`
	Message     string               `json:"message,omitempty"`
	State       *flow.ExecutionState `json:"state,omitempty"`
	TaskResult  *flow.TaskResult     `json:"task_result,omitempty"`
}

// WebSocketMessage represents incoming WebSocket messages
type WebSocketMessage struct {
	Type        string `json:"type"` // "subscribe", "unsubscribe", "ping"
	ExecutionID string `json:"execution_id,omitempty"`
}

// NewWebSocketManager creates a new WebSocket manager
func NewWebSocketManager(logger logging.Logger) *WebSocketManager {
	return &WebSocketManager{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Allow connections from any origin for now
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		connections:    make(map[string]map[*websocket.Conn]bool),
		connectionMeta: make(map[*websocket.Conn]*ConnectionMetadata),
		writeMu:        make(map[*websocket.Conn]*sync.Mutex),
		logger:         logger,
	}
}

// OnStatusChange broadcasts an execution status change to its subscribers
func (wsm *WebSocketManager) OnStatusChange(state *flow.ExecutionState) {
	update := ExecutionUpdate{
		Type:        "status",
		ExecutionID: state.ExecutionID,
		Timestamp:   time.Now(),
		State:       state,
	}
	if state.Status.Terminal() {
		update.Type = "complete"
		update.Message = "execution finished with status: " + string(state.Status)
	}
	wsm.broadcastToExecution(state.ExecutionID, update)
}

// OnTaskResult broadcasts a single task result to subscribers
func (wsm *WebSocketManager) OnTaskResult(executionID string, result flow.TaskResult) {
	wsm.broadcastToExecution(executionID, ExecutionUpdate{
		Type:        "task_result",
		ExecutionID: executionID,
		Timestamp:   time.Now(),
		TaskResult:  &result,
	})
}

// HandleConnection handles WebSocket connection upgrade and management
func (wsm *WebSocketManager) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := wsm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		wsm.logger.Warn("websocket upgrade failed", logging.F("error", err.Error()))
		return
	}

	wsm.mu.Lock()
	wsm.connectionMeta[conn] = &ConnectionMetadata{
		ConnectedAt:   time.Now(),
		LastPingAt:    time.Now(),
		Subscriptions: make(map[string]bool),
	}
	wsm.writeMu[conn] = &sync.Mutex{}
	wsm.mu.Unlock()

	defer wsm.removeConnection(conn)

	conn.SetPongHandler(func(string) error {
		wsm.mu.Lock()
		if meta, exists := wsm.connectionMeta[conn]; exists {
			meta.LastPingAt = time.Now()
		}
		wsm.mu.Unlock()
		return nil
	})

	go wsm.pingRoutine(conn)

	for {
		var msg WebSocketMessage
		err := conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				wsm.logger.Warn("websocket read error", logging.F("error", err.Error()))
			}
			break
		}
		wsm.handleMessage(conn, &msg)
	}
}

// handleMessage processes incoming WebSocket messages
func (wsm *WebSocketManager) handleMessage(conn *websocket.Conn, msg *WebSocketMessage) {
	switch msg.Type {
	case "subscribe":
		if msg.ExecutionID != "" {
			wsm.subscribe(conn, msg.ExecutionID)
		}
	case "unsubscribe":
		if msg.ExecutionID != "" {
			wsm.unsubscribe(conn, msg.ExecutionID)
		}
	case "ping":
		wsm.sendMessage(conn, ExecutionUpdate{
			Type:      "pong",
			Timestamp: time.Now(),
		})
	default:
		wsm.logger.Warn("unknown websocket message type", logging.F("type", msg.Type))
	}
}

// subscribe adds a connection to an execution's subscriber set
func (wsm *WebSocketManager) subscribe(conn *websocket.Conn, executionID string) {
	wsm.mu.Lock()
	if wsm.connections[executionID] == nil {
		wsm.connections[executionID] = make(map[*websocket.Conn]bool)
	}
	wsm.connections[executionID][conn] = true
	if meta, exists := wsm.connectionMeta[conn]; exists {
		meta.Subscriptions[executionID] = true
	}
	wsm.mu.Unlock()

	wsm.logger.Debug("websocket subscribed", logging.F("execution_id", executionID))
}

// unsubscribe removes a connection from an execution's subscriber set
func (wsm *WebSocketManager) unsubscribe(conn *websocket.Conn, executionID string) {
	wsm.mu.Lock()
	defer wsm.mu.Unlock()

	if execConns, exists := wsm.connections[executionID]; exists {
		delete(execConns, conn)
		if len(execConns) == 0 {
			delete(wsm.connections, executionID)
		}
	}
	if meta, exists := wsm.connectionMeta[conn]; exists {
		delete(meta.Subscriptions, executionID)
	}
}

// broadcastToExecution sends an update to all connections subscribed to an execution
func (wsm *WebSocketManager) broadcastToExecution(executionID string, update ExecutionUpdate) {
	wsm.mu.RLock()
	connections, exists := wsm.connections[executionID]
	if !exists {
		wsm.mu.RUnlock()
		return
	}

	// Copy so the lock is not held while sending
	connsCopy := make([]*websocket.Conn, 0, len(connections))
	for conn := range connections {
		connsCopy = append(connsCopy, conn)
	}
	wsm.mu.RUnlock()

	for _, conn := range connsCopy {
		wsm.sendMessage(conn, update)
	}
}

// sendMessage sends a message to a WebSocket connection
func (wsm *WebSocketManager) sendMessage(conn *websocket.Conn, update ExecutionUpdate) {
	wsm.mu.RLock()
	lock := wsm.writeMu[conn]
	wsm.mu.RUnlock()
	if lock == nil {
		return
	}

	lock.Lock()
	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	err := conn.WriteJSON(update)
	lock.Unlock()

	if err != nil {
		wsm.logger.Warn("failed to send websocket message", logging.F("error", err.Error()))
		wsm.removeConnection(conn)
	}
}

// removeConnection removes a connection from all subscriptions and closes it
func (wsm *WebSocketManager) removeConnection(conn *websocket.Conn) {
	wsm.mu.Lock()
	defer wsm.mu.Unlock()

	if meta, exists := wsm.connectionMeta[conn]; exists {
		for executionID := range meta.Subscriptions {
			if execConns, exists := wsm.connections[executionID]; exists {
				delete(execConns, conn)
				if len(execConns) == 0 {
					delete(wsm.connections, executionID)
				}
			}
		}
	}
	delete(wsm.connectionMeta, conn)
	delete(wsm.writeMu, conn)
	conn.Close()
}

// pingRoutine sends periodic ping messages to keep the connection alive
func (wsm *WebSocketManager) pingRoutine(conn *websocket.Conn) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		wsm.mu.RLock()
		lock := wsm.writeMu[conn]
		wsm.mu.RUnlock()
		if lock == nil {
			return
		}

		lock.Lock()
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		err := conn.WriteMessage(websocket.PingMessage, nil)
		lock.Unlock()

		if err != nil {
			wsm.removeConnection(conn)
			return
		}
	}
}

// ConnectedClients returns the number of connected clients
func (wsm *WebSocketManager) ConnectedClients() int {
	wsm.mu.RLock()
	defer wsm.mu.RUnlock()
	return len(wsm.connectionMeta)
}

// ExecutionSubscribers returns the number of subscribers for an execution
func (wsm *WebSocketManager) ExecutionSubscribers(executionID string) int {
	wsm.mu.RLock()
	defer wsm.mu.RUnlock()
	return len(wsm.connections[executionID])
}
