package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Log levels in increasing severity
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

var levelOrder = map[string]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

// StructuredLogger implements the Logger interface, writing one entry per
// line in JSON or plain text format
type StructuredLogger struct {
	out    io.Writer
	level  int
	format string
	fields []Field
	mu     *sync.Mutex
}

// NewLogger creates a logger from the given configuration. Unknown levels
// and formats fall back to info/json.
func NewLogger(cfg LogConfig) (*StructuredLogger, error) {
	var out io.Writer
	switch cfg.Output {
	case "", "stdout":
		out = os.Stdout
	case "stderr":
		out = os.Stderr
	case "file":
		f, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		out = f
	default:
		return nil, fmt.Errorf("unknown log output: %s", cfg.Output)
	}

	level, ok := levelOrder[cfg.Level]
	if !ok {
		level = levelOrder[LevelInfo]
	}

	format := cfg.Format
	if format == "" {
		format = "json"
	}

	return &StructuredLogger{
		out:    out,
		level:  level,
		format: format,
		mu:     &sync.Mutex{},
	}, nil
}

// NewTestLogger creates a logger suitable for tests, writing text to stderr
func NewTestLogger() *StructuredLogger {
	return &StructuredLogger{
		out:    os.Stderr,
		level:  levelOrder[LevelDebug],
		format: "text",
		mu:     &sync.Mutex{},
	}
}

// Debug logs a debug message
func (l *StructuredLogger) Debug(msg string, fields ...Field) {
	l.log(LevelDebug, msg, fields)
}

// Info logs an info message
func (l *StructuredLogger) Info(msg string, fields ...Field) {
	l.log(LevelInfo, msg, fields)
}

// Warn logs a warning message
func (l *StructuredLogger) Warn(msg string, fields ...Field) {
	l.log(LevelWarn, msg, fields)
}

// Error logs an error message
func (l *StructuredLogger) Error(msg string, fields ...Field) {
	l.log(LevelError, msg, fields)
}

// WithFields returns a new logger that includes the given fields in every entry
func (l *StructuredLogger) WithFields(fields ...Field) Logger {
	clone := *l
	clone.fields = append(append([]Field{}, l.fields...), fields...)
	return &clone
}

// WithContext returns the logger unchanged; contexts carry no log metadata here
func (l *StructuredLogger) WithContext(ctx context.Context) Logger {
	return l
}

// LogFlowExecution records flow execution events
func (l *StructuredLogger) LogFlowExecution(flowID string, executionID string, event string, data map[string]interface{}) {
	fields := []Field{
		{Key: "flow_id", Value: flowID},
		{Key: "execution_id", Value: executionID},
		{Key: "event", Value: event},
	}
	for k, v := range data {
		fields = append(fields, Field{Key: k, Value: v})
	}
	l.Info("flow execution", fields...)
}

// LogTaskExecution records task execution events
func (l *StructuredLogger) LogTaskExecution(flowID string, executionID string, taskName string, event string, data map[string]interface{}) {
	fields := []Field{
		{Key: "flow_id", Value: flowID},
		{Key: "execution_id", Value: executionID},
		{Key: "task", Value: taskName},
		{Key: "event", Value: event},
	}
	for k, v := range data {
		fields = append(fields, Field{Key: k, Value: v})
	}
	l.Info("task execution", fields...)
}

// LogSystemEvent records system-level events
func (l *StructuredLogger) LogSystemEvent(event string, data map[string]interface{}) {
	fields := []Field{{Key: "event", Value: event}}
	for k, v := range data {
		fields = append(fields, Field{Key: k, Value: v})
	}
	l.Info("system event", fields...)
}

func (l *StructuredLogger) log(level string, msg string, fields []Field) {
	if levelOrder[level] < l.level {
		return
	}

	entry := LogEntry{
		Timestamp: time.Now().UTC(),
		Level:     level,
		Message:   msg,
	}

	if len(l.fields) > 0 || len(fields) > 0 {
		entry.Fields = make(map[string]interface{}, len(l.fields)+len(fields))
		for _, f := range l.fields {
			entry.Fields[f.Key] = f.Value
		}
		for _, f := range fields {
			entry.Fields[f.Key] = f.Value
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.format == "text" {
		fmt.Fprintf(l.out, "%s [%s] %s", entry.Timestamp.Format(time.RFC3339), level, msg)
		for k, v := range entry.Fields {
			fmt.Fprintf(l.out, " %s=%v", k, v)
		}
		fmt.Fprintln(l.out)
		return
	}

	data, err := json.Marshal(entry)
	if err != nil {
		// Fall back to a plain line rather than dropping the entry
		fmt.Fprintf(l.out, "%s [%s] %s (marshal error: %v)\n", entry.Timestamp.Format(time.RFC3339), level, msg, err)
		return
	}
	l.out.Write(append(data, '\n'))
}
