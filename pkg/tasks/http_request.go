package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/flowman-io/flowman/pkg/engine"
	"github.com/flowman-io/flowman/pkg/flow"
)

// HTTPRequestTask performs a real HTTP request and exposes the response
// as its payload. JSON response bodies are decoded; anything else is
// returned as a string.
type HTTPRequestTask struct {
	name   string
	params map[string]interface{}
	client *http.Client
}

// NewHTTPRequestTask is the factory for the "http_request" task type
func NewHTTPRequestTask(name string, params map[string]interface{}) (engine.Task, error) {
	if stringParam(params, "url", "") == "" {
		return nil, fmt.Errorf("url parameter is required")
	}

	timeout := durationParam(params, "timeout", 30*time.Second)
	return &HTTPRequestTask{
		name:   name,
		params: params,
		client: &http.Client{Timeout: timeout},
	}, nil
}

// Execute runs the task against the shared execution context
func (t *HTTPRequestTask) Execute(ctx context.Context, execCtx map[string]interface{}) flow.TaskResult {
	started := time.Now().UTC()

	url := stringParam(t.params, "url", "")
	method := strings.ToUpper(stringParam(t.params, "method", http.MethodGet))

	var body io.Reader
	if rawBody, ok := t.params["body"]; ok {
		data, err := json.Marshal(rawBody)
		if err != nil {
			return failureResult(t.name, started, "invalid request body", err.Error())
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return failureResult(t.name, started, "failed to build request", err.Error())
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if headers, ok := t.params["headers"].(map[string]interface{}); ok {
		for key, value := range headers {
			req.Header.Set(key, fmt.Sprintf("%v", value))
		}
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return failureResult(t.name, started, "request failed", err.Error())
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return failureResult(t.name, started, "failed to read response", err.Error())
	}

	payload := map[string]interface{}{
		"status_code": resp.StatusCode,
		"url":         url,
	}

	var decoded interface{}
	if json.Unmarshal(respBody, &decoded) == nil {
		payload["body"] = decoded
	} else {
		payload["body"] = string(respBody)
	}

	if resp.StatusCode >= 400 {
		result := failureResult(t.name, started,
			fmt.Sprintf("request returned status %d", resp.StatusCode), http.StatusText(resp.StatusCode))
		result.Payload = payload
		return result
	}

	return successResult(t.name, started, fmt.Sprintf("request returned status %d", resp.StatusCode), payload)
}
