package toolproto

import (
	"encoding/json"
	"fmt"
)

const (
	jsonrpcVersion  = "2.0"
	protocolVersion = "2024-11-05"

	methodInitialize        = "initialize"
	methodToolsCall         = "tools/call"
	notificationInitialized = "notifications/initialized"
)

// request is the outgoing envelope. Notifications omit the id.
type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      *int64 `json:"id,omitempty"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// envelope is any incoming line. A missing id marks a notification
// from the peer rather than an answer to a pending call.
type envelope struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *int64          `json:"id"`
	Method  string          `json:"method,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ErrorObject    `json:"error,omitempty"`
}

// ErrorObject is the error member of a response envelope.
type ErrorObject struct {
	Code    int    `json:"code,omitempty"`
	Message string `json:"message"`
}

func (e *ErrorObject) Error() string { return e.Message }

type callToolParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

type callToolResult struct {
	Content []contentItem `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}

type contentItem struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type initializeParams struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    map[string]any `json:"capabilities"`
	ClientInfo      clientInfo     `json:"clientInfo"`
}

type clientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// TimeoutError reports a call that received no correlated response
// within the client's timeout. The pending entry is already removed
// when this error is returned; a late response is discarded.
type TimeoutError struct {
	Method string
	ID     int64
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("call %s (id %d) timed out waiting for response", e.Method, e.ID)
}

// DisconnectedError reports a call rejected because the pipe to the
// tool provider closed.
type DisconnectedError struct{}

func (e *DisconnectedError) Error() string {
	return "tool provider disconnected"
}
