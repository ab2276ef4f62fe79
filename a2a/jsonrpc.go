package a2a

import (
	"encoding/json"
	"fmt"
)

// JSON-RPC method names defined by the A2A protocol.
const (
	MethodMessageSend = "message/send"
	MethodTasksGet    = "tasks/get"
	MethodTasksCancel = "tasks/cancel"
)

// Standard JSON-RPC 2.0 error codes plus the A2A server extensions.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603

	CodeTaskNotFound          = -32001
	CodeTaskNotCancelable     = -32002
	CodePushNotSupported      = -32003
	CodeUnsupportedOperation  = -32004
	CodeContentTypeNotAllowed = -32005
	CodeInvalidAgentResponse  = -32006
)

// RPCRequest is a JSON-RPC 2.0 request envelope.
type RPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// NewRPCRequest builds a v2.0 request with serialized params.
func NewRPCRequest(id any, method string, params any) (RPCRequest, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return RPCRequest{}, fmt.Errorf("marshal %s params: %w", method, err)
	}
	return RPCRequest{JSONRPC: "2.0", ID: id, Method: method, Params: raw}, nil
}

// RPCError is a JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Error implements the error interface.
func (e *RPCError) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

// RPCResponse is a JSON-RPC 2.0 response envelope.
type RPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// NewRPCResult builds a success response carrying a serialized result.
func NewRPCResult(id any, result any) (RPCResponse, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return RPCResponse{}, fmt.Errorf("marshal result: %w", err)
	}
	return RPCResponse{JSONRPC: "2.0", ID: id, Result: raw}, nil
}

// NewRPCError builds an error response.
func NewRPCError(id any, code int, message string) RPCResponse {
	return RPCResponse{JSONRPC: "2.0", ID: id, Error: &RPCError{Code: code, Message: message}}
}

// MessageSendParams are the params of a message/send request.
type MessageSendParams struct {
	Message  Message        `json:"message"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// TaskIDParams identify a task for tasks/get and tasks/cancel.
type TaskIDParams struct {
	ID       string         `json:"id"`
	Metadata map[string]any `json:"metadata,omitempty"`
}
