package a2a

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced by the task store and server.
var (
	// ErrTaskNotFound is returned when a task ID is unknown.
	ErrTaskNotFound = errors.New("task not found")
	// ErrTaskTerminal is returned when an operation targets a task that has
	// already reached a terminal state.
	ErrTaskTerminal = errors.New("task is in a terminal state")
	// ErrEmptyMessage is returned when a message/send request carries no
	// usable content.
	ErrEmptyMessage = errors.New("no message content provided")
	// ErrCircuitOpen is returned by the client when the circuit breaker is
	// rejecting calls after repeated failures.
	ErrCircuitOpen = errors.New("circuit breaker is open")
)

// AgentError wraps a failure from a remote agent call with the agent name so
// orchestrators can log which pipeline step degraded.
type AgentError struct {
	Agent string // Name or URL the call was addressed to
	Err   error
}

// Error implements the error interface.
func (e *AgentError) Error() string {
	return fmt.Sprintf("agent %s: %v", e.Agent, e.Err)
}

// Unwrap exposes the underlying error for errors.Is/As.
func (e *AgentError) Unwrap() error { return e.Err }

// errorCode maps server-side failures to JSON-RPC error codes.
func errorCode(err error) int {
	switch {
	case errors.Is(err, ErrTaskNotFound):
		return CodeTaskNotFound
	case errors.Is(err, ErrTaskTerminal):
		return CodeTaskNotCancelable
	case errors.Is(err, ErrEmptyMessage):
		return CodeInvalidParams
	default:
		return CodeInternalError
	}
}
