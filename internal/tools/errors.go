// Package tools provides the tool registry and execution framework.
//
// This file defines sentinel error types for tool execution.
package tools

import "fmt"

// ErrToolUnavailable is returned when a tool call targets a tool that
// is not present in the registry. This indicates a resolution failure,
// not a transient execution error. Callers should abort the agent run
// rather than retrying.
type ErrToolUnavailable struct {
	ToolName string
}

// Error implements the error interface.
func (e *ErrToolUnavailable) Error() string {
	return fmt.Sprintf("tool %q is not available", e.ToolName)
}

// EvalError is returned by the calculator tool when its input is not a
// valid arithmetic expression. The malformed input is reported back to
// the model as an observation, never as a crash.
type EvalError struct {
	Expr   string
	Reason string
}

// Error implements the error interface.
func (e *EvalError) Error() string {
	return fmt.Sprintf("cannot evaluate %q: %s", e.Expr, e.Reason)
}
