// Package tools provides the sandboxed execution backends workers use to act
// on the workspace: file operations and shell commands. Tools never return a
// Go error for expected failures; they report success=false with an error
// string so callers can feed the outcome straight into verdict handling.
package tools

import "context"

// Result is the standardized outcome of one tool invocation.
type Result struct {
	// Success reports whether the tool considers the invocation successful.
	Success bool
	// Output is the textual output of the tool.
	Output string
	// Error is the failure description, if any.
	Error string
	// Metadata carries free-form details (tool name, filenames, ...).
	Metadata map[string]string
}

// Tool is one executable backend.
type Tool interface {
	// Name is the unique tool identifier.
	Name() string
	// Run executes the tool with the given input text.
	Run(ctx context.Context, input string) *Result
}

// failure builds a failed Result for the named tool.
func failure(name, errMsg string) *Result {
	return &Result{
		Success:  false,
		Error:    errMsg,
		Metadata: map[string]string{"tool_name": name},
	}
}
