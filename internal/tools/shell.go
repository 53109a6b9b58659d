package tools

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// ShellRunner executes a shell command inside the workspace directory via
// "sh -c". Failures (non-zero exit, missing binaries) are reported in the
// Result, never as a panic or thrown error.
type ShellRunner struct {
	// Workspace is the working directory for commands.
	Workspace string
}

// Name implements Tool.
func (t *ShellRunner) Name() string { return "shell" }

// Run implements Tool.
func (t *ShellRunner) Run(ctx context.Context, input string) *Result {
	command := strings.TrimSpace(input)
	if command == "" {
		return failure(t.Name(), "no command provided")
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	if t.Workspace != "" {
		cmd.Dir = t.Workspace
	}

	out, err := cmd.CombinedOutput()
	if err != nil {
		return &Result{
			Success:  false,
			Output:   string(out),
			Error:    fmt.Sprintf("command failed: %v", err),
			Metadata: map[string]string{"tool_name": t.Name()},
		}
	}

	return &Result{
		Success:  true,
		Output:   string(out),
		Metadata: map[string]string{"tool_name": t.Name()},
	}
}
