package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FileWriter writes a file inside the workspace directory.
// Input format: "<filename>\n<content>": the first line names the file,
// everything after it is the content.
type FileWriter struct {
	// Workspace is the directory all paths are resolved against.
	Workspace string
}

// Name implements Tool.
func (t *FileWriter) Name() string { return "file_write" }

// Run implements Tool.
func (t *FileWriter) Run(ctx context.Context, input string) *Result {
	name, content, found := strings.Cut(input, "\n")
	if !found {
		name = input
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return failure(t.Name(), "no filename provided")
	}

	path, err := resolveWorkspacePath(t.Workspace, name)
	if err != nil {
		return failure(t.Name(), err.Error())
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return failure(t.Name(), fmt.Sprintf("create directory: %v", err))
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return failure(t.Name(), fmt.Sprintf("write file: %v", err))
	}

	return &Result{
		Success: true,
		Output:  fmt.Sprintf("wrote %d bytes to %s", len(content), name),
		Metadata: map[string]string{
			"tool_name": t.Name(),
			"filename":  name,
		},
	}
}

// FileReader reads a file from the workspace directory. Input is the filename.
type FileReader struct {
	Workspace string
}

// Name implements Tool.
func (t *FileReader) Name() string { return "file_read" }

// Run implements Tool.
func (t *FileReader) Run(ctx context.Context, input string) *Result {
	name := strings.TrimSpace(input)
	if name == "" {
		return failure(t.Name(), "no filename provided")
	}

	path, err := resolveWorkspacePath(t.Workspace, name)
	if err != nil {
		return failure(t.Name(), err.Error())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return failure(t.Name(), fmt.Sprintf("no such file: %s", name))
		}
		return failure(t.Name(), fmt.Sprintf("read file: %v", err))
	}

	return &Result{
		Success: true,
		Output:  string(data),
		Metadata: map[string]string{
			"tool_name": t.Name(),
			"filename":  name,
		},
	}
}

// FileLister lists the files currently in the workspace directory.
type FileLister struct {
	Workspace string
}

// Name implements Tool.
func (t *FileLister) Name() string { return "file_list" }

// Run implements Tool.
func (t *FileLister) Run(ctx context.Context, input string) *Result {
	entries, err := os.ReadDir(t.Workspace)
	if err != nil {
		if os.IsNotExist(err) {
			return &Result{
				Success:  true,
				Output:   "(empty workspace)",
				Metadata: map[string]string{"tool_name": t.Name()},
			}
		}
		return failure(t.Name(), fmt.Sprintf("list workspace: %v", err))
	}

	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	out := strings.Join(names, "\n")
	if out == "" {
		out = "(empty workspace)"
	}
	return &Result{
		Success:  true,
		Output:   out,
		Metadata: map[string]string{"tool_name": t.Name()},
	}
}

// resolveWorkspacePath joins name onto the workspace and rejects traversal
// outside it.
func resolveWorkspacePath(workspace, name string) (string, error) {
	path := filepath.Join(workspace, filepath.Clean("/"+name))
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}
	wsAbs, err := filepath.Abs(workspace)
	if err != nil {
		return "", fmt.Errorf("resolve workspace: %w", err)
	}
	if abs != wsAbs && !strings.HasPrefix(abs, wsAbs+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes workspace: %s", name)
	}
	return abs, nil
}
