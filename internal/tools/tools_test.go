package tools

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileWriter_Run(t *testing.T) {
	ws := t.TempDir()
	w := &FileWriter{Workspace: ws}

	res := w.Run(context.Background(), "demo.txt\nhello")
	if !res.Success {
		t.Fatalf("write failed: %s", res.Error)
	}
	if res.Metadata["filename"] != "demo.txt" {
		t.Errorf("filename metadata = %q, want demo.txt", res.Metadata["filename"])
	}

	data, err := os.ReadFile(filepath.Join(ws, "demo.txt"))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("content = %q, want hello", data)
	}
}

func TestFileWriter_EmptyFilename(t *testing.T) {
	w := &FileWriter{Workspace: t.TempDir()}
	res := w.Run(context.Background(), "")
	if res.Success {
		t.Error("write with empty filename should fail")
	}
}

func TestFileWriter_EscapesWorkspace(t *testing.T) {
	w := &FileWriter{Workspace: t.TempDir()}
	// Cleaned against the workspace root, so this must stay inside it.
	res := w.Run(context.Background(), "../outside.txt\nnope")
	if res.Success {
		if _, err := os.Stat(filepath.Join(w.Workspace, "..", "outside.txt")); err == nil {
			t.Error("write escaped the workspace")
		}
	}
}

func TestFileReader_Run(t *testing.T) {
	ws := t.TempDir()
	if err := os.WriteFile(filepath.Join(ws, "in.txt"), []byte("content"), 0644); err != nil {
		t.Fatal(err)
	}

	r := &FileReader{Workspace: ws}
	res := r.Run(context.Background(), "in.txt")
	if !res.Success {
		t.Fatalf("read failed: %s", res.Error)
	}
	if res.Output != "content" {
		t.Errorf("output = %q, want content", res.Output)
	}

	res = r.Run(context.Background(), "missing.txt")
	if res.Success {
		t.Error("reading a missing file should fail")
	}
	if !strings.Contains(res.Error, "no such file") {
		t.Errorf("error = %q, want no such file", res.Error)
	}
}

func TestFileLister_Run(t *testing.T) {
	ws := t.TempDir()
	for _, name := range []string{"b.txt", "a.txt"} {
		if err := os.WriteFile(filepath.Join(ws, name), nil, 0644); err != nil {
			t.Fatal(err)
		}
	}

	l := &FileLister{Workspace: ws}
	res := l.Run(context.Background(), "")
	if !res.Success {
		t.Fatalf("list failed: %s", res.Error)
	}
	if res.Output != "a.txt\nb.txt" {
		t.Errorf("output = %q, want sorted listing", res.Output)
	}
}

func TestShellRunner_Run(t *testing.T) {
	s := &ShellRunner{Workspace: t.TempDir()}

	res := s.Run(context.Background(), "echo ok")
	if !res.Success {
		t.Fatalf("echo failed: %s", res.Error)
	}
	if strings.TrimSpace(res.Output) != "ok" {
		t.Errorf("output = %q, want ok", res.Output)
	}

	res = s.Run(context.Background(), "exit 3")
	if res.Success {
		t.Error("non-zero exit should fail")
	}
	if res.Error == "" {
		t.Error("failed command should carry an error string")
	}
}
