package router

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.yaml.in/yaml/v3"
)

// Table holds the keyword sets the router matches instructions against.
// Tables can be swapped at runtime; the built-in defaults cover the three
// stock specialist roles.
type Table struct {
	// Roles maps a role name to the keywords that select it. Match order
	// follows RoleOrder, not map iteration.
	Roles map[string][]string `yaml:"roles"`
	// RoleOrder fixes the order roles are checked and reported in.
	RoleOrder []string `yaml:"role_order"`
	// SequentialCues are words that force sequential execution when they
	// appear anywhere in the instruction.
	SequentialCues []string `yaml:"sequential_cues"`
	// DefaultRole is assigned when no keyword matches.
	DefaultRole string `yaml:"default_role"`
}

// DefaultTable returns the built-in routing table.
func DefaultTable() *Table {
	return &Table{
		Roles: map[string][]string{
			"researcher": {
				"search", "research", "find", "investigate", "explore",
				"discover", "lookup", "query", "latest", "current",
			},
			"engineer": {
				"code", "python", "calculate", "compute", "script",
				"program", "implement", "develop", "build", "create file",
				"algorithm", "function", "class",
			},
			"writer": {
				"write", "draft", "compose", "document", "article",
				"blog", "post", "summary", "report", "format",
			},
		},
		RoleOrder:      []string{"researcher", "engineer", "writer"},
		SequentialCues: []string{"then", "after", "once", "first", "before"},
		DefaultRole:    "engineer",
	}
}

// LoadTable reads a routing table from a YAML file. Missing fields fall
// back to the defaults so a table file can override just the keywords.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read routing table: %w", err)
	}

	table := DefaultTable()
	if err := yaml.Unmarshal(data, table); err != nil {
		return nil, fmt.Errorf("failed to parse routing table: %w", err)
	}
	if err := table.validate(); err != nil {
		return nil, fmt.Errorf("invalid routing table %s: %w", path, err)
	}
	return table, nil
}

func (t *Table) validate() error {
	if len(t.Roles) == 0 {
		return fmt.Errorf("no roles defined")
	}
	if t.DefaultRole == "" {
		return fmt.Errorf("default_role is required")
	}
	for _, role := range t.RoleOrder {
		if _, ok := t.Roles[role]; !ok {
			return fmt.Errorf("role_order references unknown role %q", role)
		}
	}
	return nil
}

// tableHolder guards the active table for concurrent route calls and
// hot reloads.
type tableHolder struct {
	mu    sync.RWMutex
	table *Table
}

func (h *tableHolder) get() *Table {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.table
}

func (h *tableHolder) set(t *Table) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.table = t
}

// WatchTable reloads the router's table whenever the file at path changes.
// It blocks until the watcher fails or stop is closed, so callers run it in
// a goroutine. A reload that fails to parse keeps the previous table.
func (r *TaskRouter) WatchTable(path string, stop <-chan struct{}) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create table watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: editors often replace the file, which would
	// drop a watch on the file itself.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}

	target := filepath.Clean(path)
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			table, err := LoadTable(path)
			if err != nil {
				log.Printf("[router] table reload failed, keeping previous: %v", err)
				continue
			}
			r.holder.set(table)
			log.Printf("[router] routing table reloaded from %s", path)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("[router] table watcher error: %v", err)
		case <-stop:
			return nil
		}
	}
}
