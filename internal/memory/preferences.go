package memory

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Preferences records which worker role last succeeded for a class of task,
// keyed by a normalized fingerprint of the task text.
type Preferences struct {
	store *Store
}

// NewPreferences creates a preference view over the store.
func NewPreferences(store *Store) *Preferences {
	return &Preferences{store: store}
}

// Fingerprint normalizes a task description to its first four lowercased
// words. Tasks sharing an opening phrase share a preference slot.
func Fingerprint(task string) string {
	words := strings.Fields(strings.ToLower(task))
	if len(words) > 4 {
		words = words[:4]
	}
	return strings.Join(words, " ")
}

// RecordSuccess remembers that the given role completed a task of this
// shape, replacing any prior preference for the fingerprint.
func (p *Preferences) RecordSuccess(task, role string) error {
	fingerprint := Fingerprint(task)
	if fingerprint == "" {
		return nil
	}

	p.store.mu.Lock()
	defer p.store.mu.Unlock()

	_, err := p.store.db.Exec(`
		INSERT INTO worker_preferences (fingerprint, role, task_description, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(fingerprint) DO UPDATE SET
			role = excluded.role,
			task_description = excluded.task_description,
			updated_at = excluded.updated_at
	`, fingerprint, role, task, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("record preference: %w", err)
	}
	return nil
}

// PreferredRole returns the remembered role for a task of this shape, or
// empty when none is recorded. Implements router.PreferenceSource.
func (p *Preferences) PreferredRole(task string) (string, error) {
	fingerprint := Fingerprint(task)
	if fingerprint == "" {
		return "", nil
	}

	p.store.mu.RLock()
	defer p.store.mu.RUnlock()

	var role string
	err := p.store.db.QueryRow(
		"SELECT role FROM worker_preferences WHERE fingerprint = ?", fingerprint,
	).Scan(&role)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query preference: %w", err)
	}
	return role, nil
}

// RecordFailure increments the failure count for a role on this task shape.
func (p *Preferences) RecordFailure(task, role string) error {
	fingerprint := Fingerprint(task)
	if fingerprint == "" {
		return nil
	}

	p.store.mu.Lock()
	defer p.store.mu.Unlock()

	_, err := p.store.db.Exec(`
		INSERT INTO failure_counts (fingerprint, role, count, updated_at)
		VALUES (?, ?, 1, ?)
		ON CONFLICT(fingerprint, role) DO UPDATE SET
			count = count + 1,
			updated_at = excluded.updated_at
	`, fingerprint, role, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("record failure: %w", err)
	}
	return nil
}

// FailureCount returns how often the role has failed on this task shape.
func (p *Preferences) FailureCount(task, role string) (int, error) {
	p.store.mu.RLock()
	defer p.store.mu.RUnlock()

	var count int
	err := p.store.db.QueryRow(
		"SELECT count FROM failure_counts WHERE fingerprint = ? AND role = ?",
		Fingerprint(task), role,
	).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query failure count: %w", err)
	}
	return count, nil
}
