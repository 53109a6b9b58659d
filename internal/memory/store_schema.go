package memory

// Migrate creates the necessary tables and indexes if they don't exist.
func (s *Store) Migrate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS memory_schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return err
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM memory_schema_version")
	if err := row.Scan(&currentVersion); err != nil {
		return err
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migrationV1Memories},
		{2, migrationV2Preferences},
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		tx, err := s.db.Begin()
		if err != nil {
			return err
		}

		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return err
		}

		if _, err := tx.Exec("INSERT INTO memory_schema_version (version) VALUES (?)", m.version); err != nil {
			tx.Rollback()
			return err
		}

		if err := tx.Commit(); err != nil {
			return err
		}
	}

	return nil
}

// Migration SQL statements
const migrationV1Memories = `
CREATE TABLE IF NOT EXISTS memories (
	id TEXT PRIMARY KEY,
	pattern_type TEXT NOT NULL,
	task_pattern TEXT NOT NULL,
	task_id TEXT,
	task_description TEXT NOT NULL,
	strategy TEXT,
	tools_used TEXT,
	step_trace TEXT,
	confidence REAL NOT NULL DEFAULT 0.5,
	times_used INTEGER NOT NULL DEFAULT 0,
	last_used DATETIME,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_memories_pattern_type ON memories(pattern_type);
CREATE INDEX IF NOT EXISTS idx_memories_confidence ON memories(confidence DESC);
CREATE INDEX IF NOT EXISTS idx_memories_task_pattern ON memories(task_pattern);
CREATE INDEX IF NOT EXISTS idx_memories_created_at ON memories(created_at);
`

const migrationV2Preferences = `
CREATE TABLE IF NOT EXISTS worker_preferences (
	fingerprint TEXT PRIMARY KEY,
	role TEXT NOT NULL,
	task_description TEXT,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS failure_counts (
	fingerprint TEXT NOT NULL,
	role TEXT NOT NULL,
	count INTEGER NOT NULL DEFAULT 0,
	updated_at DATETIME NOT NULL,
	PRIMARY KEY (fingerprint, role)
);
`
