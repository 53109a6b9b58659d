package memory

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ShayCichocki/relay/pkg/models"
)

// Insert writes a new memory record.
func (s *Store) Insert(record *models.MemoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tools, err := json.Marshal(record.ToolsUsed)
	if err != nil {
		return fmt.Errorf("marshal tools: %w", err)
	}

	var lastUsed *string
	if record.LastUsed != nil {
		lu := formatTime(*record.LastUsed)
		lastUsed = &lu
	}

	_, err = s.db.Exec(`
		INSERT INTO memories (
			id, pattern_type, task_pattern, task_id, task_description,
			strategy, tools_used, step_trace, confidence, times_used,
			last_used, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		record.ID,
		string(record.PatternType),
		record.TaskPattern,
		nullString(record.TaskID),
		record.TaskDescription,
		nullString(record.Strategy),
		string(tools),
		nullString(record.StepTrace),
		record.Confidence,
		record.TimesUsed,
		lastUsed,
		formatTime(record.CreatedAt),
		formatTime(record.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert memory: %w", err)
	}

	return nil
}

// Get retrieves a memory record by its id, or nil if absent.
func (s *Store) Get(id string) (*models.MemoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`
		SELECT id, pattern_type, task_pattern, task_id, task_description,
			   strategy, tools_used, step_trace, confidence, times_used,
			   last_used, created_at, updated_at
		FROM memories WHERE id = ?
	`, id)

	record, err := scanMemory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query memory: %w", err)
	}
	return record, nil
}

// Candidates returns success-type memories at or above minConfidence,
// ordered by confidence, then usage, then recency, capped at limit.
func (s *Store) Candidates(minConfidence float64, limit int) ([]*models.MemoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT id, pattern_type, task_pattern, task_id, task_description,
			   strategy, tools_used, step_trace, confidence, times_used,
			   last_used, created_at, updated_at
		FROM memories
		WHERE pattern_type = ? AND confidence >= ?
		ORDER BY confidence DESC, times_used DESC, created_at DESC
		LIMIT ?
	`, string(models.PatternSuccess), minConfidence, limit)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	defer rows.Close()

	var records []*models.MemoryRecord
	for rows.Next() {
		record, err := scanMemory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// MarkUsed increments the usage counter and refreshes the last-used
// timestamp for a returned memory.
func (s *Store) MarkUsed(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.Exec(`
		UPDATE memories SET
			times_used = times_used + 1,
			last_used = ?,
			updated_at = ?
		WHERE id = ?
	`, formatTime(time.Now()), formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("mark memory used: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("memory not found: %s", id)
	}
	return nil
}

// AdjustConfidence adds delta to the confidence of the most recent records
// whose pattern contains the given text, clamped to [0,1]. At most maxRows
// records are touched.
func (s *Store) AdjustConfidence(pattern string, delta float64, maxRows int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.Exec(`
		UPDATE memories SET
			confidence = MAX(0.0, MIN(1.0, confidence + ?)),
			updated_at = ?
		WHERE id IN (
			SELECT id FROM memories
			WHERE task_pattern LIKE ?
			ORDER BY created_at DESC
			LIMIT ?
		)
	`, delta, formatTime(time.Now()), "%"+pattern+"%", maxRows)
	if err != nil {
		return 0, fmt.Errorf("adjust confidence: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	return int(rowsAffected), nil
}

// CountByType returns the number of stored memories per pattern type.
func (s *Store) CountByType() (map[models.PatternType]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query("SELECT pattern_type, COUNT(*) FROM memories GROUP BY pattern_type")
	if err != nil {
		return nil, fmt.Errorf("count memories: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.PatternType]int)
	for rows.Next() {
		var pt string
		var n int
		if err := rows.Scan(&pt, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[models.PatternType(pt)] = n
	}
	return counts, rows.Err()
}

// Recent returns the newest memories up to limit, for status display.
func (s *Store) Recent(limit int) ([]*models.MemoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT id, pattern_type, task_pattern, task_id, task_description,
			   strategy, tools_used, step_trace, confidence, times_used,
			   last_used, created_at, updated_at
		FROM memories
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent memories: %w", err)
	}
	defer rows.Close()

	var records []*models.MemoryRecord
	for rows.Next() {
		record, err := scanMemory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan memory: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanMemory(row scanner) (*models.MemoryRecord, error) {
	var (
		record      models.MemoryRecord
		patternType string
		taskID      sql.NullString
		strategy    sql.NullString
		tools       sql.NullString
		stepTrace   sql.NullString
		lastUsed    sql.NullString
		createdAt   string
		updatedAt   string
	)

	err := row.Scan(
		&record.ID,
		&patternType,
		&record.TaskPattern,
		&taskID,
		&record.TaskDescription,
		&strategy,
		&tools,
		&stepTrace,
		&record.Confidence,
		&record.TimesUsed,
		&lastUsed,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	record.PatternType = models.PatternType(patternType)
	record.TaskID = taskID.String
	record.Strategy = strategy.String
	record.StepTrace = stepTrace.String

	if tools.Valid && tools.String != "" {
		if err := json.Unmarshal([]byte(tools.String), &record.ToolsUsed); err != nil {
			return nil, fmt.Errorf("unmarshal tools: %w", err)
		}
	}
	if lastUsed.Valid {
		lu, _ := parseTime(lastUsed.String)
		record.LastUsed = &lu
	}

	ca, _ := parseTime(createdAt)
	record.CreatedAt = ca
	ua, _ := parseTime(updatedAt)
	record.UpdatedAt = ua

	return &record, nil
}
