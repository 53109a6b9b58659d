package state

import (
	"database/sql"
	"fmt"

	"github.com/ShayCichocki/relay/pkg/models"
)

// UpsertTask writes the task row, replacing any existing row with the same
// id. Called at every status transition so observers see live progress.
func (db *DB) UpsertTask(task *models.Task) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.Exec(`
		INSERT INTO tasks (id, input, status, error, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			input = excluded.input,
			status = excluded.status,
			error = excluded.error,
			completed_at = excluded.completed_at
	`,
		task.ID,
		task.Input,
		string(task.Status),
		nullString(task.Error),
		formatTime(task.CreatedAt),
		nullTime(task.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert task: %w", err)
	}
	return nil
}

// UpsertStep writes the step row, replacing any existing row with the same id.
func (db *DB) UpsertStep(step *models.Step) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.Exec(`
		INSERT INTO steps (id, task_id, number, instruction, status, worker,
			result, error, retry_count, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			worker = excluded.worker,
			result = excluded.result,
			error = excluded.error,
			retry_count = excluded.retry_count,
			completed_at = excluded.completed_at
	`,
		step.ID,
		step.TaskID,
		step.Number,
		step.Instruction,
		string(step.Status),
		nullString(step.Worker),
		nullString(step.Result),
		nullString(step.Error),
		step.RetryCount,
		formatTime(step.CreatedAt),
		nullTime(step.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert step: %w", err)
	}
	return nil
}

// GetTask loads a task and its steps ordered by sequence number, or nil if
// the task does not exist.
func (db *DB) GetTask(id string) (*models.Task, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	task, err := db.scanTask(db.conn.QueryRow(`
		SELECT id, input, status, error, created_at, completed_at
		FROM tasks WHERE id = ?
	`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query task: %w", err)
	}

	rows, err := db.conn.Query(`
		SELECT id, task_id, number, instruction, status, worker,
			   result, error, retry_count, created_at, completed_at
		FROM steps WHERE task_id = ? ORDER BY number
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query steps: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		step, err := scanStep(rows)
		if err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		task.Steps = append(task.Steps, step)
	}
	return task, rows.Err()
}

// ListTasks returns the newest tasks up to limit, without their steps.
func (db *DB) ListTasks(limit int) ([]*models.Task, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	rows, err := db.conn.Query(`
		SELECT id, input, status, error, created_at, completed_at
		FROM tasks ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		task, err := db.scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func (db *DB) scanTask(row scanner) (*models.Task, error) {
	var (
		task        models.Task
		status      string
		errText     sql.NullString
		createdAt   string
		completedAt sql.NullString
	)
	if err := row.Scan(&task.ID, &task.Input, &status, &errText, &createdAt, &completedAt); err != nil {
		return nil, err
	}

	task.Status = models.TaskStatus(status)
	task.Error = errText.String
	ca, _ := parseTime(createdAt)
	task.CreatedAt = ca
	task.CompletedAt = parseNullableTime(completedAt)
	return &task, nil
}

func scanStep(row scanner) (*models.Step, error) {
	var (
		step        models.Step
		status      string
		worker      sql.NullString
		result      sql.NullString
		errText     sql.NullString
		createdAt   string
		completedAt sql.NullString
	)
	err := row.Scan(
		&step.ID,
		&step.TaskID,
		&step.Number,
		&step.Instruction,
		&status,
		&worker,
		&result,
		&errText,
		&step.RetryCount,
		&createdAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	step.Status = models.StepStatus(status)
	step.Worker = worker.String
	step.Result = result.String
	step.Error = errText.String
	ca, _ := parseTime(createdAt)
	step.CreatedAt = ca
	step.CompletedAt = parseNullableTime(completedAt)
	return &step, nil
}
