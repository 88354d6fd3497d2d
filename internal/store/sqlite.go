package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tasklane-ai/chat-orchestrator/internal/apperr"
	"github.com/tasklane-ai/chat-orchestrator/internal/model"
)

const taskColumns = "id, user_id, title, description, completed, created_at, updated_at"

// SQLiteTaskStore persists tasks in SQLite using the pure-Go driver.
type SQLiteTaskStore struct {
	db *sql.DB
}

// NewSQLiteTaskStore opens (or creates) the task database at path.
func NewSQLiteTaskStore(path string) (*SQLiteTaskStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &SQLiteTaskStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteTaskStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS tasks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			completed INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_tasks_user ON tasks(user_id);
		CREATE INDEX IF NOT EXISTS idx_tasks_user_completed ON tasks(user_id, completed);
	`)
	return err
}

// Ping verifies database connectivity.
func (s *SQLiteTaskStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *SQLiteTaskStore) Close() error {
	return s.db.Close()
}

// CreateTask inserts a task and returns it with its assigned ID.
func (s *SQLiteTaskStore) CreateTask(ctx context.Context, task *model.Task) (*model.Task, error) {
	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (user_id, title, description, completed, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		task.UserID, task.Title, task.Description, boolToInt(task.Completed),
		now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, apperr.Storef("insert task: %v", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, apperr.Storef("task id: %v", err)
	}
	task.ID = id

	return task, nil
}

// GetTask returns a task owned by userID.
func (s *SQLiteTaskStore) GetTask(ctx context.Context, userID string, taskID int64) (*model.Task, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = ? AND user_id = ?`,
		taskID, userID,
	)
	return scanTask(row)
}

// ListTasks returns a page of tasks owned by userID, newest first.
func (s *SQLiteTaskStore) ListTasks(ctx context.Context, userID string, filter model.TaskFilter) ([]model.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = ?`
	args := []any{userID}

	if filter.Completed != nil {
		query += ` AND completed = ?`
		args = append(args, boolToInt(*filter.Completed))
	}

	query += ` ORDER BY id DESC LIMIT ? OFFSET ?`
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Storef("list tasks: %v", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storef("list tasks: %v", err)
	}

	return tasks, nil
}

// UpdateTask applies the non-nil fields of update to a task owned by userID.
func (s *SQLiteTaskStore) UpdateTask(ctx context.Context, userID string, taskID int64, update model.TaskUpdate) (*model.Task, error) {
	var sets []string
	var args []any

	if update.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *update.Title)
	}
	if update.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *update.Description)
	}
	if update.Completed != nil {
		sets = append(sets, "completed = ?")
		args = append(args, boolToInt(*update.Completed))
	}
	if len(sets) == 0 {
		return nil, apperr.Validationf("no fields to update")
	}

	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC().Format(time.RFC3339Nano))
	args = append(args, taskID, userID)

	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET `+strings.Join(sets, ", ")+` WHERE id = ? AND user_id = ?`,
		args...,
	)
	if err != nil {
		return nil, apperr.Storef("update task: %v", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, apperr.Storef("update task: %v", err)
	}
	if affected == 0 {
		return nil, apperr.ErrNotFound
	}

	return s.GetTask(ctx, userID, taskID)
}

// DeleteTask removes a task owned by userID.
func (s *SQLiteTaskStore) DeleteTask(ctx context.Context, userID string, taskID int64) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM tasks WHERE id = ? AND user_id = ?`,
		taskID, userID,
	)
	if err != nil {
		return apperr.Storef("delete task: %v", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return apperr.Storef("delete task: %v", err)
	}
	if affected == 0 {
		return apperr.ErrNotFound
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*model.Task, error) {
	var task model.Task
	var completed int
	var createdAt, updatedAt string

	err := row.Scan(&task.ID, &task.UserID, &task.Title, &task.Description, &completed, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, apperr.Storef("scan task: %v", err)
	}

	task.Completed = completed != 0
	task.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	task.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)

	return &task, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
