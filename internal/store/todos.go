// ABOUTME: TodoItem store methods
// ABOUTME: Same group-scoped contract as chat threads

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreateTodo creates a new todo item and fills in its assigned ID.
func (s *SQLiteStore) CreateTodo(ctx context.Context, todo *TodoItem) error {
	if todo.Status == "" {
		todo.Status = TodoStatusTodo
	}
	todo.CreatedAt = dbTime(todo.CreatedAt)
	todo.UpdatedAt = dbTime(todo.UpdatedAt)

	query := `
		INSERT INTO todo_items (group_id, title, status, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query,
		todo.GroupID,
		todo.Title,
		todo.Status,
		nullString(todo.CreatedBy),
		fmtTime(todo.CreatedAt),
		fmtTime(todo.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting todo: %w", err)
	}

	todo.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting todo id: %w", err)
	}

	s.logger.Debug("created todo", "id", todo.ID, "group_id", todo.GroupID)
	return nil
}

// GetTodo retrieves a todo by ID within a group.
// Returns ErrNotFound when the id doesn't exist or belongs to another group.
func (s *SQLiteStore) GetTodo(ctx context.Context, groupID string, id int64) (*TodoItem, error) {
	query := `
		SELECT id, group_id, title, status, created_by, created_at, updated_at
		FROM todo_items
		WHERE id = ? AND group_id = ?
	`

	return scanTodo(s.db.QueryRowContext(ctx, query, id, groupID))
}

func scanTodo(row rowScanner) (*TodoItem, error) {
	var todo TodoItem
	var createdBy sql.NullString
	var createdAtStr, updatedAtStr string

	err := row.Scan(
		&todo.ID,
		&todo.GroupID,
		&todo.Title,
		&todo.Status,
		&createdBy,
		&createdAtStr,
		&updatedAtStr,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning todo: %w", err)
	}

	todo.CreatedBy = createdBy.String

	todo.CreatedAt, err = parseTime(createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	todo.UpdatedAt, err = parseTime(updatedAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	return &todo, nil
}

// ListTodos retrieves a group's todos ordered by most recent activity.
func (s *SQLiteStore) ListTodos(ctx context.Context, groupID string) ([]*TodoItem, error) {
	query := `
		SELECT id, group_id, title, status, created_by, created_at, updated_at
		FROM todo_items
		WHERE group_id = ?
		ORDER BY updated_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("querying todos: %w", err)
	}
	defer rows.Close()

	var todos []*TodoItem
	for rows.Next() {
		todo, err := scanTodo(rows)
		if err != nil {
			return nil, err
		}
		todos = append(todos, todo)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating todo rows: %w", err)
	}

	return todos, nil
}

// UpdateTodoStatus sets a todo's status and returns the updated todo.
// Any status in the enumerated set is accepted from any other; there is no
// enforced forward-only ordering.
func (s *SQLiteStore) UpdateTodoStatus(ctx context.Context, groupID string, id int64, status string) (*TodoItem, error) {
	query := `
		UPDATE todo_items
		SET status = ?, updated_at = ?
		WHERE id = ? AND group_id = ?
	`

	result, err := s.db.ExecContext(ctx, query, status, fmtTime(time.Now()), id, groupID)
	if err != nil {
		return nil, fmt.Errorf("updating todo status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, ErrNotFound
	}

	s.logger.Debug("updated todo status", "id", id, "status", status)
	return s.GetTodo(ctx, groupID, id)
}
