// ABOUTME: ChatThread and ChatMessage store methods
// ABOUTME: All lookups are group-scoped in a single statement

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreateThread creates a new chat thread and fills in its assigned ID.
func (s *SQLiteStore) CreateThread(ctx context.Context, thread *ChatThread) error {
	if thread.Status == "" {
		thread.Status = ThreadStatusOpen
	}
	thread.CreatedAt = dbTime(thread.CreatedAt)
	thread.UpdatedAt = dbTime(thread.UpdatedAt)

	query := `
		INSERT INTO chat_threads (group_id, title, status, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query,
		thread.GroupID,
		thread.Title,
		thread.Status,
		nullString(thread.CreatedBy),
		fmtTime(thread.CreatedAt),
		fmtTime(thread.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting thread: %w", err)
	}

	thread.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting thread id: %w", err)
	}

	s.logger.Debug("created thread", "id", thread.ID, "group_id", thread.GroupID)
	return nil
}

// nullString returns nil for empty strings, otherwise the string itself
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// GetThread retrieves a thread by ID within a group.
// Returns ErrNotFound when the id doesn't exist or belongs to another group;
// the two cases are indistinguishable by design.
func (s *SQLiteStore) GetThread(ctx context.Context, groupID string, id int64) (*ChatThread, error) {
	query := `
		SELECT id, group_id, title, status, created_by, created_at, updated_at
		FROM chat_threads
		WHERE id = ? AND group_id = ?
	`

	return scanThread(s.db.QueryRowContext(ctx, query, id, groupID))
}

func scanThread(row rowScanner) (*ChatThread, error) {
	var thread ChatThread
	var createdBy sql.NullString
	var createdAtStr, updatedAtStr string

	err := row.Scan(
		&thread.ID,
		&thread.GroupID,
		&thread.Title,
		&thread.Status,
		&createdBy,
		&createdAtStr,
		&updatedAtStr,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning thread: %w", err)
	}

	thread.CreatedBy = createdBy.String

	thread.CreatedAt, err = parseTime(createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	thread.UpdatedAt, err = parseTime(updatedAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	return &thread, nil
}

// ListThreads retrieves a group's threads ordered by most recent activity.
func (s *SQLiteStore) ListThreads(ctx context.Context, groupID string) ([]*ChatThread, error) {
	query := `
		SELECT id, group_id, title, status, created_by, created_at, updated_at
		FROM chat_threads
		WHERE group_id = ?
		ORDER BY updated_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("querying threads: %w", err)
	}
	defer rows.Close()

	var threads []*ChatThread
	for rows.Next() {
		thread, err := scanThread(rows)
		if err != nil {
			return nil, err
		}
		threads = append(threads, thread)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating thread rows: %w", err)
	}

	return threads, nil
}

// UpdateThreadStatus sets a thread's status and returns the updated thread.
// The update is a single group-scoped statement; zero rows affected means
// ErrNotFound regardless of why.
func (s *SQLiteStore) UpdateThreadStatus(ctx context.Context, groupID string, id int64, status string) (*ChatThread, error) {
	query := `
		UPDATE chat_threads
		SET status = ?, updated_at = ?
		WHERE id = ? AND group_id = ?
	`

	result, err := s.db.ExecContext(ctx, query, status, fmtTime(time.Now()), id, groupID)
	if err != nil {
		return nil, fmt.Errorf("updating thread status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, ErrNotFound
	}

	s.logger.Debug("updated thread status", "id", id, "status", status)
	return s.GetThread(ctx, groupID, id)
}

// CreateMessage appends a message to a thread and fills in its assigned ID.
func (s *SQLiteStore) CreateMessage(ctx context.Context, msg *ChatMessage) error {
	msg.CreatedAt = dbTime(msg.CreatedAt)

	query := `
		INSERT INTO chat_messages (thread_id, group_id, author_member_id, body, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query,
		msg.ThreadID,
		msg.GroupID,
		msg.AuthorMemberID,
		msg.Body,
		fmtTime(msg.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}

	msg.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting message id: %w", err)
	}

	s.logger.Debug("created message", "id", msg.ID, "thread_id", msg.ThreadID)
	return nil
}

// ListThreadMessages retrieves a thread's messages in chronological order.
// The thread id is matched together with the group id, so messages from other
// groups' threads are never returned.
func (s *SQLiteStore) ListThreadMessages(ctx context.Context, groupID string, threadID int64) ([]*ChatMessage, error) {
	query := `
		SELECT id, thread_id, group_id, author_member_id, body, created_at
		FROM chat_messages
		WHERE thread_id = ? AND group_id = ?
		ORDER BY created_at ASC, id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, threadID, groupID)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var messages []*ChatMessage
	for rows.Next() {
		var msg ChatMessage
		var createdAtStr string

		if err := rows.Scan(&msg.ID, &msg.ThreadID, &msg.GroupID, &msg.AuthorMemberID, &msg.Body, &createdAtStr); err != nil {
			return nil, fmt.Errorf("scanning message row: %w", err)
		}

		msg.CreatedAt, err = parseTime(createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		messages = append(messages, &msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating message rows: %w", err)
	}

	return messages, nil
}
