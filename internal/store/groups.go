// ABOUTME: Group and Member store methods
// ABOUTME: Groups are the tenant boundary; members always carry their group id

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// CreateGroup creates a new group.
func (s *SQLiteStore) CreateGroup(ctx context.Context, group *Group) error {
	group.CreatedAt = dbTime(group.CreatedAt)

	query := `
		INSERT INTO groups (id, name, created_at)
		VALUES (?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		group.ID,
		group.Name,
		fmtTime(group.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting group: %w", err)
	}

	s.logger.Info("created group", "id", group.ID, "name", group.Name)
	return nil
}

// GetGroup retrieves a group by ID.
// Returns ErrNotFound if the group doesn't exist.
func (s *SQLiteStore) GetGroup(ctx context.Context, id string) (*Group, error) {
	query := `SELECT id, name, created_at FROM groups WHERE id = ?`

	row := s.db.QueryRowContext(ctx, query, id)
	return scanGroup(row)
}

// FirstGroup returns the oldest group, or ErrNotFound if none exist.
// Used by the maintenance reset script, which operates on the first group found.
func (s *SQLiteStore) FirstGroup(ctx context.Context) (*Group, error) {
	query := `SELECT id, name, created_at FROM groups ORDER BY created_at ASC LIMIT 1`

	row := s.db.QueryRowContext(ctx, query)
	return scanGroup(row)
}

func scanGroup(row *sql.Row) (*Group, error) {
	var group Group
	var createdAtStr string

	err := row.Scan(&group.ID, &group.Name, &createdAtStr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning group: %w", err)
	}

	group.CreatedAt, err = parseTime(createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}

	return &group, nil
}

// GetMember retrieves a member by ID within a group.
// Returns ErrNotFound if no member matches both the id and the group.
func (s *SQLiteStore) GetMember(ctx context.Context, groupID, id string) (*Member, error) {
	query := `
		SELECT id, group_id, display_name, role, created_at
		FROM members
		WHERE id = ? AND group_id = ?
	`

	var member Member
	var createdAtStr string

	err := s.db.QueryRowContext(ctx, query, id, groupID).Scan(
		&member.ID,
		&member.GroupID,
		&member.DisplayName,
		&member.Role,
		&createdAtStr,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying member: %w", err)
	}

	member.CreatedAt, err = parseTime(createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}

	return &member, nil
}

// ListMembers returns all members of a group, oldest first.
func (s *SQLiteStore) ListMembers(ctx context.Context, groupID string) ([]*Member, error) {
	query := `
		SELECT id, group_id, display_name, role, created_at
		FROM members
		WHERE group_id = ?
		ORDER BY created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("querying members: %w", err)
	}
	defer rows.Close()

	var members []*Member
	for rows.Next() {
		var member Member
		var createdAtStr string

		if err := rows.Scan(&member.ID, &member.GroupID, &member.DisplayName, &member.Role, &createdAtStr); err != nil {
			return nil, fmt.Errorf("scanning member row: %w", err)
		}

		member.CreatedAt, err = parseTime(createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		members = append(members, &member)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating member rows: %w", err)
	}

	return members, nil
}
