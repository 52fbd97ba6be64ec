// ABOUTME: InviteCode store methods including atomic redemption
// ABOUTME: Redemption creates the member and consumes the invite in one transaction

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CreateInvite creates a new invite code.
// Returns ErrDuplicateCode if the code is already taken.
func (s *SQLiteStore) CreateInvite(ctx context.Context, invite *InviteCode) error {
	invite.CreatedAt = dbTime(invite.CreatedAt)
	if invite.ExpiresAt != nil {
		t := dbTime(*invite.ExpiresAt)
		invite.ExpiresAt = &t
	}

	query := `
		INSERT INTO invite_codes (id, group_id, code, role, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	var role sql.NullString
	if invite.Role != "" {
		role = sql.NullString{String: invite.Role, Valid: true}
	}
	var expiresAt sql.NullString
	if invite.ExpiresAt != nil {
		expiresAt = sql.NullString{String: fmtTime(*invite.ExpiresAt), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, query,
		invite.ID,
		invite.GroupID,
		invite.Code,
		role,
		expiresAt,
		fmtTime(invite.CreatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDuplicateCode
		}
		return fmt.Errorf("inserting invite code: %w", err)
	}

	s.logger.Info("created invite code", "id", invite.ID, "group_id", invite.GroupID)
	return nil
}

// GetInviteByCode retrieves an invite by its code.
// Returns ErrInviteNotFound if no invite exists for the code.
func (s *SQLiteStore) GetInviteByCode(ctx context.Context, code string) (*InviteCode, error) {
	query := `
		SELECT id, group_id, code, role, expires_at, created_at, used_at, used_by_member_id
		FROM invite_codes
		WHERE code = ?
	`

	return scanInvite(s.db.QueryRowContext(ctx, query, code))
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvite(row rowScanner) (*InviteCode, error) {
	var inv InviteCode
	var role, expiresAt, usedAt, usedBy sql.NullString
	var createdAtStr string

	err := row.Scan(&inv.ID, &inv.GroupID, &inv.Code, &role, &expiresAt, &createdAtStr, &usedAt, &usedBy)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInviteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning invite code: %w", err)
	}

	inv.Role = role.String
	inv.UsedByMemberID = usedBy.String

	inv.CreatedAt, err = parseTime(createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}

	if expiresAt.Valid {
		t, err := parseTime(expiresAt.String)
		if err != nil {
			return nil, fmt.Errorf("parsing expires_at: %w", err)
		}
		inv.ExpiresAt = &t
	}

	if usedAt.Valid {
		t, err := parseTime(usedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parsing used_at: %w", err)
		}
		inv.UsedAt = &t
	}

	return &inv, nil
}

// RedeemInvite consumes an invite code and creates the member it admits, as a
// single transaction. Exactly one of N concurrent redemptions of the same code
// succeeds; the rest see ErrInviteUsed (or ErrInviteExpired / ErrInviteNotFound).
//
// The invite's group and granted role carry over to the new member; an invite
// without a role grants "member".
func (s *SQLiteStore) RedeemInvite(ctx context.Context, code, displayName string) (*Member, error) {
	// Pre-read outside the transaction: fails fast on clearly dead codes and
	// supplies the group and role for the member row. The guarded UPDATE below
	// is what actually decides the winner under concurrency.
	invite, err := s.GetInviteByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	now := dbTime(time.Now())
	if invite.UsedAt != nil {
		return nil, ErrInviteUsed
	}
	if invite.ExpiresAt != nil && now.After(*invite.ExpiresAt) {
		return nil, ErrInviteExpired
	}

	role := invite.Role
	if role == "" {
		role = RoleMember
	}

	member := &Member{
		ID:          uuid.NewString(),
		GroupID:     invite.GroupID,
		DisplayName: displayName,
		Role:        role,
		CreatedAt:   now,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning redeem transaction: %w", err)
	}
	defer tx.Rollback()

	// First statement is a write so the transaction holds the write lock for
	// its whole lifetime; no read-to-write upgrade deadlocks.
	_, err = tx.ExecContext(ctx, `
		INSERT INTO members (id, group_id, display_name, role, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, member.ID, member.GroupID, member.DisplayName, member.Role, fmtTime(member.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("inserting member: %w", err)
	}

	// Guarded consume: only succeeds if the invite is still unused and
	// unexpired. This closes the TOCTOU window left by the pre-read.
	result, err := tx.ExecContext(ctx, `
		UPDATE invite_codes
		SET used_at = ?, used_by_member_id = ?
		WHERE id = ?
		  AND used_at IS NULL
		  AND (expires_at IS NULL OR expires_at > ?)
	`, fmtTime(now), member.ID, invite.ID, fmtTime(now))
	if err != nil {
		return nil, fmt.Errorf("consuming invite code: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		// Lost the race; the rollback discards the member row.
		if invite.ExpiresAt != nil && time.Now().After(*invite.ExpiresAt) {
			return nil, ErrInviteExpired
		}
		return nil, ErrInviteUsed
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing redeem transaction: %w", err)
	}

	s.logger.Info("invite redeemed", "invite_id", invite.ID, "member_id", member.ID, "group_id", member.GroupID)
	return member, nil
}
