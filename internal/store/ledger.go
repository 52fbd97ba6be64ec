// ABOUTME: Ledger, Approval, and FiscalYearClose store methods
// ABOUTME: Includes the group-scoped bulk deletes used by the maintenance reset script

package store

import (
	"context"
	"database/sql"
	"fmt"
)

// CreateLedger creates a new ledger entry and fills in its assigned ID.
func (s *SQLiteStore) CreateLedger(ctx context.Context, ledger *Ledger) error {
	ledger.CreatedAt = dbTime(ledger.CreatedAt)

	query := `
		INSERT INTO ledgers (group_id, title, amount_cents, entry_date, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query,
		ledger.GroupID,
		ledger.Title,
		ledger.AmountCents,
		ledger.EntryDate,
		nullString(ledger.CreatedBy),
		fmtTime(ledger.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting ledger: %w", err)
	}

	ledger.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting ledger id: %w", err)
	}

	s.logger.Debug("created ledger", "id", ledger.ID, "group_id", ledger.GroupID)
	return nil
}

// ListLedgers retrieves a group's ledger entries ordered by entry date.
func (s *SQLiteStore) ListLedgers(ctx context.Context, groupID string) ([]*Ledger, error) {
	query := `
		SELECT id, group_id, title, amount_cents, entry_date, created_by, created_at
		FROM ledgers
		WHERE group_id = ?
		ORDER BY entry_date DESC, id DESC
	`

	rows, err := s.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("querying ledgers: %w", err)
	}
	defer rows.Close()

	var ledgers []*Ledger
	for rows.Next() {
		var ledger Ledger
		var createdBy sql.NullString
		var createdAtStr string

		if err := rows.Scan(
			&ledger.ID,
			&ledger.GroupID,
			&ledger.Title,
			&ledger.AmountCents,
			&ledger.EntryDate,
			&createdBy,
			&createdAtStr,
		); err != nil {
			return nil, fmt.Errorf("scanning ledger row: %w", err)
		}

		ledger.CreatedBy = createdBy.String
		ledger.CreatedAt, err = parseTime(createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		ledgers = append(ledgers, &ledger)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating ledger rows: %w", err)
	}

	return ledgers, nil
}

// CreateApproval records an approval on a ledger entry.
func (s *SQLiteStore) CreateApproval(ctx context.Context, approval *Approval) error {
	approval.CreatedAt = dbTime(approval.CreatedAt)

	query := `
		INSERT INTO approvals (ledger_id, group_id, approved_by, created_at)
		VALUES (?, ?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query,
		approval.LedgerID,
		approval.GroupID,
		approval.ApprovedBy,
		fmtTime(approval.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting approval: %w", err)
	}

	approval.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting approval id: %w", err)
	}

	return nil
}

// CreateFiscalYearClose records a fiscal year close for a group.
func (s *SQLiteStore) CreateFiscalYearClose(ctx context.Context, fyc *FiscalYearClose) error {
	fyc.ClosedAt = dbTime(fyc.ClosedAt)

	query := `
		INSERT INTO fiscal_year_closes (group_id, year, closed_by, closed_at)
		VALUES (?, ?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query,
		fyc.GroupID,
		fyc.Year,
		nullString(fyc.ClosedBy),
		fmtTime(fyc.ClosedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting fiscal year close: %w", err)
	}

	fyc.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting fiscal year close id: %w", err)
	}

	return nil
}

// DeleteGroupApprovals deletes all approvals belonging to a group and returns
// the number of rows removed. Approvals reference ledgers, so this must run
// before DeleteGroupLedgers.
func (s *SQLiteStore) DeleteGroupApprovals(ctx context.Context, groupID string) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM approvals WHERE group_id = ?`, groupID)
	if err != nil {
		return 0, fmt.Errorf("deleting approvals: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("getting rows affected: %w", err)
	}

	s.logger.Info("deleted approvals", "group_id", groupID, "count", rowsAffected)
	return rowsAffected, nil
}

// DeleteGroupLedgers deletes all ledger entries belonging to a group and
// returns the number of rows removed.
func (s *SQLiteStore) DeleteGroupLedgers(ctx context.Context, groupID string) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM ledgers WHERE group_id = ?`, groupID)
	if err != nil {
		return 0, fmt.Errorf("deleting ledgers: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("getting rows affected: %w", err)
	}

	s.logger.Info("deleted ledgers", "group_id", groupID, "count", rowsAffected)
	return rowsAffected, nil
}

// DeleteGroupFiscalYearCloses deletes all fiscal year closes belonging to a
// group and returns the number of rows removed.
func (s *SQLiteStore) DeleteGroupFiscalYearCloses(ctx context.Context, groupID string) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM fiscal_year_closes WHERE group_id = ?`, groupID)
	if err != nil {
		return 0, fmt.Errorf("deleting fiscal year closes: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("getting rows affected: %w", err)
	}

	s.logger.Info("deleted fiscal year closes", "group_id", groupID, "count", rowsAffected)
	return rowsAffected, nil
}
