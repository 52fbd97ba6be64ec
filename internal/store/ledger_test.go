// ABOUTME: Tests for Ledger, Approval, and FiscalYearClose store methods
// ABOUTME: Includes the maintenance reset's ordered bulk-delete scenario

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestLedger(t *testing.T, s *SQLiteStore, groupID, title, entryDate string, amountCents int64) *Ledger {
	t.Helper()
	ledger := &Ledger{
		GroupID:     groupID,
		Title:       title,
		AmountCents: amountCents,
		EntryDate:   entryDate,
		CreatedAt:   time.Now(),
	}
	require.NoError(t, s.CreateLedger(context.Background(), ledger))
	return ledger
}

func TestStore_CreateAndListLedgers(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	group := createTestGroup(t, store, "finance")

	createTestLedger(t, store, group.ID, "venue rent", "2026-01-15", 50000)
	createTestLedger(t, store, group.ID, "supplies", "2026-03-02", 1250)

	ledgers, err := store.ListLedgers(ctx, group.ID)
	require.NoError(t, err)
	require.Len(t, ledgers, 2)
	// Newest entry date first
	assert.Equal(t, "supplies", ledgers[0].Title)
	assert.Equal(t, int64(1250), ledgers[0].AmountCents)
	assert.Equal(t, "2026-03-02", ledgers[0].EntryDate)
	assert.Equal(t, "venue rent", ledgers[1].Title)
}

func TestStore_ListLedgers_OnlyOwnGroup(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	groupA := createTestGroup(t, store, "group a")
	groupB := createTestGroup(t, store, "group b")

	createTestLedger(t, store, groupA.ID, "a entry", "2026-01-01", 100)

	ledgers, err := store.ListLedgers(ctx, groupB.ID)
	require.NoError(t, err)
	assert.Empty(t, ledgers)
}

func TestStore_CreateFiscalYearClose_UniquePerYear(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	group := createTestGroup(t, store, "finance")

	fyc := &FiscalYearClose{GroupID: group.ID, Year: 2025, ClosedBy: "m1", ClosedAt: time.Now()}
	require.NoError(t, store.CreateFiscalYearClose(ctx, fyc))
	assert.Greater(t, fyc.ID, int64(0))

	dup := &FiscalYearClose{GroupID: group.ID, Year: 2025, ClosedAt: time.Now()}
	assert.Error(t, store.CreateFiscalYearClose(ctx, dup), "one close per group per year")

	other := &FiscalYearClose{GroupID: group.ID, Year: 2026, ClosedAt: time.Now()}
	assert.NoError(t, store.CreateFiscalYearClose(ctx, other))
}

func TestStore_ResetDeletesInDependencyOrder(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	group := createTestGroup(t, store, "finance")
	other := createTestGroup(t, store, "untouched")

	ledgers := make([]*Ledger, 3)
	for i := range ledgers {
		ledgers[i] = createTestLedger(t, store, group.ID, "entry", "2026-02-01", int64(100*(i+1)))
	}

	// 5 approvals spread over the 3 ledgers
	for i := 0; i < 5; i++ {
		approval := &Approval{
			LedgerID:   ledgers[i%3].ID,
			GroupID:    group.ID,
			ApprovedBy: "m1",
			CreatedAt:  time.Now(),
		}
		require.NoError(t, store.CreateApproval(ctx, approval))
	}

	fyc := &FiscalYearClose{GroupID: group.ID, Year: 2025, ClosedAt: time.Now()}
	require.NoError(t, store.CreateFiscalYearClose(ctx, fyc))

	// Data in another group must survive the reset
	otherLedger := createTestLedger(t, store, other.ID, "keep", "2026-02-01", 999)
	require.NoError(t, store.CreateApproval(ctx, &Approval{
		LedgerID: otherLedger.ID, GroupID: other.ID, ApprovedBy: "m2", CreatedAt: time.Now(),
	}))

	// Approvals reference ledgers, so they go first
	n, err := store.DeleteGroupApprovals(ctx, group.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	n, err = store.DeleteGroupLedgers(ctx, group.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	n, err = store.DeleteGroupFiscalYearCloses(ctx, group.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	remaining, err := store.ListLedgers(ctx, group.ID)
	require.NoError(t, err)
	assert.Empty(t, remaining)

	kept, err := store.ListLedgers(ctx, other.ID)
	require.NoError(t, err)
	assert.Len(t, kept, 1, "other group untouched")
}

func TestStore_DeleteGroupLedgers_EmptyGroup(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	group := createTestGroup(t, store, "empty")

	n, err := store.DeleteGroupLedgers(ctx, group.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n, "deleting nothing is not an error")
}
