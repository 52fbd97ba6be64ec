// ABOUTME: Store interface and data types for hearth persistence
// ABOUTME: Defines Group, Member, InviteCode, ChatThread, TodoItem, and ledger structs

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist within the
// caller's group. Lookups never distinguish "absent" from "wrong group".
var ErrNotFound = errors.New("not found")

// ErrInviteNotFound is returned when no invite exists for a code.
var ErrInviteNotFound = errors.New("invite code not found")

// ErrInviteUsed is returned when trying to redeem an already-used invite.
var ErrInviteUsed = errors.New("invite code already used")

// ErrInviteExpired is returned when an invite has expired.
var ErrInviteExpired = errors.New("invite code expired")

// ErrDuplicateCode is returned when creating an invite with an existing code.
var ErrDuplicateCode = errors.New("invite code already exists")

// RoleMember is the default role granted by invites that don't name one.
const RoleMember = "member"

// Group is the tenant boundary. Every other entity belongs to exactly one.
type Group struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// Member is an authenticated participant within a group.
type Member struct {
	ID          string
	GroupID     string
	DisplayName string
	Role        string
	CreatedAt   time.Time
}

// InviteCode is a single-use, optionally-expiring token that creates a Member
// when redeemed. Codes are stored uppercase.
type InviteCode struct {
	ID             string
	GroupID        string
	Code           string
	Role           string // role granted on redemption, empty means member
	ExpiresAt      *time.Time
	CreatedAt      time.Time
	UsedAt         *time.Time
	UsedByMemberID string
}

// Thread status values
const (
	ThreadStatusOpen   = "OPEN"
	ThreadStatusClosed = "CLOSED"
)

// ValidThreadStatus reports whether s is an accepted thread status.
func ValidThreadStatus(s string) bool {
	return s == ThreadStatusOpen || s == ThreadStatusClosed
}

// ChatThread is a discussion thread scoped to a group.
type ChatThread struct {
	ID        int64
	GroupID   string
	Title     string
	Status    string
	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ChatMessage is a single markdown message within a thread.
type ChatMessage struct {
	ID             int64
	ThreadID       int64
	GroupID        string
	AuthorMemberID string
	Body           string
	CreatedAt      time.Time
}

// Todo status values
const (
	TodoStatusTodo       = "TODO"
	TodoStatusInProgress = "IN_PROGRESS"
	TodoStatusDone       = "DONE"
)

// ValidTodoStatus reports whether s is an accepted todo status.
func ValidTodoStatus(s string) bool {
	switch s {
	case TodoStatusTodo, TodoStatusInProgress, TodoStatusDone:
		return true
	}
	return false
}

// TodoItem is a shared task scoped to a group.
type TodoItem struct {
	ID        int64
	GroupID   string
	Title     string
	Status    string
	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Ledger is a financial record scoped to a group.
type Ledger struct {
	ID          int64
	GroupID     string
	Title       string
	AmountCents int64
	EntryDate   string // YYYY-MM-DD
	CreatedBy   string
	CreatedAt   time.Time
}

// Approval records a member's sign-off on a ledger entry.
type Approval struct {
	ID         int64
	LedgerID   int64
	GroupID    string
	ApprovedBy string
	CreatedAt  time.Time
}

// FiscalYearClose marks a group's accounting year as closed.
type FiscalYearClose struct {
	ID       int64
	GroupID  string
	Year     int
	ClosedBy string
	ClosedAt time.Time
}

// Store defines the persistence interface for hearth.
//
// Every method that targets a thread, todo, or ledger entity takes the caller's
// group ID and resolves the target in a single group-scoped statement; a miss
// for any reason is ErrNotFound.
type Store interface {
	// Groups and members
	CreateGroup(ctx context.Context, group *Group) error
	GetGroup(ctx context.Context, id string) (*Group, error)
	FirstGroup(ctx context.Context) (*Group, error)
	GetMember(ctx context.Context, groupID, id string) (*Member, error)
	ListMembers(ctx context.Context, groupID string) ([]*Member, error)

	// Invites
	CreateInvite(ctx context.Context, invite *InviteCode) error
	GetInviteByCode(ctx context.Context, code string) (*InviteCode, error)
	RedeemInvite(ctx context.Context, code, displayName string) (*Member, error)

	// Chat threads
	CreateThread(ctx context.Context, thread *ChatThread) error
	GetThread(ctx context.Context, groupID string, id int64) (*ChatThread, error)
	ListThreads(ctx context.Context, groupID string) ([]*ChatThread, error)
	UpdateThreadStatus(ctx context.Context, groupID string, id int64, status string) (*ChatThread, error)
	CreateMessage(ctx context.Context, msg *ChatMessage) error
	ListThreadMessages(ctx context.Context, groupID string, threadID int64) ([]*ChatMessage, error)

	// Todos
	CreateTodo(ctx context.Context, todo *TodoItem) error
	GetTodo(ctx context.Context, groupID string, id int64) (*TodoItem, error)
	ListTodos(ctx context.Context, groupID string) ([]*TodoItem, error)
	UpdateTodoStatus(ctx context.Context, groupID string, id int64, status string) (*TodoItem, error)

	// Ledger
	CreateLedger(ctx context.Context, ledger *Ledger) error
	ListLedgers(ctx context.Context, groupID string) ([]*Ledger, error)
	CreateApproval(ctx context.Context, approval *Approval) error
	CreateFiscalYearClose(ctx context.Context, fyc *FiscalYearClose) error
	DeleteGroupApprovals(ctx context.Context, groupID string) (int64, error)
	DeleteGroupLedgers(ctx context.Context, groupID string) (int64, error)
	DeleteGroupFiscalYearCloses(ctx context.Context, groupID string) (int64, error)

	Close() error
}
