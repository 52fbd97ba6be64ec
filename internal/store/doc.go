// Package store provides persistent storage for hearth using SQLite.
//
// # Architecture
//
// The Store interface covers groups, members, invite codes, chat threads,
// todo items, and ledger records. SQLiteStore implements the whole interface
// in a single struct over modernc.org/sqlite.
//
// # Tenant scoping
//
// Groups are the tenant boundary. Every lookup or mutation that targets a
// thread, todo, or ledger entity matches the entity id together with the
// caller's group id in one statement. A miss is ErrNotFound whether the row
// is absent or belongs to another group; callers cannot tell the difference,
// which prevents cross-tenant enumeration.
//
// # Invite redemption
//
// RedeemInvite is the only multi-step write: it creates the new member and
// consumes the invite inside one transaction, with a guarded UPDATE so that
// concurrent redemptions of the same code produce exactly one member.
//
// # Storage conventions
//
// Timestamps are stored as RFC3339 TEXT in UTC. Groups and members use uuid
// string ids; threads, todos, and ledger rows use integer autoincrement ids.
package store
