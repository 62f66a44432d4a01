/*
store.go - Persistence contracts for accounts and leave requests

PURPOSE:
  Defines the interface between the engine and the database. Stores persist
  and query; they never decide business rules. Overlap policy, status
  transitions and permission checks all live in service.go.

KEY INTERFACES:
  AccountStore: identity records (unique name)
  LeaveReader:  leave lookups and filtered listing
  LeaveTx:      reads + writes inside one atomic unit
  LeaveStore:   LeaveReader + WithTx

ATOMIC CHECK-THEN-WRITE:
  Create runs "find overlapping active leaves, then insert" inside WithTx.
  Implementations must serialize WithTx callers that could conflict, so two
  concurrent creates for the same owner cannot both pass the overlap check.
  The SQLite store uses BEGIN IMMEDIATE; the memory store holds its lock.

NOT FOUND:
  Single-record getters return (nil, nil) when the record does not exist.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite
  - leave/store/memory.go:  in-memory, for tests

SEE ALSO:
  - service.go: the only caller of WithTx
*/
package leave

import "context"

// =============================================================================
// ACCOUNT STORE
// =============================================================================

type AccountStore interface {
	// CreateAccount persists a new account. Returns ErrConflict if the name exists.
	CreateAccount(ctx context.Context, a Account) error

	GetAccount(ctx context.Context, id AccountID) (*Account, error)
	GetAccountByName(ctx context.Context, name string) (*Account, error)
}

// =============================================================================
// LEAVE STORE
// =============================================================================

// LeaveQuery filters ListLeaves. Zero-valued fields do not filter.
type LeaveQuery struct {
	OwnerID AccountID

	// Employee matches the owner's id exactly, or the owner's name
	// case-insensitively as a substring.
	Employee string

	Statuses []Status

	// Overlapping keeps leaves whose [FromDate, ToDate] intersects the period.
	Overlapping *Period
}

type LeaveReader interface {
	GetLeave(ctx context.Context, id LeaveID) (*LeaveRequest, error)

	// ListLeaves returns matches newest first (CreatedAt descending).
	ListLeaves(ctx context.Context, q LeaveQuery) ([]LeaveRequest, error)
}

type LeaveWriter interface {
	InsertLeave(ctx context.Context, l LeaveRequest) error

	// UpdateLeave replaces the mutable fields of an existing leave.
	UpdateLeave(ctx context.Context, l LeaveRequest) error

	DeleteLeave(ctx context.Context, id LeaveID) error
}

// LeaveTx is the view of the store inside WithTx.
type LeaveTx interface {
	LeaveReader
	LeaveWriter
	GetAccount(ctx context.Context, id AccountID) (*Account, error)
}

type LeaveStore interface {
	LeaveReader

	// WithTx executes fn atomically.
	// If fn returns error, nothing fn wrote is kept.
	WithTx(ctx context.Context, fn func(tx LeaveTx) error) error
}

// Store is everything the service layer needs.
type Store interface {
	AccountStore
	LeaveStore
}
