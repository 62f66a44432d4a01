/*
Package sqlite provides a SQLite-backed implementation of leave.Store.

PURPOSE:
  Persists accounts and leave requests. Business rules stay in the leave
  package; this layer maps rows to domain types and back.

KEY TABLES:
  accounts:       registered identities (name is UNIQUE)
  leave_requests: leave records, one owner each

INDEXES:
  - idx_leave_owner_dates: overlap lookups per owner (hot path on create)
  - idx_leave_created:     newest-first listing

STORAGE FORMATS:
  from_date / to_date are "YYYY-MM-DD" text, so range comparisons are plain
  string comparisons. Timestamps are fixed-width UTC so created_at sorts
  lexically.

CONCURRENCY:
  The pool holds a single connection and transactions open with
  BEGIN IMMEDIATE (_txlock=immediate). A WithTx callback therefore owns the
  database until it commits, which makes the engine's overlap check and
  insert atomic. _busy_timeout covers other processes sharing the file.

USAGE:
  store, err := sqlite.New("./data/leave.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := leave.NewService(store, logger)

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - leave/store.go: Interface definitions
  - leave/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/leave-engine/leave"
)

const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store implements leave.Store using SQLite.
type Store struct {
	db *sql.DB
}

var _ leave.Store = (*Store)(nil)

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_txlock=immediate&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: required for :memory:, and serializes WithTx callers.
	db.SetMaxOpenConns(1)

	store, err := NewWithDB(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewWithDB wraps an already opened database and migrates it.
func NewWithDB(db *sql.DB) (*Store, error) {
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS leave_requests (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL REFERENCES accounts(id),
		from_date TEXT NOT NULL,
		to_date TEXT NOT NULL,
		reason TEXT NOT NULL,
		status TEXT NOT NULL,
		review_comments TEXT,
		applied_at TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		CHECK (to_date >= from_date)
	);

	CREATE INDEX IF NOT EXISTS idx_leave_owner_dates
		ON leave_requests(owner_id, status, from_date, to_date);
	CREATE INDEX IF NOT EXISTS idx_leave_created
		ON leave_requests(created_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// ACCOUNT STORE
// =============================================================================

// CreateAccount inserts a new account. Duplicate names return leave.ErrConflict.
func (s *Store) CreateAccount(ctx context.Context, a leave.Account) error {
	query := `
		INSERT INTO accounts (id, name, password_hash, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		string(a.ID), a.Name, a.PasswordHash, string(a.Role),
		formatTime(a.CreatedAt), formatTime(a.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return leave.Errorf(leave.ErrConflict, "User already exists")
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func (s *Store) GetAccount(ctx context.Context, id leave.AccountID) (*leave.Account, error) {
	return getAccount(ctx, s.db, "id", string(id))
}

func (s *Store) GetAccountByName(ctx context.Context, name string) (*leave.Account, error) {
	return getAccount(ctx, s.db, "name", name)
}

func getAccount(ctx context.Context, q querier, column, value string) (*leave.Account, error) {
	var (
		a                    leave.Account
		createdAt, updatedAt string
	)

	err := q.QueryRowContext(ctx,
		"SELECT id, name, password_hash, role, created_at, updated_at FROM accounts WHERE "+column+" = ?",
		value,
	).Scan(&a.ID, &a.Name, &a.PasswordHash, &a.Role, &createdAt, &updatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	a.CreatedAt = parseTime(createdAt)
	a.UpdatedAt = parseTime(updatedAt)
	return &a, nil
}

// =============================================================================
// LEAVE STORE
// =============================================================================

const selectLeaves = `
	SELECT l.id, l.owner_id, l.from_date, l.to_date, l.reason, l.status,
	       l.review_comments, l.applied_at, l.created_at, l.updated_at,
	       a.id, a.name, a.role
	FROM leave_requests l
	LEFT JOIN accounts a ON a.id = l.owner_id
`

func (s *Store) GetLeave(ctx context.Context, id leave.LeaveID) (*leave.LeaveRequest, error) {
	return getLeave(ctx, s.db, id)
}

func (s *Store) ListLeaves(ctx context.Context, q leave.LeaveQuery) ([]leave.LeaveRequest, error) {
	return listLeaves(ctx, s.db, q)
}

func getLeave(ctx context.Context, q querier, id leave.LeaveID) (*leave.LeaveRequest, error) {
	leaves, err := queryLeaves(ctx, q, selectLeaves+" WHERE l.id = ?", string(id))
	if err != nil {
		return nil, err
	}
	if len(leaves) == 0 {
		return nil, nil
	}
	return &leaves[0], nil
}

func listLeaves(ctx context.Context, q querier, lq leave.LeaveQuery) ([]leave.LeaveRequest, error) {
	var (
		where []string
		args  []any
	)

	if lq.OwnerID != "" {
		where = append(where, "l.owner_id = ?")
		args = append(args, string(lq.OwnerID))
	}
	if lq.Employee != "" {
		where = append(where, `(l.owner_id = ? OR LOWER(a.name) LIKE ? ESCAPE '\')`)
		args = append(args, lq.Employee, "%"+escapeLike(strings.ToLower(lq.Employee))+"%")
	}
	if len(lq.Statuses) > 0 {
		marks := make([]string, len(lq.Statuses))
		for i, st := range lq.Statuses {
			marks[i] = "?"
			args = append(args, string(st))
		}
		where = append(where, "l.status IN ("+strings.Join(marks, ", ")+")")
	}
	if lq.Overlapping != nil {
		// Closed intervals: existing.from <= new.to AND existing.to >= new.from
		where = append(where, "l.from_date <= ? AND l.to_date >= ?")
		args = append(args, lq.Overlapping.To.String(), lq.Overlapping.From.String())
	}

	query := selectLeaves
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY l.created_at DESC, l.id DESC"

	return queryLeaves(ctx, q, query, args...)
}

func queryLeaves(ctx context.Context, q querier, query string, args ...any) ([]leave.LeaveRequest, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaves: %w", err)
	}
	defer rows.Close()

	result := []leave.LeaveRequest{}
	for rows.Next() {
		l, err := scanLeave(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, l)
	}
	return result, rows.Err()
}

func scanLeave(rows *sql.Rows) (leave.LeaveRequest, error) {
	var (
		l                               leave.LeaveRequest
		fromDate, toDate                string
		comments                        sql.NullString
		appliedAt, createdAt, updatedAt string
		ownerID, ownerName, ownerRole   sql.NullString
	)

	err := rows.Scan(
		&l.ID, &l.OwnerID, &fromDate, &toDate, &l.Reason, &l.Status,
		&comments, &appliedAt, &createdAt, &updatedAt,
		&ownerID, &ownerName, &ownerRole,
	)
	if err != nil {
		return l, fmt.Errorf("failed to scan leave: %w", err)
	}

	if l.FromDate, err = leave.ParseDate(fromDate); err != nil {
		return l, fmt.Errorf("leave %s: bad from_date %q: %w", l.ID, fromDate, err)
	}
	if l.ToDate, err = leave.ParseDate(toDate); err != nil {
		return l, fmt.Errorf("leave %s: bad to_date %q: %w", l.ID, toDate, err)
	}
	l.ReviewComments = comments.String
	l.AppliedAt = parseTime(appliedAt)
	l.CreatedAt = parseTime(createdAt)
	l.UpdatedAt = parseTime(updatedAt)

	if ownerID.Valid {
		l.Owner = &leave.Owner{
			ID:   leave.AccountID(ownerID.String),
			Name: ownerName.String,
			Role: leave.Role(ownerRole.String),
		}
	}
	return l, nil
}

func insertLeave(ctx context.Context, q querier, l leave.LeaveRequest) error {
	query := `
		INSERT INTO leave_requests
		(id, owner_id, from_date, to_date, reason, status, review_comments,
		 applied_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := q.ExecContext(ctx, query,
		string(l.ID), string(l.OwnerID),
		l.FromDate.String(), l.ToDate.String(),
		l.Reason, string(l.Status), nullString(l.ReviewComments),
		formatTime(l.AppliedAt), formatTime(l.CreatedAt), formatTime(l.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return leave.Errorf(leave.ErrConflict, "Leave request %s already exists", l.ID)
		}
		return fmt.Errorf("failed to insert leave: %w", err)
	}
	return nil
}

func updateLeave(ctx context.Context, q querier, l leave.LeaveRequest) error {
	query := `
		UPDATE leave_requests
		SET from_date = ?, to_date = ?, reason = ?, status = ?,
		    review_comments = ?, updated_at = ?
		WHERE id = ?
	`

	res, err := q.ExecContext(ctx, query,
		l.FromDate.String(), l.ToDate.String(), l.Reason, string(l.Status),
		nullString(l.ReviewComments), formatTime(l.UpdatedAt),
		string(l.ID),
	)
	if err != nil {
		return fmt.Errorf("failed to update leave: %w", err)
	}
	return requireAffected(res, l.ID)
}

func deleteLeave(ctx context.Context, q querier, id leave.LeaveID) error {
	res, err := q.ExecContext(ctx, "DELETE FROM leave_requests WHERE id = ?", string(id))
	if err != nil {
		return fmt.Errorf("failed to delete leave: %w", err)
	}
	return requireAffected(res, id)
}

func requireAffected(res sql.Result, id leave.LeaveID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return leave.Errorf(leave.ErrNotFound, "Leave request %s not found", id)
	}
	return nil
}

// =============================================================================
// TRANSACTIONAL STORE (leave.LeaveStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(tx leave.LeaveTx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// txStore routes every call through the open transaction. With a single
// pooled connection, touching s.db here would block forever.
type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) GetAccount(ctx context.Context, id leave.AccountID) (*leave.Account, error) {
	return getAccount(ctx, ts.tx, "id", string(id))
}

func (ts *txStore) GetLeave(ctx context.Context, id leave.LeaveID) (*leave.LeaveRequest, error) {
	return getLeave(ctx, ts.tx, id)
}

func (ts *txStore) ListLeaves(ctx context.Context, q leave.LeaveQuery) ([]leave.LeaveRequest, error) {
	return listLeaves(ctx, ts.tx, q)
}

func (ts *txStore) InsertLeave(ctx context.Context, l leave.LeaveRequest) error {
	return insertLeave(ctx, ts.tx, l)
}

func (ts *txStore) UpdateLeave(ctx context.Context, l leave.LeaveRequest) error {
	return updateLeave(ctx, ts.tx, l)
}

func (ts *txStore) DeleteLeave(ctx context.Context, id leave.LeaveID) error {
	return deleteLeave(ctx, ts.tx, id)
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timestampLayout, s)
	return t
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
