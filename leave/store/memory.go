// Package store provides an in-memory leave.Store.
package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu       sync.RWMutex
	accounts map[leave.AccountID]leave.Account
	names    map[string]leave.AccountID
	leaves   map[leave.LeaveID]leave.LeaveRequest
}

var _ leave.Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		accounts: make(map[leave.AccountID]leave.Account),
		names:    make(map[string]leave.AccountID),
		leaves:   make(map[leave.LeaveID]leave.LeaveRequest),
	}
}

// =============================================================================
// ACCOUNTS
// =============================================================================

func (m *Memory) CreateAccount(_ context.Context, a leave.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.names[a.Name]; ok {
		return leave.Errorf(leave.ErrConflict, "User already exists")
	}
	m.accounts[a.ID] = a
	m.names[a.Name] = a.ID
	return nil
}

func (m *Memory) GetAccount(_ context.Context, id leave.AccountID) (*leave.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.accountLocked(id), nil
}

func (m *Memory) GetAccountByName(_ context.Context, name string) (*leave.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.names[name]
	if !ok {
		return nil, nil
	}
	return m.accountLocked(id), nil
}

func (m *Memory) accountLocked(id leave.AccountID) *leave.Account {
	a, ok := m.accounts[id]
	if !ok {
		return nil
	}
	return &a
}

// =============================================================================
// LEAVES
// =============================================================================

func (m *Memory) GetLeave(_ context.Context, id leave.LeaveID) (*leave.LeaveRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getLocked(m.leaves, id), nil
}

func (m *Memory) ListLeaves(_ context.Context, q leave.LeaveQuery) ([]leave.LeaveRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listLocked(m.leaves, q), nil
}

func (m *Memory) getLocked(leaves map[leave.LeaveID]leave.LeaveRequest, id leave.LeaveID) *leave.LeaveRequest {
	l, ok := leaves[id]
	if !ok {
		return nil
	}
	l.Owner = m.ownerLocked(l.OwnerID)
	return &l
}

func (m *Memory) listLocked(leaves map[leave.LeaveID]leave.LeaveRequest, q leave.LeaveQuery) []leave.LeaveRequest {
	result := []leave.LeaveRequest{}
	for _, l := range leaves {
		l.Owner = m.ownerLocked(l.OwnerID)
		if matches(l, q) {
			result = append(result, l)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}

func (m *Memory) ownerLocked(id leave.AccountID) *leave.Owner {
	a, ok := m.accounts[id]
	if !ok {
		return nil
	}
	return &leave.Owner{ID: a.ID, Name: a.Name, Role: a.Role}
}

func matches(l leave.LeaveRequest, q leave.LeaveQuery) bool {
	if q.OwnerID != "" && l.OwnerID != q.OwnerID {
		return false
	}
	if q.Employee != "" {
		byID := string(l.OwnerID) == q.Employee
		byName := l.Owner != nil &&
			strings.Contains(strings.ToLower(l.Owner.Name), strings.ToLower(q.Employee))
		if !byID && !byName {
			return false
		}
	}
	if len(q.Statuses) > 0 {
		found := false
		for _, st := range q.Statuses {
			if l.Status == st {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if q.Overlapping != nil && !l.Period().Overlaps(*q.Overlapping) {
		return false
	}
	return true
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx holds the write lock for the whole of fn, so transactions are
// serialized. Writes go to a staged copy that replaces the live map only
// when fn succeeds.
func (m *Memory) WithTx(_ context.Context, fn func(tx leave.LeaveTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	staged := make(map[leave.LeaveID]leave.LeaveRequest, len(m.leaves))
	for id, l := range m.leaves {
		staged[id] = l
	}

	if err := fn(&memTx{m: m, leaves: staged}); err != nil {
		return err
	}
	m.leaves = staged
	return nil
}

type memTx struct {
	m      *Memory
	leaves map[leave.LeaveID]leave.LeaveRequest
}

func (t *memTx) GetAccount(_ context.Context, id leave.AccountID) (*leave.Account, error) {
	return t.m.accountLocked(id), nil
}

func (t *memTx) GetLeave(_ context.Context, id leave.LeaveID) (*leave.LeaveRequest, error) {
	return t.m.getLocked(t.leaves, id), nil
}

func (t *memTx) ListLeaves(_ context.Context, q leave.LeaveQuery) ([]leave.LeaveRequest, error) {
	return t.m.listLocked(t.leaves, q), nil
}

func (t *memTx) InsertLeave(_ context.Context, l leave.LeaveRequest) error {
	if _, ok := t.leaves[l.ID]; ok {
		return leave.Errorf(leave.ErrConflict, "leave %s already exists", l.ID)
	}
	l.Owner = nil
	t.leaves[l.ID] = l
	return nil
}

func (t *memTx) UpdateLeave(_ context.Context, l leave.LeaveRequest) error {
	if _, ok := t.leaves[l.ID]; !ok {
		return leave.Errorf(leave.ErrNotFound, "Leave request not found")
	}
	l.Owner = nil
	t.leaves[l.ID] = l
	return nil
}

func (t *memTx) DeleteLeave(_ context.Context, id leave.LeaveID) error {
	delete(t.leaves, id)
	return nil
}
