/*
service.go - Leave request engine

PURPOSE:
  Owns every business rule for leave requests: required fields, date-range
  validation, overlap detection, status transitions and the role-based
  visibility and mutation rules. Transport code calls these operations with
  the authenticated caller and maps the returned error kinds to responses.

PERMISSIONS:
  ┌───────────┬──────────────────────────┬───────────────────────────────┐
  │ Operation │ admin                    │ user                          │
  ├───────────┼──────────────────────────┼───────────────────────────────┤
  │ Create    │ allowed (route gates it) │ allowed, owner = caller       │
  │ List      │ all, optional filters    │ own records only              │
  │ Get       │ any record               │ own records only              │
  │ Update    │ status + comments        │ own, Pending, dates + reason  │
  │ Delete    │ any record               │ own, Pending                  │
  │ Stats     │ allowed                  │ forbidden                     │
  └───────────┴──────────────────────────┴───────────────────────────────┘

OVERLAP:
  Two leaves overlap when a.From <= b.To && a.To >= b.From. Only Pending and
  Approved leaves block a new request. The check and the insert run in one
  store transaction. Updates do not re-check overlap.

TODAY:
  "Today" is the local calendar day of Clock(). A fromDate equal to today is
  accepted.

SEE ALSO:
  - errors.go: failure kinds
  - store.go: transaction contract
  - stats.go: aggregate figures
*/
package leave

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// =============================================================================
// INPUTS
// =============================================================================

// CreateInput is a new leave request as submitted. Dates are YYYY-MM-DD or RFC3339.
type CreateInput struct {
	FromDate string
	ToDate   string
	Reason   string
}

// UpdateInput is a partial update. Nil and empty fields are not provided.
type UpdateInput struct {
	FromDate       *string
	ToDate         *string
	Reason         *string
	Status         *string
	ReviewComments *string
}

// ListFilter narrows List. Employee is honored for admins only.
type ListFilter struct {
	Employee string
	Status   string
}

// =============================================================================
// SERVICE
// =============================================================================

type Service struct {
	Store  Store
	Logger *zap.Logger

	// Clock defaults to time.Now.
	Clock func() time.Time
}

func NewService(store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{Store: store, Logger: logger, Clock: time.Now}
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock()
}

func (s *Service) log() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

// =============================================================================
// CREATE
// =============================================================================

// Create submits a Pending leave owned by the caller.
func (s *Service) Create(ctx context.Context, caller Identity, in CreateInput) (*LeaveRequest, error) {
	reason := strings.TrimSpace(in.Reason)
	if strings.TrimSpace(in.FromDate) == "" || strings.TrimSpace(in.ToDate) == "" || reason == "" {
		return nil, Errorf(ErrInvalidInput, "All fields are required: fromDate, toDate, reason")
	}
	if err := checkReason(reason); err != nil {
		return nil, err
	}

	from, err := parseDateField("fromDate", in.FromDate)
	if err != nil {
		return nil, err
	}
	to, err := parseDateField("toDate", in.ToDate)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if from.Before(Today(now)) {
		return nil, Errorf(ErrDateRange, "From date must be today or in the future")
	}
	period := Period{From: from, To: to}
	if !period.Valid() {
		return nil, Errorf(ErrDateRange, "To date must be after from date")
	}

	l := LeaveRequest{
		ID:        LeaveID(uuid.NewString()),
		OwnerID:   caller.AccountID,
		FromDate:  from,
		ToDate:    to,
		Reason:    reason,
		Status:    StatusPending,
		AppliedAt: now,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.Store.WithTx(ctx, func(tx LeaveTx) error {
		owner, err := tx.GetAccount(ctx, caller.AccountID)
		if err != nil {
			return Internal(err)
		}
		if owner == nil {
			return Errorf(ErrNotFound, "User not found")
		}

		existing, err := tx.ListLeaves(ctx, LeaveQuery{
			OwnerID:     caller.AccountID,
			Statuses:    ActiveStatuses,
			Overlapping: &period,
		})
		if err != nil {
			return Internal(err)
		}
		if len(existing) > 0 {
			return Errorf(ErrOverlap, "You already have a leave request for this period")
		}

		if err := tx.InsertLeave(ctx, l); err != nil {
			return Internal(err)
		}
		l.Owner = &Owner{ID: owner.ID, Name: owner.Name, Role: owner.Role}
		return nil
	})
	if err != nil {
		return nil, Internal(err)
	}

	s.log().Info("leave submitted",
		zap.String("leave_id", string(l.ID)),
		zap.String("owner_id", string(l.OwnerID)),
		zap.Stringer("period", l.Period()),
	)
	return &l, nil
}

// =============================================================================
// READ
// =============================================================================

// List returns leaves visible to the caller, newest first. Non-admin callers
// only ever see their own records.
func (s *Service) List(ctx context.Context, caller Identity, f ListFilter) ([]LeaveRequest, error) {
	var q LeaveQuery

	if f.Status != "" {
		st, ok := ParseStatus(f.Status)
		if !ok {
			return nil, Errorf(ErrInvalidInput, "Invalid status filter: %s", f.Status)
		}
		q.Statuses = []Status{st}
	}

	if caller.IsAdmin() {
		q.Employee = strings.TrimSpace(f.Employee)
	} else {
		q.OwnerID = caller.AccountID
	}

	leaves, err := s.Store.ListLeaves(ctx, q)
	if err != nil {
		return nil, Internal(err)
	}
	if leaves == nil {
		leaves = []LeaveRequest{}
	}
	return leaves, nil
}

// Get returns one leave. Non-admin callers may only read their own.
func (s *Service) Get(ctx context.Context, caller Identity, id LeaveID) (*LeaveRequest, error) {
	l, err := s.Store.GetLeave(ctx, id)
	if err != nil {
		return nil, Internal(err)
	}
	if l == nil {
		return nil, Errorf(ErrNotFound, "Leave request not found")
	}
	if !caller.IsAdmin() && l.OwnerID != caller.AccountID {
		return nil, Errorf(ErrForbidden, "Access denied. You can only view your own leave requests.")
	}
	return l, nil
}

// =============================================================================
// UPDATE
// =============================================================================

// Update applies a review (admin) or an edit (owner) to a leave.
func (s *Service) Update(ctx context.Context, caller Identity, id LeaveID, in UpdateInput) (*LeaveRequest, error) {
	var (
		updated  *LeaveRequest
		previous Status
	)

	err := s.Store.WithTx(ctx, func(tx LeaveTx) error {
		l, err := tx.GetLeave(ctx, id)
		if err != nil {
			return Internal(err)
		}
		if l == nil {
			return Errorf(ErrNotFound, "Leave request not found")
		}
		previous = l.Status

		if caller.IsAdmin() {
			err = s.review(l, in)
		} else {
			err = s.edit(caller, l, in)
		}
		if err != nil {
			return err
		}

		l.UpdatedAt = s.now()
		if err := tx.UpdateLeave(ctx, *l); err != nil {
			return Internal(err)
		}
		updated = l
		return nil
	})
	if err != nil {
		return nil, Internal(err)
	}

	if updated.Status != previous {
		s.log().Info("leave reviewed",
			zap.String("leave_id", string(updated.ID)),
			zap.String("reviewer_id", string(caller.AccountID)),
			zap.String("from", string(previous)),
			zap.String("to", string(updated.Status)),
		)
	}
	return updated, nil
}

// review applies an admin decision. Only status and review comments may change.
func (s *Service) review(l *LeaveRequest, in UpdateInput) error {
	if provided(in.FromDate) || provided(in.ToDate) || provided(in.Reason) {
		return Errorf(ErrInvalidInput, "Admin can only update status and review comments")
	}
	if !provided(in.Status) {
		return Errorf(ErrInvalidInput, "Admin can only approve or reject leaves")
	}
	st, ok := ParseStatus(*in.Status)
	if !ok || st == StatusPending {
		return Errorf(ErrInvalidInput, "Admin can only approve or reject leaves")
	}

	// Decided leaves keep their status; re-sending it only edits comments.
	if l.Status != StatusPending && l.Status != st {
		return Errorf(ErrInvalidState, "Leave request has already been %s", strings.ToLower(string(l.Status)))
	}

	if provided(in.ReviewComments) {
		comments := strings.TrimSpace(*in.ReviewComments)
		if utf8.RuneCountInString(comments) > MaxReasonLength {
			return Errorf(ErrInvalidInput, "Review comments cannot exceed %d characters", MaxReasonLength)
		}
		l.ReviewComments = comments
	}
	l.Status = st
	return nil
}

// edit applies an owner's change to a Pending leave.
func (s *Service) edit(caller Identity, l *LeaveRequest, in UpdateInput) error {
	if l.OwnerID != caller.AccountID {
		return Errorf(ErrForbidden, "Access denied. You can only edit your own leave requests.")
	}
	if l.Status != StatusPending {
		return Errorf(ErrInvalidState, "You can only edit pending leave requests")
	}
	if provided(in.Status) || provided(in.ReviewComments) {
		return Errorf(ErrInvalidInput, "Only admins can change status or review comments")
	}

	from, to := l.FromDate, l.ToDate
	if provided(in.FromDate) {
		d, err := parseDateField("fromDate", *in.FromDate)
		if err != nil {
			return err
		}
		if !d.Equal(l.FromDate) && d.Before(Today(s.now())) {
			return Errorf(ErrDateRange, "From date must be today or in the future")
		}
		from = d
	}
	if provided(in.ToDate) {
		d, err := parseDateField("toDate", *in.ToDate)
		if err != nil {
			return err
		}
		to = d
	}
	if to.Before(from) {
		return Errorf(ErrDateRange, "To date must be after from date")
	}

	if provided(in.Reason) {
		reason := strings.TrimSpace(*in.Reason)
		if err := checkReason(reason); err != nil {
			return err
		}
		if reason != "" {
			l.Reason = reason
		}
	}
	l.FromDate, l.ToDate = from, to
	return nil
}

// =============================================================================
// DELETE
// =============================================================================

// Delete removes a leave. Admins may delete any leave; owners only Pending ones.
func (s *Service) Delete(ctx context.Context, caller Identity, id LeaveID) error {
	var deleted *LeaveRequest

	err := s.Store.WithTx(ctx, func(tx LeaveTx) error {
		l, err := tx.GetLeave(ctx, id)
		if err != nil {
			return Internal(err)
		}
		if l == nil {
			return Errorf(ErrNotFound, "Leave request not found")
		}

		if !caller.IsAdmin() {
			if l.OwnerID != caller.AccountID {
				return Errorf(ErrForbidden, "Access denied. You can only delete your own leave requests.")
			}
			if l.Status != StatusPending {
				return Errorf(ErrInvalidState, "You can only delete pending leave requests")
			}
		}

		if err := tx.DeleteLeave(ctx, id); err != nil {
			return Internal(err)
		}
		deleted = l
		return nil
	})
	if err != nil {
		return Internal(err)
	}

	s.log().Info("leave deleted",
		zap.String("leave_id", string(deleted.ID)),
		zap.String("owner_id", string(deleted.OwnerID)),
		zap.String("deleted_by", string(caller.AccountID)),
		zap.String("status", string(deleted.Status)),
	)
	return nil
}

// =============================================================================
// STATS
// =============================================================================

// Stats summarizes every leave in the system. Admin only.
func (s *Service) Stats(ctx context.Context, caller Identity) (Stats, error) {
	if !caller.IsAdmin() {
		return Stats{}, Errorf(ErrForbidden, "Access denied. Admin only.")
	}
	leaves, err := s.Store.ListLeaves(ctx, LeaveQuery{})
	if err != nil {
		return Stats{}, Internal(err)
	}
	return ComputeStats(leaves), nil
}

// =============================================================================
// HELPERS
// =============================================================================

func provided(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}

func checkReason(reason string) error {
	if utf8.RuneCountInString(reason) > MaxReasonLength {
		return Errorf(ErrInvalidInput, "Reason cannot exceed %d characters", MaxReasonLength)
	}
	return nil
}

func parseDateField(field, value string) (Date, error) {
	d, err := ParseDate(value)
	if err != nil {
		return Date{}, &Error{
			Kind:    ErrInvalidInput,
			Message: "Invalid date format for " + field + ", expected YYYY-MM-DD",
			Err:     err,
		}
	}
	return d, nil
}
