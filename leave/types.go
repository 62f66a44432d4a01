/*
types.go - Core domain types

PURPOSE:
  Accounts, roles, caller identity and the leave request record. These are
  shared by the engine, the credential service and every store.

ROLES:
  Role is a closed set for authorization decisions. Registration stores the
  supplied value verbatim (defaulting to "user"), so an account may hold a
  role outside the set; such an account passes no role gate and is treated
  as a non-admin by the engine.

LEAVE LIFECYCLE:
  Pending ──admin──▶ Approved
     │
     └────admin──▶ Rejected

  No transition leaves Approved or Rejected.

SEE ALSO:
  - service.go: operations over these types
  - store.go: persistence contracts
*/
package leave

import (
	"strings"
	"time"
)

// =============================================================================
// ACCOUNTS & IDENTITY
// =============================================================================

type AccountID string

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// Account is a registered identity.
type Account struct {
	ID           AccountID
	Name         string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity is the authenticated caller, as carried by a session token.
type Identity struct {
	AccountID AccountID
	Role      Role
}

func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

// Owner is the public view of an account attached to leave records.
type Owner struct {
	ID   AccountID `json:"id"`
	Name string    `json:"name"`
	Role Role      `json:"role"`
}

// =============================================================================
// LEAVE REQUESTS
// =============================================================================

type LeaveID string

type Status string

const (
	StatusPending  Status = "Pending"
	StatusApproved Status = "Approved"
	StatusRejected Status = "Rejected"
)

// ActiveStatuses are the statuses that block overlapping requests.
var ActiveStatuses = []Status{StatusPending, StatusApproved}

func (s Status) Valid() bool {
	return s == StatusPending || s == StatusApproved || s == StatusRejected
}

// ParseStatus matches case-insensitively ("approved" -> Approved).
func ParseStatus(s string) (Status, bool) {
	for _, st := range []Status{StatusPending, StatusApproved, StatusRejected} {
		if strings.EqualFold(string(st), strings.TrimSpace(s)) {
			return st, true
		}
	}
	return "", false
}

// LeaveRequest is a single leave record owned by one account.
type LeaveRequest struct {
	ID             LeaveID
	OwnerID        AccountID
	Owner          *Owner // populated by stores on read
	FromDate       Date
	ToDate         Date
	Reason         string
	Status         Status
	ReviewComments string
	AppliedAt      time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (l LeaveRequest) Period() Period {
	return Period{From: l.FromDate, To: l.ToDate}
}

// Days is the inclusive length of the leave.
func (l LeaveRequest) Days() int {
	return l.Period().Days()
}

// =============================================================================
// VALIDATION LIMITS
// =============================================================================

const (
	MinNameLength   = 2
	MaxNameLength   = 50
	MaxReasonLength = 500
)
