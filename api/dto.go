/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Response envelopes ({message, ...})

FIELD NAMES:
  camelCase throughout. Dates are "YYYY-MM-DD"; timestamps RFC3339.
  A leave's owner is rendered as "employee": {id, name, role}.

VALIDATION:
  Validation is done by the leave and auth packages, not here. DTOs are
  pure data carriers.

SEE ALSO:
  - handlers.go, auth_handlers.go: Use these types
*/
package api

import (
	"time"

	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

type RegisterRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

type LoginRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

type CreateLeaveRequest struct {
	FromDate string `json:"fromDate"`
	ToDate   string `json:"toDate"`
	Reason   string `json:"reason"`
}

// UpdateLeaveRequest is a partial update; absent fields are nil.
type UpdateLeaveRequest struct {
	FromDate       *string `json:"fromDate,omitempty"`
	ToDate         *string `json:"toDate,omitempty"`
	Reason         *string `json:"reason,omitempty"`
	Status         *string `json:"status,omitempty"`
	ReviewComments *string `json:"reviewComments,omitempty"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

type UserDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

type LeaveDTO struct {
	ID             string   `json:"id"`
	Employee       *UserDTO `json:"employee"`
	FromDate       string   `json:"fromDate"`
	ToDate         string   `json:"toDate"`
	Days           int      `json:"days"`
	Reason         string   `json:"reason"`
	Status         string   `json:"status"`
	ReviewComments string   `json:"reviewComments,omitempty"`
	AppliedAt      string   `json:"appliedAt"`
	CreatedAt      string   `json:"createdAt"`
	UpdatedAt      string   `json:"updatedAt"`
}

type StatsDTO struct {
	Total       int    `json:"total"`
	Pending     int    `json:"pending"`
	Approved    int    `json:"approved"`
	Rejected    int    `json:"rejected"`
	TotalDays   int    `json:"totalDays"`
	AverageDays string `json:"averageDays"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type LoginResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

type UserResponse struct {
	Message string  `json:"message"`
	User    UserDTO `json:"user"`
}

type LeaveResponse struct {
	Message string   `json:"message"`
	Leave   LeaveDTO `json:"leave"`
}

type LeaveListResponse struct {
	Message string     `json:"message"`
	Leaves  []LeaveDTO `json:"leaves"`
	Count   int        `json:"count"`
}

type StatsResponse struct {
	Message string   `json:"message"`
	Stats   StatsDTO `json:"stats"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

func toUserDTO(a leave.Account) UserDTO {
	return UserDTO{ID: string(a.ID), Name: a.Name, Role: string(a.Role)}
}

func toLeaveDTO(l leave.LeaveRequest) LeaveDTO {
	dto := LeaveDTO{
		ID:             string(l.ID),
		FromDate:       l.FromDate.String(),
		ToDate:         l.ToDate.String(),
		Days:           l.Days(),
		Reason:         l.Reason,
		Status:         string(l.Status),
		ReviewComments: l.ReviewComments,
		AppliedAt:      l.AppliedAt.Format(time.RFC3339),
		CreatedAt:      l.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      l.UpdatedAt.Format(time.RFC3339),
	}
	if l.Owner != nil {
		dto.Employee = &UserDTO{
			ID:   string(l.Owner.ID),
			Name: l.Owner.Name,
			Role: string(l.Owner.Role),
		}
	}
	return dto
}

func toLeaveDTOs(leaves []leave.LeaveRequest) []LeaveDTO {
	dtos := make([]LeaveDTO, len(leaves))
	for i, l := range leaves {
		dtos[i] = toLeaveDTO(l)
	}
	return dtos
}

func toStatsDTO(s leave.Stats) StatsDTO {
	return StatsDTO{
		Total:       s.Total,
		Pending:     s.ByStatus[leave.StatusPending],
		Approved:    s.ByStatus[leave.StatusApproved],
		Rejected:    s.ByStatus[leave.StatusRejected],
		TotalDays:   s.TotalDays,
		AverageDays: s.AverageDays.StringFixed(2),
	}
}
