/*
handlers.go - HTTP API handlers for the leave management service

PURPOSE:
  Exposes the leave engine and credential service via REST API. Handles
  HTTP request/response and JSON serialization, and delegates every
  decision to the leave and auth packages.

ENDPOINTS:
  Auth:
    POST   /api/auth/register     Register an account
    POST   /api/auth/login        Exchange name/password for a token

  Users:
    GET    /api/users/me          Caller's account

  Leaves:
    POST   /api/leaves            Submit a leave request (role user)
    GET    /api/leaves            List visible leaves (?employee=&status=)
    GET    /api/leaves/stats      Aggregate figures (role admin)
    GET    /api/leaves/{id}       Get one leave
    PUT    /api/leaves/{id}       Edit (owner) or review (admin)
    DELETE /api/leaves/{id}       Delete

REQUEST FLOW:
  1. Authenticate / RequireRoles middleware puts the caller in the context
  2. Decode the body
  3. Call the engine with the caller
  4. Serialize the response, or map the error kind to a status

ERROR HANDLING:
  See errors.go. Every non-2xx body is {message, code, details?}.

SEE ALSO:
  - dto.go: Request/response data structures
  - middleware.go: Auth gates and request logging
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/warp/leave-engine/auth"
	"github.com/warp/leave-engine/leave"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Leaves      *leave.Service
	Credentials *auth.Credentials
	Tokens      *auth.Tokens
	Logger      *zap.Logger

	// Health is optional; nil means always healthy.
	Health Pinger

	// ShowErrorDetails exposes the cause of 500s in responses.
	ShowErrorDetails bool
}

// NewHandler creates a new handler with the given services.
func NewHandler(leaves *leave.Service, creds *auth.Credentials, tokens *auth.Tokens, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Leaves:      leaves,
		Credentials: creds,
		Tokens:      tokens,
		Logger:      logger,
	}
}

func (h *Handler) log() *zap.Logger {
	if h.Logger == nil {
		return zap.NewNop()
	}
	return h.Logger
}

// caller returns the identity placed by Authenticate. Routes without the
// gate never reach handlers that call this.
func caller(r *http.Request) leave.Identity {
	id, _ := IdentityFrom(r.Context())
	return id
}

// =============================================================================
// LEAVE HANDLERS
// =============================================================================

// CreateLeave submits a leave request for the caller.
func (h *Handler) CreateLeave(w http.ResponseWriter, r *http.Request) {
	var req CreateLeaveRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	l, err := h.Leaves.Create(r.Context(), caller(r), leave.CreateInput{
		FromDate: req.FromDate,
		ToDate:   req.ToDate,
		Reason:   req.Reason,
	})
	observeOperation("create", err)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, LeaveResponse{
		Message: "Leave request submitted successfully",
		Leave:   toLeaveDTO(*l),
	})
}

// ListLeaves returns leaves visible to the caller.
// Query: ?employee=<name or id> (admin only), ?status=Pending|Approved|Rejected
func (h *Handler) ListLeaves(w http.ResponseWriter, r *http.Request) {
	leaves, err := h.Leaves.List(r.Context(), caller(r), leave.ListFilter{
		Employee: r.URL.Query().Get("employee"),
		Status:   r.URL.Query().Get("status"),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, LeaveListResponse{
		Message: "Leaves retrieved successfully",
		Leaves:  toLeaveDTOs(leaves),
		Count:   len(leaves),
	})
}

// GetLeave returns a single leave.
func (h *Handler) GetLeave(w http.ResponseWriter, r *http.Request) {
	l, err := h.Leaves.Get(r.Context(), caller(r), leave.LeaveID(chi.URLParam(r, "id")))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, LeaveResponse{
		Message: "Leave retrieved successfully",
		Leave:   toLeaveDTO(*l),
	})
}

// UpdateLeave edits (owner) or reviews (admin) a leave.
func (h *Handler) UpdateLeave(w http.ResponseWriter, r *http.Request) {
	var req UpdateLeaveRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	l, err := h.Leaves.Update(r.Context(), caller(r), leave.LeaveID(chi.URLParam(r, "id")), leave.UpdateInput{
		FromDate:       req.FromDate,
		ToDate:         req.ToDate,
		Reason:         req.Reason,
		Status:         req.Status,
		ReviewComments: req.ReviewComments,
	})
	observeOperation("update", err)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if caller(r).IsAdmin() {
		LeaveReviewsTotal.WithLabelValues(string(l.Status)).Inc()
	}

	writeJSON(w, http.StatusOK, LeaveResponse{
		Message: "Leave updated successfully",
		Leave:   toLeaveDTO(*l),
	})
}

// DeleteLeave removes a leave.
func (h *Handler) DeleteLeave(w http.ResponseWriter, r *http.Request) {
	err := h.Leaves.Delete(r.Context(), caller(r), leave.LeaveID(chi.URLParam(r, "id")))
	observeOperation("delete", err)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Leave request deleted successfully"})
}

// LeaveStats returns aggregate figures over all leaves.
func (h *Handler) LeaveStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Leaves.Stats(r.Context(), caller(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, StatsResponse{
		Message: "Leave statistics retrieved successfully",
		Stats:   toStatsDTO(stats),
	})
}

// =============================================================================
// HEALTH
// =============================================================================

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	if h.Health != nil {
		if err := h.Health.Ping(r.Context()); err != nil {
			h.log().Error("health check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// decodeJSON reads a JSON body into v. An empty body decodes to the zero value.
func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return &leave.Error{Kind: leave.ErrInvalidInput, Message: "Invalid request body", Err: err}
}
