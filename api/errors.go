package api

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/warp/leave-engine/leave"
	"go.uber.org/zap"
)

// =============================================================================
// ERROR MAPPING - One HTTP status per error kind
// =============================================================================

type errorMapping struct {
	status int
	code   string
}

var errorMappings = map[error]errorMapping{
	leave.ErrInvalidInput:       {http.StatusBadRequest, "INVALID_INPUT"},
	leave.ErrDateRange:          {http.StatusBadRequest, "INVALID_DATE_RANGE"},
	leave.ErrOverlap:            {http.StatusBadRequest, "OVERLAPPING_LEAVE"},
	leave.ErrInvalidState:       {http.StatusBadRequest, "INVALID_STATE"},
	leave.ErrUnauthenticated:    {http.StatusUnauthorized, "UNAUTHENTICATED"},
	leave.ErrInvalidCredentials: {http.StatusUnauthorized, "INVALID_CREDENTIALS"},
	leave.ErrForbidden:          {http.StatusForbidden, "FORBIDDEN"},
	leave.ErrNotFound:           {http.StatusNotFound, "NOT_FOUND"},
	leave.ErrConflict:           {http.StatusConflict, "CONFLICT"},
	leave.ErrTooManyAttempts:    {http.StatusTooManyRequests, "TOO_MANY_ATTEMPTS"},
	leave.ErrInternal:           {http.StatusInternalServerError, "INTERNAL"},
}

func mappingOf(err error) errorMapping {
	if m, ok := errorMappings[leave.KindOf(err)]; ok {
		return m
	}
	return errorMappings[leave.ErrInternal]
}

// statusOf returns the HTTP status for err.
func statusOf(err error) int {
	return mappingOf(err).status
}

// fail writes err as an ErrorResponse. Server errors are logged with their
// cause; the cause reaches the client only outside production.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	m := mappingOf(err)
	resp := ErrorResponse{
		Message: leave.MessageOf(err),
		Code:    m.code,
	}

	if m.status >= http.StatusInternalServerError {
		cause := leave.CauseOf(err)
		h.log().Error("request failed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(cause),
		)
		if h.ShowErrorDetails && cause != nil {
			resp.Details = cause.Error()
		}
	}

	writeJSON(w, m.status, resp)
}
