package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/warp/leave-engine/auth"
	"github.com/warp/leave-engine/leave"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// =============================================================================
// AUTHENTICATION & ROLE GATES
// =============================================================================

type ctxKey int

const identityKey ctxKey = iota

// WithIdentity attaches the authenticated caller to ctx.
func WithIdentity(ctx context.Context, id leave.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFrom returns the caller attached by Authenticate.
func IdentityFrom(ctx context.Context) (leave.Identity, bool) {
	id, ok := ctx.Value(identityKey).(leave.Identity)
	return id, ok
}

// Authenticate rejects requests without a valid bearer token.
func (h *Handler) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := h.Tokens.Authenticate(r.Header.Get("Authorization"))
		if err != nil {
			h.fail(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// RequireRoles must run after Authenticate.
func (h *Handler) RequireRoles(roles ...leave.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFrom(r.Context())
			if !ok {
				h.fail(w, r, leave.Errorf(leave.ErrUnauthenticated, "Access denied. User not authenticated."))
				return
			}
			if err := auth.RequireRole(id, roles...); err != nil {
				h.fail(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// =============================================================================
// REQUEST LOGGING
// =============================================================================

// RequestLogger logs one line per request. Level follows the status class.
func RequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			level := zapcore.InfoLevel
			switch {
			case status >= 500:
				level = zapcore.ErrorLevel
			case status >= 400:
				level = zapcore.WarnLevel
			}

			logger.Log(level, "http request",
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("latency", time.Since(start)),
				zap.String("remote_addr", r.RemoteAddr),
			)
		})
	}
}
