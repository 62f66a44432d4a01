package auth

import (
	"strings"

	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// AUTHORIZATION GATE
// =============================================================================

// Authenticate validates an Authorization header value ("Bearer <token>").
// The scheme is matched case-insensitively.
func (t *Tokens) Authenticate(header string) (leave.Identity, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return leave.Identity{}, leave.Errorf(leave.ErrUnauthenticated, "Authorization token missing or malformed")
	}
	return t.Verify(strings.TrimSpace(token))
}

// RequireRole fails with ErrForbidden unless the caller holds one of allowed.
func RequireRole(id leave.Identity, allowed ...leave.Role) error {
	for _, r := range allowed {
		if id.Role == r {
			return nil
		}
	}

	names := make([]string, len(allowed))
	for i, r := range allowed {
		names[i] = string(r)
	}
	return leave.Errorf(leave.ErrForbidden,
		"Access denied. Required roles: %s. Your role: %s", strings.Join(names, ", "), id.Role)
}
