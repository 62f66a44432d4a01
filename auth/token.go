/*
Package auth implements the credential service and the authorization gate.

PURPOSE:
  - Credentials: register accounts, verify passwords, issue session tokens
  - Tokens:      HS256 JWTs carrying {id, role, exp, iat, jti}
  - Gate:        Authenticate a bearer header, RequireRole against a set
  - Limiter:     throttle repeated failed logins per name (Redis)

TOKEN FORMAT:
  Header:  Authorization: Bearer <jwt>
  Payload: {"id": "<account id>", "role": "user", "exp": ..., "iat": ..., "jti": ...}
  Lifetime defaults to one hour.

SEE ALSO:
  - leave/types.go: Identity and Role
  - api/middleware.go: HTTP binding of the gate
*/
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/warp/leave-engine/leave"
)

// DefaultTokenTTL is the session lifetime when none is configured.
const DefaultTokenTTL = time.Hour

// Claims is the session token payload.
type Claims struct {
	AccountID string `json:"id"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

// Tokens issues and verifies session tokens with a shared HMAC secret.
type Tokens struct {
	secret []byte
	ttl    time.Duration

	// Clock defaults to time.Now.
	Clock func() time.Time
}

func NewTokens(secret string, ttl time.Duration) *Tokens {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Tokens{secret: []byte(secret), ttl: ttl, Clock: time.Now}
}

func (t *Tokens) now() time.Time {
	if t.Clock == nil {
		return time.Now()
	}
	return t.Clock()
}

// Issue signs a token for the account.
func (t *Tokens) Issue(a leave.Account) (string, error) {
	now := t.now()
	claims := Claims{
		AccountID: string(a.ID),
		Role:      string(a.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Verify checks signature and expiry and returns the identity inside.
func (t *Tokens) Verify(raw string) (leave.Identity, error) {
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return t.secret, nil
	},
		jwt.WithTimeFunc(t.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return leave.Identity{}, &leave.Error{Kind: leave.ErrUnauthenticated, Message: "Token expired", Err: err}
		}
		return leave.Identity{}, &leave.Error{Kind: leave.ErrUnauthenticated, Message: "Invalid token", Err: err}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.AccountID == "" {
		return leave.Identity{}, leave.Errorf(leave.ErrUnauthenticated, "Invalid token")
	}

	return leave.Identity{
		AccountID: leave.AccountID(claims.AccountID),
		Role:      leave.Role(claims.Role),
	}, nil
}
