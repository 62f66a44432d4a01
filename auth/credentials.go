package auth

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/warp/leave-engine/leave"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// bcrypt ignores input past this length.
const maxPasswordBytes = 72

// =============================================================================
// CREDENTIAL SERVICE
// =============================================================================

type RegisterInput struct {
	Name     string
	Password string
	Role     string
}

type Credentials struct {
	Accounts leave.AccountStore
	Tokens   *Tokens
	Limiter  AttemptLimiter
	Logger   *zap.Logger

	// Cost is the bcrypt cost. Zero means bcrypt.DefaultCost.
	Cost int

	// Clock defaults to time.Now.
	Clock func() time.Time
}

func NewCredentials(accounts leave.AccountStore, tokens *Tokens, limiter AttemptLimiter, logger *zap.Logger) *Credentials {
	if limiter == nil {
		limiter = NopLimiter{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Credentials{
		Accounts: accounts,
		Tokens:   tokens,
		Limiter:  limiter,
		Logger:   logger,
		Cost:     bcrypt.DefaultCost,
		Clock:    time.Now,
	}
}

func (c *Credentials) now() time.Time {
	if c.Clock == nil {
		return time.Now()
	}
	return c.Clock()
}

func (c *Credentials) limiter() AttemptLimiter {
	if c.Limiter == nil {
		return NopLimiter{}
	}
	return c.Limiter
}

func (c *Credentials) log() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

// Register creates an account. The role is stored as given; empty means user.
func (c *Credentials) Register(ctx context.Context, in RegisterInput) (*leave.Account, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" || in.Password == "" {
		return nil, leave.Errorf(leave.ErrInvalidInput, "Name and password are required")
	}
	if n := utf8.RuneCountInString(name); n < leave.MinNameLength || n > leave.MaxNameLength {
		return nil, leave.Errorf(leave.ErrInvalidInput,
			"Name must be between %d and %d characters", leave.MinNameLength, leave.MaxNameLength)
	}
	if len(in.Password) > maxPasswordBytes {
		return nil, leave.Errorf(leave.ErrInvalidInput, "Password cannot exceed %d bytes", maxPasswordBytes)
	}

	role := leave.Role(strings.TrimSpace(in.Role))
	if role == "" {
		role = leave.RoleUser
	}

	existing, err := c.Accounts.GetAccountByName(ctx, name)
	if err != nil {
		return nil, leave.Internal(err)
	}
	if existing != nil {
		return nil, leave.Errorf(leave.ErrConflict, "User already exists")
	}

	cost := c.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), cost)
	if err != nil {
		return nil, leave.Internal(err)
	}

	now := c.now()
	a := leave.Account{
		ID:           leave.AccountID(uuid.NewString()),
		Name:         name,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := c.Accounts.CreateAccount(ctx, a); err != nil {
		return nil, leave.Internal(err)
	}

	c.log().Info("account registered",
		zap.String("account_id", string(a.ID)),
		zap.String("role", string(a.Role)),
	)
	return &a, nil
}

// Login verifies a password and returns a signed session token.
func (c *Credentials) Login(ctx context.Context, name, password string) (string, *leave.Account, error) {
	name = strings.TrimSpace(name)
	if name == "" || password == "" {
		return "", nil, leave.Errorf(leave.ErrInvalidInput, "Name and password are required")
	}

	limiter := c.limiter()
	if !limiter.Allow(ctx, name) {
		c.log().Warn("login throttled", zap.String("name", name))
		return "", nil, leave.Errorf(leave.ErrTooManyAttempts, "Too many login attempts. Try again later.")
	}

	a, err := c.Accounts.GetAccountByName(ctx, name)
	if err != nil {
		return "", nil, leave.Internal(err)
	}
	if a == nil {
		limiter.Fail(ctx, name)
		return "", nil, leave.Errorf(leave.ErrNotFound, "User %s not found", name)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)); err != nil {
		limiter.Fail(ctx, name)
		return "", nil, leave.Errorf(leave.ErrInvalidCredentials, "Invalid password")
	}
	limiter.Reset(ctx, name)

	token, err := c.Tokens.Issue(*a)
	if err != nil {
		return "", nil, leave.Internal(err)
	}
	return token, a, nil
}

// Me loads the caller's account.
func (c *Credentials) Me(ctx context.Context, id leave.Identity) (*leave.Account, error) {
	a, err := c.Accounts.GetAccount(ctx, id.AccountID)
	if err != nil {
		return nil, leave.Internal(err)
	}
	if a == nil {
		return nil, leave.Errorf(leave.ErrNotFound, "User not found")
	}
	return a, nil
}
