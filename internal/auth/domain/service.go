package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/orderdesk/internal/principal"
)

type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*User, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResult, error)
	Logout(ctx context.Context, rawToken string) error
	// Authenticate resolves a raw session token to the acting principal.
	Authenticate(ctx context.Context, rawToken string) (principal.Principal, error)
	// EnsureAdmin creates the admin account if the username is free.
	EnsureAdmin(ctx context.Context, username, password string) (*User, error)
}

type RegisterRequest struct {
	Username string
	Password string
}

type LoginRequest struct {
	Username  string
	Password  string
	UserAgent string
	IPAddress string
}

type LoginResult struct {
	User      *User
	RawToken  string
	ExpiresAt time.Time
	SessionID snowflake.ID
}
