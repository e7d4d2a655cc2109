package principal

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole normalizes a stored role. Unknown values fall back to user.
func ParseRole(value string) Role {
	if strings.EqualFold(strings.TrimSpace(value), string(RoleAdmin)) {
		return RoleAdmin
	}
	return RoleUser
}

// Principal is the authenticated identity a request acts as.
type Principal struct {
	ID          snowflake.ID `json:"id"`
	Role        Role         `json:"role"`
	DisplayName string       `json:"display_name"`
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

func (p Principal) Valid() bool {
	return p.ID != 0 && (p.Role == RoleAdmin || p.Role == RoleUser)
}

type contextKey struct{}

func WithContext(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

func FromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	p, ok := ctx.Value(contextKey{}).(Principal)
	return p, ok && p.Valid()
}
