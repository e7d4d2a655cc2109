package authorization

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/orderdesk/internal/principal"
)

type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
)

type ResourceType string

const (
	ResourceCustomer ResourceType = "customer"
	ResourceSKU      ResourceType = "sku"
	ResourceOrder    ResourceType = "order"
	ResourceUser     ResourceType = "user"
	ResourceSummary  ResourceType = "summary"
)

const (
	ScopeAny = "any"
	ScopeOwn = "own"
)

var (
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidActor = errors.New("invalid_actor")
)

// Service answers whether an actor may perform an action on a resource type.
// A nil owner means the request is not about a specific record.
type Service interface {
	Can(actor principal.Principal, action Action, resource ResourceType, owner *snowflake.ID) bool
	Authorize(ctx context.Context, actor principal.Principal, action Action, resource ResourceType, owner *snowflake.ID) error
}
