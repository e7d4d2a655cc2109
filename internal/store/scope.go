package store

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/orderdesk/internal/principal"
	"gorm.io/gorm"
)

// Scope is the ownership filter applied to entity reads. The zero value
// matches nothing.
type Scope struct {
	All     bool
	OwnerID snowflake.ID
}

func ScopeAll() Scope {
	return Scope{All: true}
}

func OwnedBy(id snowflake.ID) Scope {
	return Scope{OwnerID: id}
}

// ScopeFor widens reads to everything for admins and narrows them to the
// actor's own rows otherwise.
func ScopeFor(actor principal.Principal) Scope {
	if actor.IsAdmin() {
		return ScopeAll()
	}
	return OwnedBy(actor.ID)
}

// Apply adds the ownership predicate on column to stmt.
func (s Scope) Apply(stmt *gorm.DB, column string) *gorm.DB {
	if s.All {
		return stmt
	}
	if s.OwnerID == 0 {
		return stmt.Where("1 = 0")
	}
	return stmt.Where(column+" = ?", s.OwnerID)
}
