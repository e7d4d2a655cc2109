package authorization

import (
	"context"
	_ "embed"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"github.com/smallbiznis/orderdesk/internal/observability/logger"
	"github.com/smallbiznis/orderdesk/internal/principal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

// NewEnforcer loads the policy model. Policies are persisted in casbin_rule
// when db is set and held in memory otherwise.
func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}

	var enforcer *casbin.SyncedEnforcer
	if db != nil {
		adapter, err := gormadapter.NewAdapterByDB(db)
		if err != nil {
			return nil, err
		}
		enforcer, err = casbin.NewSyncedEnforcer(m, adapter)
		if err != nil {
			return nil, err
		}
		enforcer.EnableAutoSave(true)
		if err := enforcer.LoadPolicy(); err != nil {
			return nil, err
		}
	} else {
		enforcer, err = casbin.NewSyncedEnforcer(m)
		if err != nil {
			return nil, err
		}
	}

	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) Can(actor principal.Principal, action Action, resource ResourceType, owner *snowflake.ID) bool {
	if !actor.Valid() || action == "" || resource == "" {
		return false
	}
	ownerValue := ""
	if owner != nil && *owner != 0 {
		ownerValue = owner.String()
	}

	allowed, err := s.enforcer.Enforce(string(actor.Role), actor.ID.String(), string(resource), string(action), ownerValue)
	if err != nil {
		s.log.Error("enforce failed",
			zap.String("role", string(actor.Role)),
			zap.String("resource", string(resource)),
			zap.String("action", string(action)),
			zap.Error(err),
		)
		return false
	}
	return allowed
}

func (s *ServiceImpl) Authorize(ctx context.Context, actor principal.Principal, action Action, resource ResourceType, owner *snowflake.ID) error {
	if !actor.Valid() {
		return ErrInvalidActor
	}
	if !s.Can(actor, action, resource, owner) {
		logger.WithContext(ctx, s.log).Debug("authorization denied",
			zap.String("actor_id", actor.ID.String()),
			zap.String("role", string(actor.Role)),
			zap.String("resource", string(resource)),
			zap.String("action", string(action)),
		)
		return ErrForbidden
	}
	return nil
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	admin := string(principal.RoleAdmin)
	user := string(principal.RoleUser)

	policies := [][]string{
		{admin, "*", "*", ScopeAny},

		{user, string(ResourceCustomer), string(ActionCreate), ScopeOwn},
		{user, string(ResourceCustomer), string(ActionRead), ScopeOwn},
		{user, string(ResourceSKU), string(ActionCreate), ScopeOwn},
		{user, string(ResourceSKU), string(ActionRead), ScopeOwn},
		{user, string(ResourceOrder), string(ActionCreate), ScopeOwn},
		{user, string(ResourceOrder), string(ActionRead), ScopeOwn},
		{user, string(ResourceUser), string(ActionRead), ScopeOwn},
	}

	for _, policy := range policies {
		has, err := enforcer.HasPolicy(policy)
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
