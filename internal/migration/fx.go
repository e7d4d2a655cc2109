package migration

import (
	"context"
	"strings"

	authdomain "github.com/smallbiznis/orderdesk/internal/auth/domain"
	"github.com/smallbiznis/orderdesk/internal/config"
	"github.com/smallbiznis/orderdesk/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, dbCfg db.Config) error {
		return Migrate(conn, dbCfg.Type)
	}),
	fx.Invoke(BootstrapAdmin),
)

// BootstrapAdmin creates the configured admin account. Roles cannot be
// changed through the API, so this is the only way to get an admin.
func BootstrapAdmin(lc fx.Lifecycle, cfg config.Config, authSvc authdomain.Service, log *zap.Logger) {
	username := strings.TrimSpace(cfg.Bootstrap.AdminUsername)
	if username == "" || cfg.Bootstrap.AdminPassword == "" {
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			user, err := authSvc.EnsureAdmin(ctx, username, cfg.Bootstrap.AdminPassword)
			if err != nil {
				return err
			}
			log.Named("migration").Info("bootstrap admin ready",
				zap.String("user_id", user.ID.String()),
				zap.String("username", user.Username),
			)
			return nil
		},
	})
}
