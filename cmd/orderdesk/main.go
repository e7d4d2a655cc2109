package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/orderdesk/internal/auth"
	"github.com/smallbiznis/orderdesk/internal/authorization"
	"github.com/smallbiznis/orderdesk/internal/clock"
	"github.com/smallbiznis/orderdesk/internal/config"
	"github.com/smallbiznis/orderdesk/internal/customer"
	"github.com/smallbiznis/orderdesk/internal/metricspush"
	"github.com/smallbiznis/orderdesk/internal/migration"
	"github.com/smallbiznis/orderdesk/internal/notification"
	"github.com/smallbiznis/orderdesk/internal/observability"
	"github.com/smallbiznis/orderdesk/internal/order"
	"github.com/smallbiznis/orderdesk/internal/ratelimit"
	"github.com/smallbiznis/orderdesk/internal/scheduler"
	"github.com/smallbiznis/orderdesk/internal/sequence"
	"github.com/smallbiznis/orderdesk/internal/server"
	"github.com/smallbiznis/orderdesk/internal/sku"
	"github.com/smallbiznis/orderdesk/internal/summary"
	"github.com/smallbiznis/orderdesk/pkg/db"
	"go.uber.org/fx"
)

// orderdesk runs the API and the aggregation scheduler in one process.
func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		ratelimit.Module,

		authorization.Module,
		auth.Module,
		sequence.Module,
		customer.Module,
		sku.Module,
		notification.Module,
		order.Module,
		summary.Module,
		migration.Module,

		server.Module,
		scheduler.Module,
		metricspush.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
