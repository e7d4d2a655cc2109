package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/orderdesk/internal/clock"
	"github.com/smallbiznis/orderdesk/internal/config"
	"github.com/smallbiznis/orderdesk/internal/metricspush"
	"github.com/smallbiznis/orderdesk/internal/observability"
	"github.com/smallbiznis/orderdesk/internal/ratelimit"
	"github.com/smallbiznis/orderdesk/internal/scheduler"
	"github.com/smallbiznis/orderdesk/internal/summary"
	"github.com/smallbiznis/orderdesk/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		ratelimit.Module, // Redis lock shared with other scheduler replicas

		summary.Module,
		scheduler.Module,

		// Not scraped, so metrics are pushed.
		metricspush.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(2)
	if err != nil {
		panic(err)
	}
	return node
}
