package summary

import (
	"github.com/smallbiznis/orderdesk/internal/summary/report"
	"github.com/smallbiznis/orderdesk/internal/summary/repository"
	"github.com/smallbiznis/orderdesk/internal/summary/service"
	"go.uber.org/fx"
)

var Module = fx.Module("summary.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Provide(report.New),
)
