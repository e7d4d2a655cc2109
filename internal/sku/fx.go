package sku

import (
	"github.com/smallbiznis/orderdesk/internal/sku/repository"
	"github.com/smallbiznis/orderdesk/internal/sku/service"
	"go.uber.org/fx"
)

var Module = fx.Module("sku.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
