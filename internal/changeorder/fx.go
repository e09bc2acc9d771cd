package changeorder

import (
	"github.com/smallbiznis/fieldbook/internal/changeorder/repository"
	"github.com/smallbiznis/fieldbook/internal/changeorder/service"
	"go.uber.org/fx"
)

var Module = fx.Module("changeorder.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
