package servicecall

import (
	"github.com/smallbiznis/fieldbook/internal/servicecall/repository"
	"github.com/smallbiznis/fieldbook/internal/servicecall/service"
	"go.uber.org/fx"
)

var Module = fx.Module("servicecall.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
