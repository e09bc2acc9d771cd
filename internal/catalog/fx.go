package catalog

import (
	"github.com/smallbiznis/fieldbook/internal/catalog/domain"
	"github.com/smallbiznis/fieldbook/internal/catalog/service"
	"github.com/smallbiznis/fieldbook/internal/document/lineitem"
	"github.com/smallbiznis/fieldbook/pkg/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("catalog.service",
	fx.Provide(repository.ProvideStore[domain.CatalogItem]),
	fx.Provide(service.New),
	fx.Provide(func(svc domain.Service) lineitem.Catalog { return svc }),
)
