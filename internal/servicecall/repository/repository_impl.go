package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/fieldbook/internal/document/store"
	"github.com/smallbiznis/fieldbook/internal/servicecall/domain"
	"github.com/smallbiznis/fieldbook/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, serviceCall *domain.ServiceCall) error {
	return store.Insert(ctx, db, serviceCall)
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.ServiceCall, error) {
	return store.FindByID[domain.ServiceCall](ctx, db, id)
}

func (r *repo) FindForUpdate(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.ServiceCall, error) {
	return store.FindForUpdate[domain.ServiceCall](ctx, tx, id)
}

func (r *repo) Save(ctx context.Context, tx *gorm.DB, serviceCall *domain.ServiceCall, expectedVersion int64) error {
	return store.SaveVersioned(ctx, tx, serviceCall, expectedVersion)
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter store.ListFilter, page pagination.Pagination) ([]*domain.ServiceCall, error) {
	return store.List[domain.ServiceCall](ctx, db, filter, page)
}
