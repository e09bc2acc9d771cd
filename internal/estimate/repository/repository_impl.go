package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/fieldbook/internal/document/store"
	"github.com/smallbiznis/fieldbook/internal/estimate/domain"
	"github.com/smallbiznis/fieldbook/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, estimate *domain.Estimate) error {
	return store.Insert(ctx, db, estimate)
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Estimate, error) {
	return store.FindByID[domain.Estimate](ctx, db, id)
}

func (r *repo) FindForUpdate(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.Estimate, error) {
	return store.FindForUpdate[domain.Estimate](ctx, tx, id)
}

func (r *repo) Save(ctx context.Context, tx *gorm.DB, estimate *domain.Estimate, expectedVersion int64) error {
	return store.SaveVersioned(ctx, tx, estimate, expectedVersion)
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter store.ListFilter, page pagination.Pagination) ([]*domain.Estimate, error) {
	return store.List[domain.Estimate](ctx, db, filter, page)
}
