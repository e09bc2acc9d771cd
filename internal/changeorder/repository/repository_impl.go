package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/fieldbook/internal/changeorder/domain"
	"github.com/smallbiznis/fieldbook/internal/document/store"
	"github.com/smallbiznis/fieldbook/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, changeOrder *domain.ChangeOrder) error {
	return store.Insert(ctx, db, changeOrder)
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.ChangeOrder, error) {
	return store.FindByID[domain.ChangeOrder](ctx, db, id)
}

func (r *repo) FindForUpdate(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.ChangeOrder, error) {
	return store.FindForUpdate[domain.ChangeOrder](ctx, tx, id)
}

func (r *repo) Save(ctx context.Context, tx *gorm.DB, changeOrder *domain.ChangeOrder, expectedVersion int64) error {
	return store.SaveVersioned(ctx, tx, changeOrder, expectedVersion)
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter store.ListFilter, page pagination.Pagination) ([]*domain.ChangeOrder, error) {
	return store.List[domain.ChangeOrder](ctx, db, filter, page)
}
