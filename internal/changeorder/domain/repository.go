package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/fieldbook/internal/document/store"
	"github.com/smallbiznis/fieldbook/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, changeOrder *ChangeOrder) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*ChangeOrder, error)
	FindForUpdate(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*ChangeOrder, error)
	Save(ctx context.Context, tx *gorm.DB, changeOrder *ChangeOrder, expectedVersion int64) error
	List(ctx context.Context, db *gorm.DB, filter store.ListFilter, page pagination.Pagination) ([]*ChangeOrder, error)
}
