package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/fieldbook/internal/document/store"
	"github.com/smallbiznis/fieldbook/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, serviceCall *ServiceCall) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*ServiceCall, error)
	FindForUpdate(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*ServiceCall, error)
	Save(ctx context.Context, tx *gorm.DB, serviceCall *ServiceCall, expectedVersion int64) error
	List(ctx context.Context, db *gorm.DB, filter store.ListFilter, page pagination.Pagination) ([]*ServiceCall, error)
}
