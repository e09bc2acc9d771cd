package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/fieldbook/pkg/db/pagination"
	"gorm.io/gorm"
)

// Filter narrows a customer listing. Query is already lower-cased.
type Filter struct {
	Query       string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, customer *Customer) error
	Save(ctx context.Context, db *gorm.DB, customer *Customer) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Customer, error)
	Find(ctx context.Context, db *gorm.DB, filter Filter, page pagination.Pagination) ([]*Customer, error)
}
