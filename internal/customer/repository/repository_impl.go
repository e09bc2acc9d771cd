package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/fieldbook/internal/customer/domain"
	"github.com/smallbiznis/fieldbook/pkg/db/option"
	"github.com/smallbiznis/fieldbook/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, customer *domain.Customer) error {
	return db.WithContext(ctx).Create(customer).Error
}

func (r *repo) Save(ctx context.Context, db *gorm.DB, customer *domain.Customer) error {
	return db.WithContext(ctx).
		Model(customer).
		Select("name", "email", "phone", "address", "metadata", "updated_at").
		Updates(customer).Error
}

// FindByID returns nil, nil when the customer does not exist.
func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Customer, error) {
	var rows []*domain.Customer
	if err := db.WithContext(ctx).Where("id = ?", int64(id)).Limit(1).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *repo) Find(ctx context.Context, db *gorm.DB, filter domain.Filter, page pagination.Pagination) ([]*domain.Customer, error) {
	stmt := option.Apply(db.WithContext(ctx).Model(&domain.Customer{}),
		matching(filter.Query),
		option.WithCreatedBetween(filter.CreatedFrom, filter.CreatedTo),
		option.ApplyPagination(page),
		option.NewestFirst(),
	)

	var customers []*domain.Customer
	if err := stmt.Find(&customers).Error; err != nil {
		return nil, err
	}
	return customers, nil
}

func matching(query string) option.QueryOption {
	if query == "" {
		return nil
	}
	pattern := "%" + query + "%"
	return option.Where("(LOWER(name) LIKE ? OR LOWER(email) LIKE ?)", pattern, pattern)
}
