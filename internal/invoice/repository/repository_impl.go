package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/fieldbook/internal/document"
	"github.com/smallbiznis/fieldbook/internal/document/store"
	"github.com/smallbiznis/fieldbook/internal/invoice/domain"
	"github.com/smallbiznis/fieldbook/pkg/db/pagination"
	"gorm.io/gorm"
)

// exportLimit caps a single export.
const exportLimit = 5000

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) error {
	return store.Insert(ctx, db, invoice)
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Invoice, error) {
	return store.FindByID[domain.Invoice](ctx, db, id)
}

func (r *repo) FindForUpdate(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.Invoice, error) {
	return store.FindForUpdate[domain.Invoice](ctx, tx, id)
}

func (r *repo) Save(ctx context.Context, tx *gorm.DB, invoice *domain.Invoice, expectedVersion int64) error {
	return store.SaveVersioned(ctx, tx, invoice, expectedVersion)
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter store.ListFilter, page pagination.Pagination) ([]*domain.Invoice, error) {
	return store.List[domain.Invoice](ctx, db, filter, page)
}

func (r *repo) ListPastDue(ctx context.Context, db *gorm.DB, asOf time.Time) ([]snowflake.ID, error) {
	var ids []int64
	err := db.WithContext(ctx).
		Model(&domain.Invoice{}).
		Where("status = ? AND due_date IS NOT NULL AND due_date < ?", string(domain.InvoiceStatusSent), asOf.UTC()).
		Order("due_date asc, id asc").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}

	out := make([]snowflake.ID, 0, len(ids))
	for _, id := range ids {
		out = append(out, snowflake.ID(id))
	}
	return out, nil
}

func (r *repo) ListForExport(ctx context.Context, db *gorm.DB, filter store.ListFilter) ([]*domain.Invoice, error) {
	var rows []*domain.Invoice
	stmt := db.WithContext(ctx).Model(&domain.Invoice{})
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.CustomerRef != nil {
		stmt = stmt.Where("customer_ref = ?", int64(*filter.CustomerRef))
	}
	if filter.ProjectRef != nil {
		stmt = stmt.Where("project_ref = ?", int64(*filter.ProjectRef))
	}
	if filter.CreatedFrom != nil {
		stmt = stmt.Where("created_at >= ?", filter.CreatedFrom.UTC())
	}
	if filter.CreatedTo != nil {
		stmt = stmt.Where("created_at <= ?", filter.CreatedTo.UTC())
	}
	err := stmt.Order("created_at desc, id desc").Limit(exportLimit).Find(&rows).Error
	return rows, err
}

func (r *repo) FindBySource(ctx context.Context, db *gorm.DB, sourceType document.Type, sourceID snowflake.ID) ([]*domain.Invoice, error) {
	var rows []*domain.Invoice
	err := db.WithContext(ctx).
		Where("source_type = ? AND source_id = ? AND status <> ?", string(sourceType), int64(sourceID), string(domain.InvoiceStatusCancelled)).
		Order("created_at asc, id asc").
		Find(&rows).Error
	return rows, err
}
