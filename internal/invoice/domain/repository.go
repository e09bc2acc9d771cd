package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/fieldbook/internal/document"
	"github.com/smallbiznis/fieldbook/internal/document/store"
	"github.com/smallbiznis/fieldbook/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Invoice, error)
	FindForUpdate(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*Invoice, error)
	Save(ctx context.Context, tx *gorm.DB, invoice *Invoice, expectedVersion int64) error
	List(ctx context.Context, db *gorm.DB, filter store.ListFilter, page pagination.Pagination) ([]*Invoice, error)
	// ListPastDue returns ids of sent invoices due before asOf.
	ListPastDue(ctx context.Context, db *gorm.DB, asOf time.Time) ([]snowflake.ID, error)
	// ListForExport returns every invoice matching filter, newest first.
	ListForExport(ctx context.Context, db *gorm.DB, filter store.ListFilter) ([]*Invoice, error)
	// FindBySource returns the live (not cancelled) invoices converted from a source.
	FindBySource(ctx context.Context, db *gorm.DB, sourceType document.Type, sourceID snowflake.ID) ([]*Invoice, error)
}

// Releaser returns the converted share of an invoice's source when the
// invoice is cancelled. It runs inside the cancel transaction.
type Releaser interface {
	Release(ctx context.Context, tx *gorm.DB, invoice *Invoice) error
}
