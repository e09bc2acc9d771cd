// Package store holds the persistence helpers shared by the document repositories.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/fieldbook/internal/document"
	"github.com/smallbiznis/fieldbook/pkg/db"
	"github.com/smallbiznis/fieldbook/pkg/db/option"
	"github.com/smallbiznis/fieldbook/pkg/db/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// numberAttempts bounds retries when two creates race for the same sequence.
const numberAttempts = 3

// ListFilter narrows a document listing. Zero values are ignored.
type ListFilter struct {
	Status      string
	CustomerRef *snowflake.ID
	ProjectRef  *snowflake.ID
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// FindByID returns nil, nil when no row matches.
func FindByID[T any](ctx context.Context, db *gorm.DB, id snowflake.ID) (*T, error) {
	var row T
	res := db.WithContext(ctx).Where("id = ?", int64(id)).Limit(1).Find(&row)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &row, nil
}

// FindForUpdate loads one row holding a row lock until tx ends.
func FindForUpdate[T any](ctx context.Context, tx *gorm.DB, id snowflake.ID) (*T, error) {
	return FindByID[T](ctx, tx.Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func Insert[T any](ctx context.Context, db *gorm.DB, row *T) error {
	return db.WithContext(ctx).Create(row).Error
}

// SaveVersioned writes every column of row when the stored version equals
// expected. The caller bumps the version on row before calling.
func SaveVersioned[T any](ctx context.Context, tx *gorm.DB, row *T, expected int64) error {
	res := tx.WithContext(ctx).
		Model(row).
		Where("version = ?", expected).
		Select("*").
		Omit("id", "created_at").
		Updates(row)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return document.ErrVersionConflict
	}
	return nil
}

func List[T any](ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Pagination) ([]*T, error) {
	stmt := option.Apply(db.WithContext(ctx).Model(new(T)),
		option.WithEqual("status", filter.Status),
		withRef("customer_ref", filter.CustomerRef),
		withRef("project_ref", filter.ProjectRef),
		option.WithCreatedBetween(filter.CreatedFrom, filter.CreatedTo),
		option.ApplyPagination(page),
		option.NewestFirst(),
	)

	var rows []*T
	if err := stmt.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func withRef(column string, ref *snowflake.ID) option.QueryOption {
	if ref == nil {
		return nil
	}
	return option.WithEqual(column, int64(*ref))
}

// Number reserves the next human number of table inside tx.
func Number(ctx context.Context, tx *gorm.DB, table, prefix string) (int64, string, error) {
	seq, err := document.NextSequence(ctx, tx, table)
	if err != nil {
		return 0, "", err
	}
	return seq, document.FormatNumber(prefix, seq), nil
}

// RetryNumbered reruns fn when it loses a numbering race to a concurrent
// create. fn must open its own transaction.
func RetryNumbered(fn func() error) error {
	var err error
	for attempt := 0; attempt < numberAttempts; attempt++ {
		err = fn()
		if err == nil || !db.IsDuplicateKeyErr(err) {
			return err
		}
	}
	return errors.Join(document.ErrVersionConflict, err)
}
