package option

import (
	"strconv"
	"time"

	"github.com/smallbiznis/fieldbook/pkg/db/pagination"
	"gorm.io/gorm"
)

// QueryOption mutates a list query.
type QueryOption interface {
	Apply(db *gorm.DB) *gorm.DB
}

type optionFunc func(db *gorm.DB) *gorm.DB

func (f optionFunc) Apply(db *gorm.DB) *gorm.DB { return f(db) }

// ApplyPagination seeks past the page token and fetches one row beyond the
// page size so callers can tell whether more rows exist. Rows must be ordered
// by created_at desc, id desc.
func ApplyPagination(page pagination.Pagination) QueryOption {
	return optionFunc(func(db *gorm.DB) *gorm.DB {
		size := page.Size()
		if page.PageToken != "" {
			if cursor, err := pagination.DecodeCursor(page.PageToken); err == nil {
				createdAt, tErr := time.Parse(time.RFC3339Nano, cursor.CreatedAt)
				id, idErr := strconv.ParseInt(cursor.ID, 10, 64)
				if tErr == nil && idErr == nil {
					db = db.Where("(created_at < ?) OR (created_at = ? AND id < ?)", createdAt, createdAt, id)
				}
			}
		}
		return db.Limit(size + 1)
	})
}

func WithOrder(order string) QueryOption {
	return optionFunc(func(db *gorm.DB) *gorm.DB {
		return db.Order(order)
	})
}

// WithEqual adds column = value. Empty strings and nil are skipped.
func WithEqual(column string, value any) QueryOption {
	return optionFunc(func(db *gorm.DB) *gorm.DB {
		if value == nil {
			return db
		}
		if s, ok := value.(string); ok && s == "" {
			return db
		}
		return db.Where(column+" = ?", value)
	})
}

// WithCreatedBetween bounds created_at inclusively. A nil bound is open.
func WithCreatedBetween(from, to *time.Time) QueryOption {
	return optionFunc(func(db *gorm.DB) *gorm.DB {
		if from != nil {
			db = db.Where("created_at >= ?", from.UTC())
		}
		if to != nil {
			db = db.Where("created_at <= ?", to.UTC())
		}
		return db
	})
}

// NewestFirst is the ordering ApplyPagination expects.
func NewestFirst() QueryOption {
	return WithOrder("created_at desc, id desc")
}

// Apply runs opts over db in order.
func Apply(db *gorm.DB, opts ...QueryOption) *gorm.DB {
	for _, opt := range opts {
		if opt != nil {
			db = opt.Apply(db)
		}
	}
	return db
}

// Where adds a raw condition.
func Where(query string, args ...any) QueryOption {
	return optionFunc(func(db *gorm.DB) *gorm.DB {
		return db.Where(query, args...)
	})
}
