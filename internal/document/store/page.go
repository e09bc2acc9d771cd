package store

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/fieldbook/internal/document"
	"github.com/smallbiznis/fieldbook/pkg/db/pagination"
)

// NewListFilter parses the reference filters of a list request. status must
// already be validated against the document's lifecycle.
func NewListFilter(status, customerRef, projectRef string, from, to *time.Time) (ListFilter, error) {
	filter := ListFilter{Status: strings.TrimSpace(status), CreatedFrom: from, CreatedTo: to}
	if from != nil && to != nil && from.After(*to) {
		return ListFilter{}, document.NewValidationError("created_from", "invalid_time_range", "created_from must not be after created_to")
	}

	var err error
	if filter.CustomerRef, err = document.ParseRef("customer_ref", &customerRef); err != nil {
		return ListFilter{}, err
	}
	if filter.ProjectRef, err = document.ParseRef("project_ref", &projectRef); err != nil {
		return ListFilter{}, err
	}
	return filter, nil
}

// ValidatePageToken rejects tokens that cannot be decoded. ApplyPagination
// silently ignores them otherwise.
func ValidatePageToken(page pagination.Pagination) error {
	if err := page.Validate(); err != nil {
		return document.NewValidationError("page_token", "invalid_page_token", "page_token is malformed")
	}
	return nil
}

// Page trims rows fetched with one extra row and builds the next-page cursor.
func Page[T any](rows []*T, size int, key func(*T) (snowflake.ID, time.Time)) ([]T, pagination.PageInfo) {
	return pagination.Collect(rows, size, func(row *T) pagination.Cursor {
		id, createdAt := key(row)
		return pagination.SeekCursor(int64(id), createdAt)
	})
}
