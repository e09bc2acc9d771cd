package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/fieldbook/internal/document"
	"github.com/smallbiznis/fieldbook/internal/document/lineitem"
	"github.com/smallbiznis/fieldbook/pkg/db/pagination"
)

// Content is the editable part of an estimate.
type Content struct {
	Title       string                     `json:"title"`
	Description string                     `json:"description"`
	Items       []lineitem.Draft           `json:"items"`
	TaxRate     *decimal.Decimal           `json:"tax_rate"`
	TotalAmount *decimal.Decimal           `json:"total_amount"`
	ProjectRef  *string                    `json:"project_ref"`
	CustomerRef *string                    `json:"customer_ref"`
	Customer    *document.CustomerSnapshot `json:"customer"`
	Notes       string                     `json:"notes"`
	ValidUntil  *time.Time                 `json:"valid_until"`
}

type CreateRequest struct {
	Content
}

// UpdateRequest replaces the content of a draft estimate. Version, when set,
// must match the stored version.
type UpdateRequest struct {
	ID      string `json:"-"`
	Version *int64 `json:"version"`
	Content
}

type TransitionRequest struct {
	ID     string `json:"-"`
	Status string `json:"status"`
}

type ListRequest struct {
	pagination.Pagination
	Status      string
	CustomerRef string
	ProjectRef  string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

type ListResponse struct {
	pagination.PageInfo
	Estimates []Estimate `json:"estimates"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (Estimate, error)
	Update(ctx context.Context, req UpdateRequest) (Estimate, error)
	Get(ctx context.Context, id string) (Estimate, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	Transition(ctx context.Context, req TransitionRequest) (Estimate, error)
}
