package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/fieldbook/internal/document"
	"github.com/smallbiznis/fieldbook/internal/document/lineitem"
	"github.com/smallbiznis/fieldbook/pkg/db/pagination"
)

// Content is the editable part of a change order.
type Content struct {
	Title       string                     `json:"title"`
	Description string                     `json:"description"`
	Reason      string                     `json:"reason"`
	Items       []lineitem.Draft           `json:"items"`
	TaxRate     *decimal.Decimal           `json:"tax_rate"`
	TotalAmount *decimal.Decimal           `json:"total_amount"`
	ProjectRef  *string                    `json:"project_ref"`
	CustomerRef *string                    `json:"customer_ref"`
	Customer    *document.CustomerSnapshot `json:"customer"`
	Notes       string                     `json:"notes"`
}

type CreateRequest struct {
	Content
}

// UpdateRequest replaces the content of a draft change order. Version, when set,
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
	ChangeOrders []ChangeOrder `json:"change_orders"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (ChangeOrder, error)
	Update(ctx context.Context, req UpdateRequest) (ChangeOrder, error)
	Get(ctx context.Context, id string) (ChangeOrder, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	Transition(ctx context.Context, req TransitionRequest) (ChangeOrder, error)
}
