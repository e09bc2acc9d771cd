package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/fieldbook/internal/document"
	"github.com/smallbiznis/fieldbook/internal/document/lineitem"
	"github.com/smallbiznis/fieldbook/pkg/db/pagination"
)

// Content is the editable part of a service call. On create a nil hourly
// rate falls back to the configured default and a nil tax rate means no tax.
// On update nil rates keep the stored values. Items, when present, replace
// the cost fields as the billable lines.
type Content struct {
	Title          string                     `json:"title"`
	Description    string                     `json:"description"`
	ProjectRef     *string                    `json:"project_ref"`
	CustomerRef    *string                    `json:"customer_ref"`
	Customer       *document.CustomerSnapshot `json:"customer"`
	Items          []lineitem.Draft           `json:"items"`
	Technician     string                     `json:"technician"`
	ScheduledAt    *time.Time                 `json:"scheduled_at"`
	EstimatedHours decimal.Decimal            `json:"estimated_hours"`
	ActualHours    *decimal.Decimal           `json:"actual_hours"`
	HourlyRate     *decimal.Decimal           `json:"hourly_rate"`
	MaterialsCost  decimal.Decimal            `json:"materials_cost"`
	TotalCost      *decimal.Decimal           `json:"total_cost"`
	TaxRate        *decimal.Decimal           `json:"tax_rate"`
	Notes          string                     `json:"notes"`
}

type CreateRequest struct {
	Content
}

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
	ServiceCalls []ServiceCall `json:"service_calls"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (ServiceCall, error)
	Update(ctx context.Context, req UpdateRequest) (ServiceCall, error)
	Get(ctx context.Context, id string) (ServiceCall, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	Transition(ctx context.Context, req TransitionRequest) (ServiceCall, error)
}
