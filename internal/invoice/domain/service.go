package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/fieldbook/internal/document"
	"github.com/smallbiznis/fieldbook/internal/document/lineitem"
	"github.com/smallbiznis/fieldbook/pkg/db/pagination"
)

// Content is the editable part of an invoice.
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
	DueDate     *time.Time                 `json:"due_date"`
}

type CreateInvoiceRequest struct {
	Content
}

type UpdateInvoiceRequest struct {
	ID      string `json:"-"`
	Version *int64 `json:"version"`
	Content
}

type TransitionInvoiceRequest struct {
	ID     string `json:"-"`
	Status string `json:"status"`
}

type ListInvoiceRequest struct {
	pagination.Pagination
	Status      string
	CustomerRef string
	ProjectRef  string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

type ListInvoiceResponse struct {
	pagination.PageInfo
	Invoices []Invoice `json:"invoices"`
}

// MarkOverdueRequest moves sent invoices due before AsOf to overdue. AsOf
// defaults to the current time.
type MarkOverdueRequest struct {
	AsOf *time.Time `json:"as_of"`
}

type MarkOverdueResponse struct {
	AsOf     time.Time `json:"as_of"`
	Invoices []Invoice `json:"invoices"`
}

type Service interface {
	Create(ctx context.Context, req CreateInvoiceRequest) (Invoice, error)
	Update(ctx context.Context, req UpdateInvoiceRequest) (Invoice, error)
	GetByID(ctx context.Context, id string) (Invoice, error)
	List(ctx context.Context, req ListInvoiceRequest) (ListInvoiceResponse, error)
	Transition(ctx context.Context, req TransitionInvoiceRequest) (Invoice, error)
	MarkOverdue(ctx context.Context, req MarkOverdueRequest) (MarkOverdueResponse, error)
	// Export renders the invoices matching req as an xlsx workbook.
	Export(ctx context.Context, req ListInvoiceRequest) ([]byte, error)
}
