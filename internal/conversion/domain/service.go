// Package domain declares the document conversion operations.
package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	invoicedomain "github.com/smallbiznis/fieldbook/internal/invoice/domain"
)

// FromChangeOrderRequest converts an approved change order. A nil Percentage
// means the whole change order.
type FromChangeOrderRequest struct {
	ChangeOrderID string           `json:"-"`
	Percentage    *decimal.Decimal `json:"percentage,omitempty"`
	Title         *string          `json:"title,omitempty"`
	DueDate       *time.Time       `json:"due_date,omitempty"`
}

type FromServiceCallRequest struct {
	ServiceCallID string `json:"-"`
}

type Service interface {
	FromChangeOrder(ctx context.Context, req FromChangeOrderRequest) (invoicedomain.Invoice, error)
	FromServiceCall(ctx context.Context, req FromServiceCallRequest) (invoicedomain.Invoice, error)
}
