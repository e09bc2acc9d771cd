package service

import (
	"context"
	"time"

	changeorderdomain "github.com/smallbiznis/fieldbook/internal/changeorder/domain"
	"github.com/smallbiznis/fieldbook/internal/document"
	"github.com/smallbiznis/fieldbook/internal/document/lineitem"
	estimatedomain "github.com/smallbiznis/fieldbook/internal/estimate/domain"
	invoicedomain "github.com/smallbiznis/fieldbook/internal/invoice/domain"
)

// view is the part of a document that delivery needs.
type view struct {
	Type      document.Type
	ID        string
	Number    string
	Title     string
	Status    string
	Items     []lineitem.LineItem
	Totals    document.Totals
	Customer  document.CustomerSnapshot
	Notes     string
	IssuedAt  time.Time
	DueDate   *time.Time
	Currency  string
	Draft     bool
	Cancelled bool
}

type source interface {
	load(ctx context.Context, id string) (view, error)
	// markSent moves a draft to sent through the owning service.
	markSent(ctx context.Context, id string) (view, error)
}

type estimateSource struct{ svc estimatedomain.Service }

func (s estimateSource) load(ctx context.Context, id string) (view, error) {
	e, err := s.svc.Get(ctx, id)
	if err != nil {
		return view{}, err
	}
	return estimateView(e), nil
}

func (s estimateSource) markSent(ctx context.Context, id string) (view, error) {
	e, err := s.svc.Transition(ctx, estimatedomain.TransitionRequest{ID: id, Status: string(estimatedomain.StatusSent)})
	if err != nil {
		return view{}, err
	}
	return estimateView(e), nil
}

func estimateView(e estimatedomain.Estimate) view {
	return view{
		Type:     document.TypeEstimate,
		ID:       e.ID.String(),
		Number:   e.Number,
		Title:    e.Title,
		Status:   string(e.Status),
		Items:    e.Items,
		Totals:   e.Totals,
		Customer: e.Customer,
		Notes:    e.Notes,
		IssuedAt: e.CreatedAt,
		DueDate:  e.ValidUntil,
		Draft:    e.Status == estimatedomain.StatusDraft,
	}
}

type changeOrderSource struct{ svc changeorderdomain.Service }

func (s changeOrderSource) load(ctx context.Context, id string) (view, error) {
	co, err := s.svc.Get(ctx, id)
	if err != nil {
		return view{}, err
	}
	return changeOrderView(co), nil
}

func (s changeOrderSource) markSent(ctx context.Context, id string) (view, error) {
	co, err := s.svc.Transition(ctx, changeorderdomain.TransitionRequest{ID: id, Status: string(changeorderdomain.StatusSent)})
	if err != nil {
		return view{}, err
	}
	return changeOrderView(co), nil
}

func changeOrderView(co changeorderdomain.ChangeOrder) view {
	notes := co.Notes
	if co.Reason != "" {
		notes = "Reason: " + co.Reason + "\n" + notes
	}
	return view{
		Type:      document.TypeChangeOrder,
		ID:        co.ID.String(),
		Number:    co.Number,
		Title:     co.Title,
		Status:    string(co.Status),
		Items:     co.Items,
		Totals:    co.Totals,
		Customer:  co.Customer,
		Notes:     notes,
		IssuedAt:  co.CreatedAt,
		Draft:     co.Status == changeorderdomain.StatusDraft,
		Cancelled: co.Status == changeorderdomain.StatusCancelled,
	}
}

type invoiceSource struct{ svc invoicedomain.Service }

func (s invoiceSource) load(ctx context.Context, id string) (view, error) {
	inv, err := s.svc.GetByID(ctx, id)
	if err != nil {
		return view{}, err
	}
	return invoiceView(inv), nil
}

func (s invoiceSource) markSent(ctx context.Context, id string) (view, error) {
	inv, err := s.svc.Transition(ctx, invoicedomain.TransitionInvoiceRequest{ID: id, Status: string(invoicedomain.InvoiceStatusSent)})
	if err != nil {
		return view{}, err
	}
	return invoiceView(inv), nil
}

func invoiceView(inv invoicedomain.Invoice) view {
	return view{
		Type:      document.TypeInvoice,
		ID:        inv.ID.String(),
		Number:    inv.Number,
		Title:     inv.Title,
		Status:    string(inv.Status),
		Items:     inv.Items,
		Totals:    inv.Totals,
		Customer:  inv.Customer,
		Notes:     inv.Notes,
		IssuedAt:  inv.CreatedAt,
		DueDate:   inv.DueDate,
		Currency:  inv.Currency,
		Draft:     inv.Status == invoicedomain.InvoiceStatusDraft,
		Cancelled: inv.Status == invoicedomain.InvoiceStatusCancelled,
	}
}
