package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/fieldbook/internal/audit/domain"
	"github.com/smallbiznis/fieldbook/internal/clock"
	"github.com/smallbiznis/fieldbook/internal/document"
	"github.com/smallbiznis/fieldbook/internal/document/compose"
	"github.com/smallbiznis/fieldbook/internal/document/store"
	invoicedomain "github.com/smallbiznis/fieldbook/internal/invoice/domain"
	"github.com/smallbiznis/fieldbook/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     invoicedomain.Repository
	Composer *compose.Composer
	Releaser invoicedomain.Releaser   `optional:"true"`
	AuditSvc auditdomain.Service      `optional:"true"`
	Metrics  *metrics.DocumentMetrics `optional:"true"`
	Otel     *metrics.Metrics         `optional:"true"`
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID    *snowflake.Node
	clock    clock.Clock
	repo     invoicedomain.Repository
	composer *compose.Composer
	releaser invoicedomain.Releaser
	auditSvc auditdomain.Service
	metrics  *metrics.DocumentMetrics
	otel     *metrics.Metrics
}

func NewService(p ServiceParam) invoicedomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("invoice.service"),

		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		composer: p.Composer,
		releaser: p.Releaser,
		auditSvc: p.AuditSvc,
		metrics:  p.Metrics,
		otel:     p.Otel,
	}
}

func (s *Service) Create(ctx context.Context, req invoicedomain.CreateInvoiceRequest) (invoicedomain.Invoice, error) {
	if err := document.RequireText("title", req.Title); err != nil {
		return invoicedomain.Invoice{}, err
	}
	refs, err := document.ParseReferences(req.ProjectRef, req.CustomerRef)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	composed, err := s.composer.Compose(ctx, compose.Input{
		Items:       req.Items,
		TaxRate:     req.TaxRate,
		TotalAmount: req.TotalAmount,
		CustomerRef: refs.CustomerRef,
		Customer:    req.Customer,
	})
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	settings := s.composer.Settings()
	now := s.clock.Now()
	dueDate := req.DueDate
	if dueDate == nil {
		dueDate = DefaultDueDate(now, settings.PaymentTermsDays)
	}

	invoice := invoicedomain.Invoice{
		ID:          s.genID.Generate(),
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Status:      invoicedomain.Lifecycle.Initial,
		Items:       composed.Items,
		Totals:      composed.Totals,
		References:  refs,
		Customer:    composed.Customer,
		Currency:    settings.Currency,
		Notes:       strings.TrimSpace(req.Notes),
		DueDate:     dueDate,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = store.RetryNumbered(func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			seq, number, err := store.Number(ctx, tx, invoice.TableName(), settings.Prefixes.Invoice)
			if err != nil {
				return err
			}
			invoice.Sequence = seq
			invoice.Number = number
			return s.repo.Insert(ctx, tx, &invoice)
		})
	})
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	s.metrics.IncCreated(string(document.TypeInvoice))
	s.otel.RecordInvoiced(ctx, "direct", invoice.TotalAmount.InexactFloat64())
	s.emitAudit(ctx, "invoice.created", &invoice, nil)
	return invoice, nil
}

func (s *Service) Update(ctx context.Context, req invoicedomain.UpdateInvoiceRequest) (invoicedomain.Invoice, error) {
	id, err := document.ParseID(req.ID)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	if err := document.RequireText("title", req.Title); err != nil {
		return invoicedomain.Invoice{}, err
	}
	refs, err := document.ParseReferences(req.ProjectRef, req.CustomerRef)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	current, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	if current == nil {
		return invoicedomain.Invoice{}, document.ErrNotFound
	}
	if err := invoicedomain.Lifecycle.EnsureEditable(current.Status); err != nil {
		return invoicedomain.Invoice{}, err
	}

	taxRate := req.TaxRate
	if taxRate == nil {
		taxRate = &current.TaxRate
	}
	composed, err := s.composer.Compose(ctx, compose.Input{
		Items:       req.Items,
		TaxRate:     taxRate,
		TotalAmount: req.TotalAmount,
		CustomerRef: refs.CustomerRef,
		Customer:    req.Customer,
	})
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	var updated invoicedomain.Invoice
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.repo.FindForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if invoice == nil {
			return document.ErrNotFound
		}
		if err := invoicedomain.Lifecycle.EnsureEditable(invoice.Status); err != nil {
			return err
		}
		if req.Version != nil && *req.Version != invoice.Version {
			return document.ErrVersionConflict
		}

		invoice.Title = strings.TrimSpace(req.Title)
		invoice.Description = strings.TrimSpace(req.Description)
		invoice.Items = composed.Items
		invoice.Totals = composed.Totals
		invoice.References = refs
		if !composed.Customer.IsZero() {
			invoice.Customer = composed.Customer
		}
		invoice.Notes = strings.TrimSpace(req.Notes)
		if req.DueDate != nil {
			invoice.DueDate = req.DueDate
		}

		expected := invoice.Version
		invoice.Version++
		invoice.UpdatedAt = s.clock.Now()
		if err := s.repo.Save(ctx, tx, invoice, expected); err != nil {
			return err
		}
		updated = *invoice
		return nil
	})
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	s.emitAudit(ctx, "invoice.updated", &updated, nil)
	return updated, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (invoicedomain.Invoice, error) {
	invoiceID, err := document.ParseID(id)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, invoiceID)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	if item == nil {
		return invoicedomain.Invoice{}, document.ErrNotFound
	}
	return *item, nil
}

func (s *Service) List(ctx context.Context, req invoicedomain.ListInvoiceRequest) (invoicedomain.ListInvoiceResponse, error) {
	filter, err := s.listFilter(req)
	if err != nil {
		return invoicedomain.ListInvoiceResponse{}, err
	}
	if err := store.ValidatePageToken(req.Pagination); err != nil {
		return invoicedomain.ListInvoiceResponse{}, err
	}

	rows, err := s.repo.List(ctx, s.db, filter, req.Pagination)
	if err != nil {
		return invoicedomain.ListInvoiceResponse{}, err
	}

	invoices, pageInfo := store.Page(rows, req.Size(), func(i *invoicedomain.Invoice) (snowflake.ID, time.Time) {
		return i.ID, i.CreatedAt
	})
	return invoicedomain.ListInvoiceResponse{PageInfo: pageInfo, Invoices: invoices}, nil
}

func (s *Service) Transition(ctx context.Context, req invoicedomain.TransitionInvoiceRequest) (invoicedomain.Invoice, error) {
	id, err := document.ParseID(req.ID)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	target, err := invoicedomain.Lifecycle.Parse(req.Status)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	var (
		updated invoicedomain.Invoice
		from    invoicedomain.InvoiceStatus
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.repo.FindForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if invoice == nil {
			return document.ErrNotFound
		}
		from = invoice.Status
		if err := s.transition(ctx, tx, invoice, target, s.clock.Now()); err != nil {
			return err
		}
		updated = *invoice
		return nil
	})
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	s.metrics.IncTransition(string(document.TypeInvoice), string(from), string(target))
	s.emitAudit(ctx, "invoice.status_changed", &updated, map[string]any{
		"from": string(from),
		"to":   string(target),
	})
	return updated, nil
}

// transition applies a checked status change to a locked invoice. Cancelling
// a converted invoice hands its share back to the source.
func (s *Service) transition(ctx context.Context, tx *gorm.DB, invoice *invoicedomain.Invoice, target invoicedomain.InvoiceStatus, now time.Time) error {
	if err := invoicedomain.Lifecycle.Transition(invoice.Status, target); err != nil {
		return err
	}

	if target == invoicedomain.InvoiceStatusCancelled && invoice.Provenance.IsSet() {
		if s.releaser == nil {
			s.log.Warn("cancelled converted invoice without releaser", zap.String("invoice_id", invoice.ID.String()))
		} else if err := s.releaser.Release(ctx, tx, invoice); err != nil {
			return err
		}
	}

	invoice.Status = target
	invoice.Stamp(target, now)

	expected := invoice.Version
	invoice.Version++
	invoice.UpdatedAt = now
	return s.repo.Save(ctx, tx, invoice, expected)
}

func (s *Service) MarkOverdue(ctx context.Context, req invoicedomain.MarkOverdueRequest) (invoicedomain.MarkOverdueResponse, error) {
	asOf := s.clock.Now()
	if req.AsOf != nil {
		asOf = req.AsOf.UTC()
	}

	ids, err := s.repo.ListPastDue(ctx, s.db, asOf)
	if err != nil {
		return invoicedomain.MarkOverdueResponse{}, err
	}

	marked := make([]invoicedomain.Invoice, 0, len(ids))
	for _, id := range ids {
		var updated *invoicedomain.Invoice
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			invoice, err := s.repo.FindForUpdate(ctx, tx, id)
			if err != nil || invoice == nil {
				return err
			}
			// Paid or cancelled since the scan.
			if !invoice.PastDue(asOf) {
				return nil
			}
			if err := s.transition(ctx, tx, invoice, invoicedomain.InvoiceStatusOverdue, s.clock.Now()); err != nil {
				return err
			}
			updated = invoice
			return nil
		})
		if err != nil {
			return invoicedomain.MarkOverdueResponse{}, err
		}
		if updated == nil {
			continue
		}

		marked = append(marked, *updated)
		s.metrics.IncTransition(string(document.TypeInvoice), string(invoicedomain.InvoiceStatusSent), string(invoicedomain.InvoiceStatusOverdue))
		s.emitAudit(ctx, "invoice.marked_overdue", updated, map[string]any{
			"as_of": asOf.Format(time.RFC3339),
		})
	}

	s.metrics.AddOverdue(len(marked))
	s.log.Info("overdue sweep finished",
		zap.Time("as_of", asOf),
		zap.Int("scanned", len(ids)),
		zap.Int("marked", len(marked)),
	)
	return invoicedomain.MarkOverdueResponse{AsOf: asOf, Invoices: marked}, nil
}

func (s *Service) listFilter(req invoicedomain.ListInvoiceRequest) (store.ListFilter, error) {
	status := ""
	if strings.TrimSpace(req.Status) != "" {
		parsed, err := invoicedomain.Lifecycle.Parse(req.Status)
		if err != nil {
			return store.ListFilter{}, err
		}
		status = string(parsed)
	}
	return store.NewListFilter(status, req.CustomerRef, req.ProjectRef, req.CreatedFrom, req.CreatedTo)
}

func (s *Service) emitAudit(ctx context.Context, action string, invoice *invoicedomain.Invoice, extra map[string]any) {
	if s.auditSvc == nil || invoice == nil {
		return
	}

	metadata := map[string]any{
		"number":       invoice.Number,
		"status":       string(invoice.Status),
		"total_amount": invoice.TotalAmount.String(),
	}
	if invoice.Provenance.IsSet() {
		metadata["source_type"] = string(*invoice.Provenance.SourceType)
		metadata["source_id"] = invoice.Provenance.SourceID.String()
	}
	for key, value := range extra {
		metadata[key] = value
	}

	targetID := invoice.ID.String()
	if err := s.auditSvc.AuditLog(ctx, "", nil, action, string(document.TypeInvoice), &targetID, metadata); err != nil {
		s.log.Warn("failed to record audit log", zap.String("action", action), zap.Error(err))
	}
}

// DefaultDueDate is now plus the payment terms, or nil when terms are not positive.
func DefaultDueDate(now time.Time, termsDays int) *time.Time {
	if termsDays <= 0 {
		return nil
	}
	due := now.AddDate(0, 0, termsDays)
	return &due
}
