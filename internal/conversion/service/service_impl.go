package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/fieldbook/internal/audit/domain"
	changeorderdomain "github.com/smallbiznis/fieldbook/internal/changeorder/domain"
	"github.com/smallbiznis/fieldbook/internal/clock"
	conversiondomain "github.com/smallbiznis/fieldbook/internal/conversion/domain"
	"github.com/smallbiznis/fieldbook/internal/document"
	"github.com/smallbiznis/fieldbook/internal/document/calculator"
	"github.com/smallbiznis/fieldbook/internal/document/compose"
	"github.com/smallbiznis/fieldbook/internal/document/lineitem"
	"github.com/smallbiznis/fieldbook/internal/document/store"
	invoicedomain "github.com/smallbiznis/fieldbook/internal/invoice/domain"
	invoiceservice "github.com/smallbiznis/fieldbook/internal/invoice/service"
	"github.com/smallbiznis/fieldbook/internal/lock"
	"github.com/smallbiznis/fieldbook/internal/observability/metrics"
	servicecalldomain "github.com/smallbiznis/fieldbook/internal/servicecall/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const percentagePlaces = 4

var hundred = decimal.NewFromInt(100)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Composer     *compose.Composer
	Invoices     invoicedomain.Repository
	ChangeOrders changeorderdomain.Repository
	ServiceCalls servicecalldomain.Repository
	Locker       lock.Locker              `optional:"true"`
	AuditSvc     auditdomain.Service      `optional:"true"`
	Metrics      *metrics.DocumentMetrics `optional:"true"`
	Otel         *metrics.Metrics         `optional:"true"`
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID        *snowflake.Node
	clock        clock.Clock
	composer     *compose.Composer
	invoices     invoicedomain.Repository
	changeOrders changeorderdomain.Repository
	serviceCalls servicecalldomain.Repository
	locker       lock.Locker
	auditSvc     auditdomain.Service
	metrics      *metrics.DocumentMetrics
	otel         *metrics.Metrics
}

func New(p Params) conversiondomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("conversion.service"),

		genID:        p.GenID,
		clock:        p.Clock,
		composer:     p.Composer,
		invoices:     p.Invoices,
		changeOrders: p.ChangeOrders,
		serviceCalls: p.ServiceCalls,
		locker:       p.Locker,
		auditSvc:     p.AuditSvc,
		metrics:      p.Metrics,
		otel:         p.Otel,
	}
}

func (s *Service) FromChangeOrder(ctx context.Context, req conversiondomain.FromChangeOrderRequest) (invoicedomain.Invoice, error) {
	invoice, source, err := s.fromChangeOrder(ctx, req)
	if err != nil {
		s.metrics.IncConversionError(string(document.TypeChangeOrder), failureReason(err))
		return invoicedomain.Invoice{}, err
	}

	s.recordConversion(ctx, "invoice.converted_from_change_order", &invoice, map[string]any{
		"source_number":        source.Number,
		"percentage":           invoice.Provenance.Percentage.String(),
		"converted_percentage": source.ConvertedPercentage.String(),
	})
	return invoice, nil
}

func (s *Service) fromChangeOrder(ctx context.Context, req conversiondomain.FromChangeOrderRequest) (invoicedomain.Invoice, changeorderdomain.ChangeOrder, error) {
	id, err := document.ParseID(req.ChangeOrderID)
	if err != nil {
		return invoicedomain.Invoice{}, changeorderdomain.ChangeOrder{}, err
	}
	percentage, err := ParsePercentage(req.Percentage)
	if err != nil {
		return invoicedomain.Invoice{}, changeorderdomain.ChangeOrder{}, err
	}
	if req.Title != nil {
		if err := document.RequireText("title", *req.Title); err != nil {
			return invoicedomain.Invoice{}, changeorderdomain.ChangeOrder{}, err
		}
	}

	var (
		invoice invoicedomain.Invoice
		source  changeorderdomain.ChangeOrder
	)
	err = lock.With(ctx, s.locker, lock.Key(string(document.TypeChangeOrder), id.String()), func() error {
		return store.RetryNumbered(func() error {
			return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
				co, err := s.changeOrders.FindForUpdate(ctx, tx, id)
				if err != nil {
					return err
				}
				if co == nil {
					return document.ErrNotFound
				}
				if co.Status != changeorderdomain.StatusApproved {
					return &document.ConversionNotAllowedError{
						SourceType: document.TypeChangeOrder,
						Status:     string(co.Status),
						Required:   string(changeorderdomain.StatusApproved),
					}
				}
				remaining := co.RemainingPercentage()
				if percentage.GreaterThan(remaining) {
					return &document.AlreadyConvertedError{
						SourceType: document.TypeChangeOrder,
						SourceID:   co.ID.String(),
						Remaining:  remaining.String(),
					}
				}

				billed, err := s.billedTotals(ctx, tx, co)
				if err != nil {
					return err
				}
				items, totals, err := ChangeOrderShare(co, percentage, billed)
				if err != nil {
					return err
				}

				now := s.clock.Now()
				title := co.Title
				if req.Title != nil {
					title = strings.TrimSpace(*req.Title)
				}
				sourceType := document.TypeChangeOrder
				share := percentage
				invoice = s.newInvoice(now, title, items, totals, co.References, co.Customer, req.DueDate)
				invoice.Description = co.Description
				invoice.Provenance = document.Provenance{SourceID: &co.ID, SourceType: &sourceType, Percentage: &share}

				if err := s.insertInvoice(ctx, tx, &invoice); err != nil {
					return err
				}

				expected := co.Version
				co.ConvertedPercentage = co.ConvertedPercentage.Add(percentage)
				co.Version++
				co.UpdatedAt = now
				if err := s.changeOrders.Save(ctx, tx, co, expected); err != nil {
					return err
				}
				source = *co
				return nil
			})
		})
	})
	return invoice, source, err
}

func (s *Service) FromServiceCall(ctx context.Context, req conversiondomain.FromServiceCallRequest) (invoicedomain.Invoice, error) {
	invoice, source, err := s.fromServiceCall(ctx, req)
	if err != nil {
		s.metrics.IncConversionError(string(document.TypeServiceCall), failureReason(err))
		return invoicedomain.Invoice{}, err
	}

	s.recordConversion(ctx, "invoice.converted_from_service_call", &invoice, map[string]any{
		"source_number": source.Number,
	})
	return invoice, nil
}

func (s *Service) fromServiceCall(ctx context.Context, req conversiondomain.FromServiceCallRequest) (invoicedomain.Invoice, servicecalldomain.ServiceCall, error) {
	id, err := document.ParseID(req.ServiceCallID)
	if err != nil {
		return invoicedomain.Invoice{}, servicecalldomain.ServiceCall{}, err
	}

	var (
		invoice invoicedomain.Invoice
		source  servicecalldomain.ServiceCall
	)
	err = lock.With(ctx, s.locker, lock.Key(string(document.TypeServiceCall), id.String()), func() error {
		return store.RetryNumbered(func() error {
			return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
				call, err := s.serviceCalls.FindForUpdate(ctx, tx, id)
				if err != nil {
					return err
				}
				if call == nil {
					return document.ErrNotFound
				}
				if call.Status != servicecalldomain.StatusCompleted {
					return &document.ConversionNotAllowedError{
						SourceType: document.TypeServiceCall,
						Status:     string(call.Status),
						Required:   string(servicecalldomain.StatusCompleted),
					}
				}
				if call.Converted() {
					return &document.AlreadyConvertedError{
						SourceType: document.TypeServiceCall,
						SourceID:   call.ID.String(),
						InvoiceID:  call.ConvertedToInvoiceID.String(),
					}
				}

				items := call.BillableItems()
				totals, err := calculator.Calculate(items, call.TaxRate)
				if err != nil {
					return err
				}

				now := s.clock.Now()
				sourceType := document.TypeServiceCall
				invoice = s.newInvoice(now, call.Title, items, totals, call.References, call.Customer, nil)
				invoice.Description = call.Description
				invoice.Provenance = document.Provenance{SourceID: &call.ID, SourceType: &sourceType}

				if err := s.insertInvoice(ctx, tx, &invoice); err != nil {
					return err
				}

				expected := call.Version
				invoiceID := invoice.ID
				call.ConvertedToInvoiceID = &invoiceID
				call.Version++
				call.UpdatedAt = now
				if err := s.serviceCalls.Save(ctx, tx, call, expected); err != nil {
					return err
				}
				source = *call
				return nil
			})
		})
	})
	return invoice, source, err
}

func (s *Service) newInvoice(now time.Time, title string, items []lineitem.LineItem, totals document.Totals, refs document.References, customer document.CustomerSnapshot, dueDate *time.Time) invoicedomain.Invoice {
	settings := s.composer.Settings()
	if dueDate == nil {
		dueDate = invoiceservice.DefaultDueDate(now, settings.PaymentTermsDays)
	}
	return invoicedomain.Invoice{
		ID:         s.genID.Generate(),
		Title:      title,
		Status:     invoicedomain.Lifecycle.Initial,
		Items:      items,
		Totals:     totals,
		References: refs,
		Customer:   customer,
		Currency:   settings.Currency,
		DueDate:    dueDate,
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func (s *Service) insertInvoice(ctx context.Context, tx *gorm.DB, invoice *invoicedomain.Invoice) error {
	seq, number, err := store.Number(ctx, tx, invoice.TableName(), s.composer.Settings().Prefixes.Invoice)
	if err != nil {
		return err
	}
	invoice.Sequence = seq
	invoice.Number = number
	return s.invoices.Insert(ctx, tx, invoice)
}

func (s *Service) recordConversion(ctx context.Context, action string, invoice *invoicedomain.Invoice, extra map[string]any) {
	sourceType := string(*invoice.Provenance.SourceType)
	s.metrics.IncConversion(sourceType)
	s.metrics.IncCreated(string(document.TypeInvoice))
	s.otel.RecordInvoiced(ctx, sourceType, invoice.TotalAmount.InexactFloat64())

	s.log.Info("document converted",
		zap.String("source_type", sourceType),
		zap.String("source_id", invoice.Provenance.SourceID.String()),
		zap.String("invoice_number", invoice.Number),
		zap.String("total_amount", invoice.TotalAmount.String()),
	)

	if s.auditSvc == nil {
		return
	}
	metadata := map[string]any{
		"number":       invoice.Number,
		"total_amount": invoice.TotalAmount.String(),
		"source_type":  sourceType,
		"source_id":    invoice.Provenance.SourceID.String(),
	}
	for key, value := range extra {
		metadata[key] = value
	}
	targetID := invoice.ID.String()
	if err := s.auditSvc.AuditLog(ctx, "", nil, action, string(document.TypeInvoice), &targetID, metadata); err != nil {
		s.log.Warn("failed to record audit log", zap.String("action", action), zap.Error(err))
	}
}

// billedTotals sums the live invoices already converted from co.
func (s *Service) billedTotals(ctx context.Context, tx *gorm.DB, co *changeorderdomain.ChangeOrder) (document.Totals, error) {
	var billed document.Totals
	if co.ConvertedPercentage.IsZero() {
		return billed, nil
	}
	invoices, err := s.invoices.FindBySource(ctx, tx, document.TypeChangeOrder, co.ID)
	if err != nil {
		return billed, err
	}
	for _, inv := range invoices {
		billed.Subtotal = billed.Subtotal.Add(inv.Subtotal)
		billed.TaxAmount = billed.TaxAmount.Add(inv.TaxAmount)
		billed.TotalAmount = billed.TotalAmount.Add(inv.TotalAmount)
	}
	return billed, nil
}

// ParsePercentage defaults to 100 and requires 0 < p <= 100 with at most
// percentagePlaces decimals, the precision converted_percentage is stored at.
func ParsePercentage(p *decimal.Decimal) (decimal.Decimal, error) {
	if p == nil {
		return hundred, nil
	}
	if !p.IsPositive() || p.GreaterThan(hundred) {
		return decimal.Zero, document.NewValidationError("percentage", "invalid_percentage", "percentage must be greater than 0 and at most 100")
	}
	if !p.Equal(p.Round(percentagePlaces)) {
		return decimal.Zero, document.NewValidationError("percentage", "invalid_percentage", "percentage allows at most 4 decimal places")
	}
	return *p, nil
}

// ChangeOrderShare builds the invoice content for percentage of co. The first
// full conversion copies the items. Any other share becomes one custom line
// priced at the rounded share of the subtotal, taxed at the source rate. The
// share that closes co bills what billed leaves over, so the shares of a fully
// converted change order sum to its totals.
func ChangeOrderShare(co *changeorderdomain.ChangeOrder, percentage decimal.Decimal, billed document.Totals) ([]lineitem.LineItem, document.Totals, error) {
	full := percentage.Equal(hundred) && co.ConvertedPercentage.IsZero()
	closing := !full && percentage.Equal(co.RemainingPercentage())

	if co.ManualTotal {
		total := calculator.Portion(co.TotalAmount, percentage)
		if closing {
			total = unbilled(co.TotalAmount, billed.TotalAmount)
		}
		totals, err := calculator.Manual(total, co.TaxRate)
		return nil, totals, err
	}
	if full {
		items := slices.Clone([]lineitem.LineItem(co.Items))
		totals, err := calculator.Calculate(items, co.TaxRate)
		return items, totals, err
	}

	description := fmt.Sprintf("%s - %s%% of %s", co.Number, percentage.String(), co.Title)
	if closing {
		subtotal := unbilled(co.Subtotal, billed.Subtotal)
		tax := unbilled(co.TaxAmount, billed.TaxAmount)
		items := []lineitem.LineItem{
			lineitem.NewCustom(description, "each", decimal.NewFromInt(1), subtotal),
		}
		return items, document.Totals{
			TaxRate:     co.TaxRate,
			Subtotal:    subtotal,
			TaxAmount:   tax,
			TotalAmount: subtotal.Add(tax),
		}, nil
	}

	items := []lineitem.LineItem{
		lineitem.NewCustom(description, "each", decimal.NewFromInt(1), calculator.Portion(co.Subtotal, percentage)),
	}
	totals, err := calculator.Calculate(items, co.TaxRate)
	return items, totals, err
}

func unbilled(total, billed decimal.Decimal) decimal.Decimal {
	return decimal.Max(total.Sub(billed), decimal.Zero)
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, document.ErrAlreadyConverted):
		return document.ErrAlreadyConverted.Error()
	case errors.Is(err, document.ErrConversionNotAllowed):
		return document.ErrConversionNotAllowed.Error()
	case errors.Is(err, document.ErrValidation):
		return document.ErrValidation.Error()
	case errors.Is(err, document.ErrNotFound):
		return document.ErrNotFound.Error()
	case errors.Is(err, document.ErrInvalidID):
		return document.ErrInvalidID.Error()
	case errors.Is(err, document.ErrVersionConflict):
		return document.ErrVersionConflict.Error()
	case errors.Is(err, lock.ErrNotObtained):
		return lock.ErrNotObtained.Error()
	default:
		return metrics.ErrorReason(err)
	}
}
