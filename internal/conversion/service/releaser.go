package service

import (
	"context"

	"github.com/shopspring/decimal"
	changeorderdomain "github.com/smallbiznis/fieldbook/internal/changeorder/domain"
	"github.com/smallbiznis/fieldbook/internal/clock"
	"github.com/smallbiznis/fieldbook/internal/document"
	invoicedomain "github.com/smallbiznis/fieldbook/internal/invoice/domain"
	servicecalldomain "github.com/smallbiznis/fieldbook/internal/servicecall/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ReleaserParams struct {
	fx.In

	Log          *zap.Logger
	Clock        clock.Clock
	ChangeOrders changeorderdomain.Repository
	ServiceCalls servicecalldomain.Repository
}

// Releaser hands a cancelled invoice's share back to its source so it can be
// invoiced again.
type Releaser struct {
	log          *zap.Logger
	clock        clock.Clock
	changeOrders changeorderdomain.Repository
	serviceCalls servicecalldomain.Repository
}

func NewReleaser(p ReleaserParams) invoicedomain.Releaser {
	return &Releaser{
		log:          p.Log.Named("conversion.releaser"),
		clock:        p.Clock,
		changeOrders: p.ChangeOrders,
		serviceCalls: p.ServiceCalls,
	}
}

func (r *Releaser) Release(ctx context.Context, tx *gorm.DB, invoice *invoicedomain.Invoice) error {
	if invoice == nil || !invoice.Provenance.IsSet() {
		return nil
	}

	switch *invoice.Provenance.SourceType {
	case document.TypeChangeOrder:
		return r.releaseChangeOrder(ctx, tx, invoice)
	case document.TypeServiceCall:
		return r.releaseServiceCall(ctx, tx, invoice)
	default:
		r.log.Warn("unknown provenance source type",
			zap.String("invoice_id", invoice.ID.String()),
			zap.String("source_type", string(*invoice.Provenance.SourceType)),
		)
		return nil
	}
}

func (r *Releaser) releaseChangeOrder(ctx context.Context, tx *gorm.DB, invoice *invoicedomain.Invoice) error {
	co, err := r.changeOrders.FindForUpdate(ctx, tx, *invoice.Provenance.SourceID)
	if err != nil {
		return err
	}
	if co == nil {
		r.log.Warn("change order of cancelled invoice not found", zap.String("invoice_id", invoice.ID.String()))
		return nil
	}

	share := hundred
	if invoice.Provenance.Percentage != nil {
		share = *invoice.Provenance.Percentage
	}
	converted := co.ConvertedPercentage.Sub(share)
	if converted.IsNegative() {
		converted = decimal.Zero
	}

	expected := co.Version
	co.ConvertedPercentage = converted
	co.Version++
	co.UpdatedAt = r.clock.Now()
	return r.changeOrders.Save(ctx, tx, co, expected)
}

func (r *Releaser) releaseServiceCall(ctx context.Context, tx *gorm.DB, invoice *invoicedomain.Invoice) error {
	call, err := r.serviceCalls.FindForUpdate(ctx, tx, *invoice.Provenance.SourceID)
	if err != nil {
		return err
	}
	if call == nil || call.ConvertedToInvoiceID == nil || *call.ConvertedToInvoiceID != invoice.ID {
		return nil
	}

	expected := call.Version
	call.ConvertedToInvoiceID = nil
	call.Version++
	call.UpdatedAt = r.clock.Now()
	return r.serviceCalls.Save(ctx, tx, call, expected)
}
