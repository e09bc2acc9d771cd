package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	auditdomain "github.com/smallbiznis/fieldbook/internal/audit/domain"
	changeorderdomain "github.com/smallbiznis/fieldbook/internal/changeorder/domain"
	"github.com/smallbiznis/fieldbook/internal/clock"
	"github.com/smallbiznis/fieldbook/internal/config"
	deliverydomain "github.com/smallbiznis/fieldbook/internal/delivery/domain"
	"github.com/smallbiznis/fieldbook/internal/document"
	"github.com/smallbiznis/fieldbook/internal/document/calculator"
	estimatedomain "github.com/smallbiznis/fieldbook/internal/estimate/domain"
	invoicedomain "github.com/smallbiznis/fieldbook/internal/invoice/domain"
	"github.com/smallbiznis/fieldbook/internal/observability/metrics"
	"github.com/smallbiznis/fieldbook/internal/providers/email"
	"github.com/smallbiznis/fieldbook/internal/providers/pdf"
	"github.com/smallbiznis/fieldbook/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	dateLayout   = "2006-01-02"
	pdfType      = "application/pdf"
	templateName = "document_delivery"
)

type Params struct {
	fx.In

	Log          *zap.Logger
	Clock        clock.Clock
	Settings     *config.DocumentSettingsHolder `optional:"true"`
	Estimates    estimatedomain.Service
	ChangeOrders changeorderdomain.Service
	Invoices     invoicedomain.Service
	PDF          pdf.Provider
	Email        email.Provider
	Limiter      *ratelimit.DeliveryLimiter `optional:"true"`
	AuditSvc     auditdomain.Service        `optional:"true"`
	Metrics      *metrics.DocumentMetrics   `optional:"true"`
	Otel         *metrics.Metrics           `optional:"true"`
}

type Service struct {
	log *zap.Logger

	clock    clock.Clock
	settings *config.DocumentSettingsHolder
	sources  map[document.Type]source
	pdf      pdf.Provider
	email    email.Provider
	limiter  *ratelimit.DeliveryLimiter
	validate *validator.Validate
	auditSvc auditdomain.Service
	metrics  *metrics.DocumentMetrics
	otel     *metrics.Metrics
}

func New(p Params) deliverydomain.Service {
	return &Service{
		log: p.Log.Named("delivery.service"),

		clock:    p.Clock,
		settings: p.Settings,
		sources: map[document.Type]source{
			document.TypeEstimate:    estimateSource{svc: p.Estimates},
			document.TypeChangeOrder: changeOrderSource{svc: p.ChangeOrders},
			document.TypeInvoice:     invoiceSource{svc: p.Invoices},
		},
		pdf:      p.PDF,
		email:    p.Email,
		limiter:  p.Limiter,
		validate: validator.New(),
		auditSvc: p.AuditSvc,
		metrics:  p.Metrics,
		otel:     p.Otel,
	}
}

func (s *Service) RenderPDF(ctx context.Context, req deliverydomain.RenderRequest) (deliverydomain.RenderResponse, error) {
	src, err := s.source(req.DocumentType)
	if err != nil {
		return deliverydomain.RenderResponse{}, err
	}
	doc, err := src.load(ctx, req.ID)
	if err != nil {
		return deliverydomain.RenderResponse{}, err
	}

	out, err := s.render(ctx, doc)
	if err != nil {
		return deliverydomain.RenderResponse{}, err
	}
	s.otel.RecordDelivery(ctx, string(doc.Type), "pdf", "success")
	return out, nil
}

func (s *Service) SendEmail(ctx context.Context, req deliverydomain.SendEmailRequest) (deliverydomain.SendEmailResponse, error) {
	src, err := s.source(req.DocumentType)
	if err != nil {
		return deliverydomain.SendEmailResponse{}, err
	}
	doc, err := src.load(ctx, req.ID)
	if err != nil {
		return deliverydomain.SendEmailResponse{}, err
	}
	if doc.Cancelled {
		return deliverydomain.SendEmailResponse{}, document.NewValidationError("status", "document_not_sendable", fmt.Sprintf("%s %s is cancelled", doc.Type, doc.Number))
	}

	recipient := strings.TrimSpace(doc.Customer.Email)
	if req.To != nil {
		recipient = strings.TrimSpace(*req.To)
	}
	if err := s.validate.Var(recipient, "required,email"); err != nil {
		return deliverydomain.SendEmailResponse{}, document.NewValidationError("to", "invalid_recipient", "a valid recipient email is required")
	}

	limit, err := s.limiter.AllowEmail(ctx, string(doc.Type), doc.ID)
	if err != nil {
		return deliverydomain.SendEmailResponse{}, err
	}
	if !limit.Allowed {
		return deliverydomain.SendEmailResponse{}, &deliverydomain.RateLimitedError{RetryAfter: limit.RetryAfter}
	}

	rendered, err := s.render(ctx, doc)
	if err != nil {
		return deliverydomain.SendEmailResponse{}, err
	}

	company := s.documentSettings().Company
	err = s.email.SendTemplate(ctx, []string{recipient}, templateName, map[string]any{
		"subject":        fmt.Sprintf("%s %s from %s", heading(doc.Type), doc.Number, company.Name),
		"customer_name":  doc.Customer.Name,
		"document_label": strings.ToLower(heading(doc.Type)),
		"number":         doc.Number,
		"title":          doc.Title,
		"currency":       s.currency(doc),
		"total":          doc.Totals.TotalAmount.StringFixed(2),
		"due_date":       formatDate(doc.DueDate),
		"message":        strings.TrimSpace(req.Message),
		"company_name":   company.Name,
	}, email.Attachment{Filename: rendered.Filename, ContentType: rendered.ContentType, Data: rendered.Data})
	if err != nil {
		s.metrics.IncDeliveryFailure(string(doc.Type), "send")
		s.otel.RecordDelivery(ctx, string(doc.Type), "email", "failure")
		s.log.Warn("document email failed",
			zap.String("document_type", string(doc.Type)),
			zap.String("number", doc.Number),
			zap.Error(err),
		)
		return deliverydomain.SendEmailResponse{}, &deliverydomain.DeliveryError{Stage: "send", Err: err}
	}
	s.otel.RecordDelivery(ctx, string(doc.Type), "email", "success")

	if doc.Draft {
		sent, err := src.markSent(ctx, doc.ID)
		if err != nil {
			// The email is out; a concurrent transition already moved the document.
			s.log.Warn("document emailed but not marked sent",
				zap.String("document_type", string(doc.Type)),
				zap.String("number", doc.Number),
				zap.Error(err),
			)
		} else {
			doc = sent
		}
	}

	sentAt := s.clock.Now()
	s.emitAudit(ctx, doc, recipient)
	return deliverydomain.SendEmailResponse{
		DocumentType: string(doc.Type),
		ID:           doc.ID,
		Number:       doc.Number,
		Status:       doc.Status,
		Recipient:    recipient,
		SentAt:       sentAt,
	}, nil
}

func (s *Service) source(raw string) (source, error) {
	docType, err := document.ParseType(raw)
	if err != nil {
		return nil, err
	}
	src, ok := s.sources[docType]
	if !ok {
		return nil, document.NewValidationError("document_type", "unsupported_document_type", fmt.Sprintf("%s cannot be delivered", docType))
	}
	return src, nil
}

func (s *Service) render(ctx context.Context, doc view) (deliverydomain.RenderResponse, error) {
	data, err := s.pdf.Render(ctx, s.documentData(doc))
	if err != nil {
		s.metrics.IncDeliveryFailure(string(doc.Type), "render")
		s.otel.RecordDelivery(ctx, string(doc.Type), "pdf", "failure")
		return deliverydomain.RenderResponse{}, &deliverydomain.DeliveryError{Stage: "render", Err: err}
	}
	return deliverydomain.RenderResponse{
		Filename:    doc.Number + ".pdf",
		ContentType: pdfType,
		Data:        data,
	}, nil
}

func (s *Service) documentData(doc view) pdf.DocumentData {
	settings := s.documentSettings()
	rows := make([]pdf.Row, 0, len(doc.Items))
	for _, item := range doc.Items {
		rows = append(rows, pdf.Row{
			Description: item.Description,
			Quantity:    item.Quantity.String(),
			Unit:        item.Unit,
			UnitPrice:   item.UnitPrice.StringFixed(2),
			Markup:      item.MarkupPercentage.String() + "%",
			Amount:      calculator.Round2(item.LineTotal()).StringFixed(2),
		})
	}

	return pdf.DocumentData{
		Heading:   heading(doc.Type),
		Number:    doc.Number,
		Title:     doc.Title,
		Status:    strings.ToUpper(doc.Status),
		IssueDate: doc.IssuedAt.Format(dateLayout),
		DueDate:   formatDate(doc.DueDate),
		Currency:  s.currency(doc),
		Company: pdf.Party{
			Name:    settings.Company.Name,
			Address: settings.Company.Address,
			Phone:   settings.Company.Phone,
			Email:   settings.Company.Email,
		},
		BillTo: pdf.Party{
			Name:    doc.Customer.Name,
			Address: doc.Customer.Address,
			Phone:   doc.Customer.Phone,
			Email:   doc.Customer.Email,
		},
		Items:       rows,
		ManualTotal: doc.Totals.ManualTotal,
		Subtotal:    doc.Totals.Subtotal.StringFixed(2),
		TaxRate:     doc.Totals.TaxRate.String(),
		TaxAmount:   doc.Totals.TaxAmount.StringFixed(2),
		Total:       doc.Totals.TotalAmount.StringFixed(2),
		Notes:       doc.Notes,
	}
}

func (s *Service) documentSettings() config.DocumentSettings {
	if s.settings == nil {
		return config.DefaultDocumentSettings()
	}
	return s.settings.Get()
}

func (s *Service) currency(doc view) string {
	if doc.Currency != "" {
		return doc.Currency
	}
	return s.documentSettings().Currency
}

func (s *Service) emitAudit(ctx context.Context, doc view, recipient string) {
	if s.auditSvc == nil {
		return
	}
	targetID := doc.ID
	action := string(doc.Type) + ".emailed"
	metadata := map[string]any{
		"number": doc.Number,
		"status": doc.Status,
		"to":     recipient,
	}
	if err := s.auditSvc.AuditLog(ctx, "", nil, action, string(doc.Type), &targetID, metadata); err != nil {
		s.log.Warn("failed to record audit log", zap.String("action", action), zap.Error(err))
	}
}

func heading(t document.Type) string {
	switch t {
	case document.TypeEstimate:
		return "Estimate"
	case document.TypeChangeOrder:
		return "Change Order"
	case document.TypeInvoice:
		return "Invoice"
	default:
		return string(t)
	}
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}
