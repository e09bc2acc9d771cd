package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/fieldbook/internal/audit/domain"
	"github.com/smallbiznis/fieldbook/internal/clock"
	"github.com/smallbiznis/fieldbook/internal/document"
	"github.com/smallbiznis/fieldbook/internal/document/calculator"
	"github.com/smallbiznis/fieldbook/internal/document/compose"
	"github.com/smallbiznis/fieldbook/internal/document/store"
	"github.com/smallbiznis/fieldbook/internal/observability/metrics"
	"github.com/smallbiznis/fieldbook/internal/servicecall/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	Composer *compose.Composer
	AuditSvc auditdomain.Service      `optional:"true"`
	Metrics  *metrics.DocumentMetrics `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	composer *compose.Composer
	auditSvc auditdomain.Service
	metrics  *metrics.DocumentMetrics
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("servicecall.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		composer: p.Composer,
		auditSvc: p.AuditSvc,
		metrics:  p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (domain.ServiceCall, error) {
	if err := domain.ValidateCosts(req.Content); err != nil {
		return domain.ServiceCall{}, err
	}
	refs, err := document.ParseReferences(req.ProjectRef, req.CustomerRef)
	if err != nil {
		return domain.ServiceCall{}, err
	}

	taxRate := decimal.Zero
	if req.TaxRate != nil {
		taxRate = *req.TaxRate
	}
	composed, err := s.composer.Compose(ctx, compose.Input{
		Items:       req.Items,
		TaxRate:     &taxRate,
		CustomerRef: refs.CustomerRef,
		Customer:    req.Customer,
	})
	if err != nil {
		return domain.ServiceCall{}, err
	}

	settings := s.composer.Settings()
	now := s.clock.Now()
	call := domain.ServiceCall{
		ID:         s.genID.Generate(),
		Status:     domain.Lifecycle.Initial,
		Items:      composed.Items,
		References: refs,
		Customer:   composed.Customer,
		HourlyRate: settings.HourlyRate(),
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	apply(&call, req.Content)
	if err := reprice(&call); err != nil {
		return domain.ServiceCall{}, err
	}

	err = store.RetryNumbered(func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			seq, number, err := store.Number(ctx, tx, call.TableName(), settings.Prefixes.ServiceCall)
			if err != nil {
				return err
			}
			call.Sequence = seq
			call.Number = number
			return s.repo.Insert(ctx, tx, &call)
		})
	})
	if err != nil {
		return domain.ServiceCall{}, err
	}

	s.metrics.IncCreated(string(document.TypeServiceCall))
	s.emitAudit(ctx, "service_call.created", &call, nil)
	return call, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (domain.ServiceCall, error) {
	id, err := document.ParseID(req.ID)
	if err != nil {
		return domain.ServiceCall{}, err
	}
	if err := domain.ValidateCosts(req.Content); err != nil {
		return domain.ServiceCall{}, err
	}
	refs, err := document.ParseReferences(req.ProjectRef, req.CustomerRef)
	if err != nil {
		return domain.ServiceCall{}, err
	}

	current, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.ServiceCall{}, err
	}
	if current == nil {
		return domain.ServiceCall{}, document.ErrNotFound
	}
	if err := domain.Lifecycle.EnsureEditable(current.Status); err != nil {
		return domain.ServiceCall{}, err
	}

	taxRate := req.TaxRate
	if taxRate == nil {
		taxRate = &current.TaxRate
	}
	composed, err := s.composer.Compose(ctx, compose.Input{
		Items:       req.Items,
		TaxRate:     taxRate,
		CustomerRef: refs.CustomerRef,
		Customer:    req.Customer,
	})
	if err != nil {
		return domain.ServiceCall{}, err
	}

	var updated domain.ServiceCall
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		call, err := s.repo.FindForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if call == nil {
			return document.ErrNotFound
		}
		if err := domain.Lifecycle.EnsureEditable(call.Status); err != nil {
			return err
		}
		if req.Version != nil && *req.Version != call.Version {
			return document.ErrVersionConflict
		}

		call.Items = composed.Items
		call.References = refs
		if !composed.Customer.IsZero() {
			call.Customer = composed.Customer
		}
		apply(call, req.Content)
		if err := reprice(call); err != nil {
			return err
		}

		expected := call.Version
		call.Version++
		call.UpdatedAt = s.clock.Now()
		if err := s.repo.Save(ctx, tx, call, expected); err != nil {
			return err
		}
		updated = *call
		return nil
	})
	if err != nil {
		return domain.ServiceCall{}, err
	}

	s.emitAudit(ctx, "service_call.updated", &updated, nil)
	return updated, nil
}

// apply copies request content onto call. Nil rates keep the current value.
func apply(call *domain.ServiceCall, c domain.Content) {
	call.Title = strings.TrimSpace(c.Title)
	call.Description = strings.TrimSpace(c.Description)
	call.Technician = strings.TrimSpace(c.Technician)
	call.ScheduledAt = c.ScheduledAt
	call.EstimatedHours = c.EstimatedHours
	call.ActualHours = c.ActualHours
	call.MaterialsCost = c.MaterialsCost
	call.TotalCost = c.TotalCost
	call.Notes = strings.TrimSpace(c.Notes)
	if c.HourlyRate != nil {
		call.HourlyRate = *c.HourlyRate
	}
	if c.TaxRate != nil {
		call.TaxRate = *c.TaxRate
	}
}

// reprice stores the totals of the call's billable lines at its tax rate.
func reprice(call *domain.ServiceCall) error {
	totals, err := calculator.Calculate(call.BillableItems(), call.TaxRate)
	if err != nil {
		return err
	}
	call.Totals = totals
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.ServiceCall, error) {
	callID, err := document.ParseID(id)
	if err != nil {
		return domain.ServiceCall{}, err
	}
	call, err := s.repo.FindByID(ctx, s.db, callID)
	if err != nil {
		return domain.ServiceCall{}, err
	}
	if call == nil {
		return domain.ServiceCall{}, document.ErrNotFound
	}
	return *call, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	status := ""
	if strings.TrimSpace(req.Status) != "" {
		parsed, err := domain.Lifecycle.Parse(req.Status)
		if err != nil {
			return domain.ListResponse{}, err
		}
		status = string(parsed)
	}
	if err := store.ValidatePageToken(req.Pagination); err != nil {
		return domain.ListResponse{}, err
	}
	filter, err := store.NewListFilter(status, req.CustomerRef, req.ProjectRef, req.CreatedFrom, req.CreatedTo)
	if err != nil {
		return domain.ListResponse{}, err
	}

	rows, err := s.repo.List(ctx, s.db, filter, req.Pagination)
	if err != nil {
		return domain.ListResponse{}, err
	}
	calls, pageInfo := store.Page(rows, req.Size(), func(c *domain.ServiceCall) (snowflake.ID, time.Time) {
		return c.ID, c.CreatedAt
	})
	return domain.ListResponse{PageInfo: pageInfo, ServiceCalls: calls}, nil
}

func (s *Service) Transition(ctx context.Context, req domain.TransitionRequest) (domain.ServiceCall, error) {
	id, err := document.ParseID(req.ID)
	if err != nil {
		return domain.ServiceCall{}, err
	}
	target, err := domain.Lifecycle.Parse(req.Status)
	if err != nil {
		return domain.ServiceCall{}, err
	}

	var (
		updated domain.ServiceCall
		from    domain.Status
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		call, err := s.repo.FindForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if call == nil {
			return document.ErrNotFound
		}
		if err := domain.Lifecycle.Transition(call.Status, target); err != nil {
			return err
		}

		now := s.clock.Now()
		from = call.Status
		call.Status = target
		call.Stamp(target, now)

		expected := call.Version
		call.Version++
		call.UpdatedAt = now
		if err := s.repo.Save(ctx, tx, call, expected); err != nil {
			return err
		}
		updated = *call
		return nil
	})
	if err != nil {
		return domain.ServiceCall{}, err
	}

	s.metrics.IncTransition(string(document.TypeServiceCall), string(from), string(target))
	s.emitAudit(ctx, "service_call.status_changed", &updated, map[string]any{
		"from": string(from),
		"to":   string(target),
	})
	return updated, nil
}

func (s *Service) emitAudit(ctx context.Context, action string, call *domain.ServiceCall, extra map[string]any) {
	if s.auditSvc == nil || call == nil {
		return
	}

	metadata := map[string]any{
		"number":       call.Number,
		"status":       string(call.Status),
		"total_amount": call.TotalAmount.String(),
	}
	for key, value := range extra {
		metadata[key] = value
	}

	targetID := call.ID.String()
	if err := s.auditSvc.AuditLog(ctx, "", nil, action, string(document.TypeServiceCall), &targetID, metadata); err != nil {
		s.log.Warn("failed to record audit log", zap.String("action", action), zap.Error(err))
	}
}
