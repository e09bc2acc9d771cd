package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/fieldbook/internal/audit/domain"
	"github.com/smallbiznis/fieldbook/internal/changeorder/domain"
	"github.com/smallbiznis/fieldbook/internal/clock"
	"github.com/smallbiznis/fieldbook/internal/document"
	"github.com/smallbiznis/fieldbook/internal/document/compose"
	"github.com/smallbiznis/fieldbook/internal/document/store"
	"github.com/smallbiznis/fieldbook/internal/observability/metrics"
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
		log:      p.Log.Named("changeorder.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		composer: p.Composer,
		auditSvc: p.AuditSvc,
		metrics:  p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (domain.ChangeOrder, error) {
	if err := document.RequireText("title", req.Title); err != nil {
		return domain.ChangeOrder{}, err
	}
	refs, err := document.ParseReferences(req.ProjectRef, req.CustomerRef)
	if err != nil {
		return domain.ChangeOrder{}, err
	}

	composed, err := s.composer.Compose(ctx, compose.Input{
		Items:       req.Items,
		TaxRate:     req.TaxRate,
		TotalAmount: req.TotalAmount,
		CustomerRef: refs.CustomerRef,
		Customer:    req.Customer,
	})
	if err != nil {
		return domain.ChangeOrder{}, err
	}

	now := s.clock.Now()
	changeOrder := domain.ChangeOrder{
		ID:          s.genID.Generate(),
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Reason:      strings.TrimSpace(req.Reason),
		Status:      domain.Lifecycle.Initial,
		Items:       composed.Items,
		Totals:      composed.Totals,
		References:  refs,
		Customer:    composed.Customer,
		Notes:       strings.TrimSpace(req.Notes),
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	prefix := s.composer.Settings().Prefixes.ChangeOrder
	err = store.RetryNumbered(func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			seq, number, err := store.Number(ctx, tx, changeOrder.TableName(), prefix)
			if err != nil {
				return err
			}
			changeOrder.Sequence = seq
			changeOrder.Number = number
			return s.repo.Insert(ctx, tx, &changeOrder)
		})
	})
	if err != nil {
		return domain.ChangeOrder{}, err
	}

	s.metrics.IncCreated(string(document.TypeChangeOrder))
	s.emitAudit(ctx, "change_order.created", &changeOrder, nil)
	return changeOrder, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (domain.ChangeOrder, error) {
	id, err := document.ParseID(req.ID)
	if err != nil {
		return domain.ChangeOrder{}, err
	}
	if err := document.RequireText("title", req.Title); err != nil {
		return domain.ChangeOrder{}, err
	}
	refs, err := document.ParseReferences(req.ProjectRef, req.CustomerRef)
	if err != nil {
		return domain.ChangeOrder{}, err
	}

	current, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.ChangeOrder{}, err
	}
	if current == nil {
		return domain.ChangeOrder{}, document.ErrNotFound
	}
	if err := domain.Lifecycle.EnsureEditable(current.Status); err != nil {
		return domain.ChangeOrder{}, err
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
		return domain.ChangeOrder{}, err
	}

	var updated domain.ChangeOrder
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		changeOrder, err := s.repo.FindForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if changeOrder == nil {
			return document.ErrNotFound
		}
		if err := domain.Lifecycle.EnsureEditable(changeOrder.Status); err != nil {
			return err
		}
		if req.Version != nil && *req.Version != changeOrder.Version {
			return document.ErrVersionConflict
		}

		changeOrder.Title = strings.TrimSpace(req.Title)
		changeOrder.Description = strings.TrimSpace(req.Description)
		changeOrder.Reason = strings.TrimSpace(req.Reason)
		changeOrder.Items = composed.Items
		changeOrder.Totals = composed.Totals
		changeOrder.References = refs
		if !composed.Customer.IsZero() {
			changeOrder.Customer = composed.Customer
		}
		changeOrder.Notes = strings.TrimSpace(req.Notes)

		expected := changeOrder.Version
		changeOrder.Version++
		changeOrder.UpdatedAt = s.clock.Now()
		if err := s.repo.Save(ctx, tx, changeOrder, expected); err != nil {
			return err
		}
		updated = *changeOrder
		return nil
	})
	if err != nil {
		return domain.ChangeOrder{}, err
	}

	s.emitAudit(ctx, "change_order.updated", &updated, nil)
	return updated, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.ChangeOrder, error) {
	changeOrderID, err := document.ParseID(id)
	if err != nil {
		return domain.ChangeOrder{}, err
	}
	changeOrder, err := s.repo.FindByID(ctx, s.db, changeOrderID)
	if err != nil {
		return domain.ChangeOrder{}, err
	}
	if changeOrder == nil {
		return domain.ChangeOrder{}, document.ErrNotFound
	}
	return *changeOrder, nil
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

	changeOrders, pageInfo := store.Page(rows, req.Size(), func(e *domain.ChangeOrder) (snowflake.ID, time.Time) {
		return e.ID, e.CreatedAt
	})
	return domain.ListResponse{PageInfo: pageInfo, ChangeOrders: changeOrders}, nil
}

func (s *Service) Transition(ctx context.Context, req domain.TransitionRequest) (domain.ChangeOrder, error) {
	id, err := document.ParseID(req.ID)
	if err != nil {
		return domain.ChangeOrder{}, err
	}
	target, err := domain.Lifecycle.Parse(req.Status)
	if err != nil {
		return domain.ChangeOrder{}, err
	}

	var (
		updated domain.ChangeOrder
		from    domain.Status
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		changeOrder, err := s.repo.FindForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if changeOrder == nil {
			return document.ErrNotFound
		}
		if err := domain.Lifecycle.Transition(changeOrder.Status, target); err != nil {
			return err
		}

		now := s.clock.Now()
		from = changeOrder.Status
		changeOrder.Status = target
		changeOrder.Stamp(target, now)

		expected := changeOrder.Version
		changeOrder.Version++
		changeOrder.UpdatedAt = now
		if err := s.repo.Save(ctx, tx, changeOrder, expected); err != nil {
			return err
		}
		updated = *changeOrder
		return nil
	})
	if err != nil {
		return domain.ChangeOrder{}, err
	}

	s.metrics.IncTransition(string(document.TypeChangeOrder), string(from), string(target))
	s.emitAudit(ctx, "change_order.status_changed", &updated, map[string]any{
		"from": string(from),
		"to":   string(target),
	})
	return updated, nil
}

func (s *Service) emitAudit(ctx context.Context, action string, changeOrder *domain.ChangeOrder, extra map[string]any) {
	if s.auditSvc == nil || changeOrder == nil {
		return
	}

	metadata := map[string]any{
		"number":       changeOrder.Number,
		"status":       string(changeOrder.Status),
		"total_amount": changeOrder.TotalAmount.String(),
		"version":      changeOrder.Version,
	}
	for key, value := range extra {
		metadata[key] = value
	}

	targetID := changeOrder.ID.String()
	if err := s.auditSvc.AuditLog(ctx, "", nil, action, string(document.TypeChangeOrder), &targetID, metadata); err != nil {
		s.log.Warn("failed to record audit log", zap.String("action", action), zap.Error(err))
	}
}
