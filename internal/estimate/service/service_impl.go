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
	"github.com/smallbiznis/fieldbook/internal/estimate/domain"
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
		log:      p.Log.Named("estimate.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		composer: p.Composer,
		auditSvc: p.AuditSvc,
		metrics:  p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (domain.Estimate, error) {
	if err := document.RequireText("title", req.Title); err != nil {
		return domain.Estimate{}, err
	}
	refs, err := document.ParseReferences(req.ProjectRef, req.CustomerRef)
	if err != nil {
		return domain.Estimate{}, err
	}

	composed, err := s.composer.Compose(ctx, compose.Input{
		Items:       req.Items,
		TaxRate:     req.TaxRate,
		TotalAmount: req.TotalAmount,
		CustomerRef: refs.CustomerRef,
		Customer:    req.Customer,
	})
	if err != nil {
		return domain.Estimate{}, err
	}

	now := s.clock.Now()
	estimate := domain.Estimate{
		ID:          s.genID.Generate(),
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Status:      domain.Lifecycle.Initial,
		Items:       composed.Items,
		Totals:      composed.Totals,
		References:  refs,
		Customer:    composed.Customer,
		Notes:       strings.TrimSpace(req.Notes),
		ValidUntil:  req.ValidUntil,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	prefix := s.composer.Settings().Prefixes.Estimate
	err = store.RetryNumbered(func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			seq, number, err := store.Number(ctx, tx, estimate.TableName(), prefix)
			if err != nil {
				return err
			}
			estimate.Sequence = seq
			estimate.Number = number
			return s.repo.Insert(ctx, tx, &estimate)
		})
	})
	if err != nil {
		return domain.Estimate{}, err
	}

	s.metrics.IncCreated(string(document.TypeEstimate))
	s.emitAudit(ctx, "estimate.created", &estimate, nil)
	return estimate, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (domain.Estimate, error) {
	id, err := document.ParseID(req.ID)
	if err != nil {
		return domain.Estimate{}, err
	}
	if err := document.RequireText("title", req.Title); err != nil {
		return domain.Estimate{}, err
	}
	refs, err := document.ParseReferences(req.ProjectRef, req.CustomerRef)
	if err != nil {
		return domain.Estimate{}, err
	}

	current, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Estimate{}, err
	}
	if current == nil {
		return domain.Estimate{}, document.ErrNotFound
	}
	if err := domain.Lifecycle.EnsureEditable(current.Status); err != nil {
		return domain.Estimate{}, err
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
		return domain.Estimate{}, err
	}

	var updated domain.Estimate
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		estimate, err := s.repo.FindForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if estimate == nil {
			return document.ErrNotFound
		}
		if err := domain.Lifecycle.EnsureEditable(estimate.Status); err != nil {
			return err
		}
		if req.Version != nil && *req.Version != estimate.Version {
			return document.ErrVersionConflict
		}

		estimate.Title = strings.TrimSpace(req.Title)
		estimate.Description = strings.TrimSpace(req.Description)
		estimate.Items = composed.Items
		estimate.Totals = composed.Totals
		estimate.References = refs
		if !composed.Customer.IsZero() {
			estimate.Customer = composed.Customer
		}
		estimate.Notes = strings.TrimSpace(req.Notes)
		estimate.ValidUntil = req.ValidUntil

		expected := estimate.Version
		estimate.Version++
		estimate.UpdatedAt = s.clock.Now()
		if err := s.repo.Save(ctx, tx, estimate, expected); err != nil {
			return err
		}
		updated = *estimate
		return nil
	})
	if err != nil {
		return domain.Estimate{}, err
	}

	s.emitAudit(ctx, "estimate.updated", &updated, nil)
	return updated, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.Estimate, error) {
	estimateID, err := document.ParseID(id)
	if err != nil {
		return domain.Estimate{}, err
	}
	estimate, err := s.repo.FindByID(ctx, s.db, estimateID)
	if err != nil {
		return domain.Estimate{}, err
	}
	if estimate == nil {
		return domain.Estimate{}, document.ErrNotFound
	}
	return *estimate, nil
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

	estimates, pageInfo := store.Page(rows, req.Size(), func(e *domain.Estimate) (snowflake.ID, time.Time) {
		return e.ID, e.CreatedAt
	})
	return domain.ListResponse{PageInfo: pageInfo, Estimates: estimates}, nil
}

func (s *Service) Transition(ctx context.Context, req domain.TransitionRequest) (domain.Estimate, error) {
	id, err := document.ParseID(req.ID)
	if err != nil {
		return domain.Estimate{}, err
	}
	target, err := domain.Lifecycle.Parse(req.Status)
	if err != nil {
		return domain.Estimate{}, err
	}

	var (
		updated domain.Estimate
		from    domain.Status
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		estimate, err := s.repo.FindForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if estimate == nil {
			return document.ErrNotFound
		}
		if err := domain.Lifecycle.Transition(estimate.Status, target); err != nil {
			return err
		}

		now := s.clock.Now()
		from = estimate.Status
		estimate.Status = target
		estimate.Stamp(target, now)

		expected := estimate.Version
		estimate.Version++
		estimate.UpdatedAt = now
		if err := s.repo.Save(ctx, tx, estimate, expected); err != nil {
			return err
		}
		updated = *estimate
		return nil
	})
	if err != nil {
		return domain.Estimate{}, err
	}

	s.metrics.IncTransition(string(document.TypeEstimate), string(from), string(target))
	s.emitAudit(ctx, "estimate.status_changed", &updated, map[string]any{
		"from": string(from),
		"to":   string(target),
	})
	return updated, nil
}

func (s *Service) emitAudit(ctx context.Context, action string, estimate *domain.Estimate, extra map[string]any) {
	if s.auditSvc == nil || estimate == nil {
		return
	}

	metadata := map[string]any{
		"number":       estimate.Number,
		"status":       string(estimate.Status),
		"total_amount": estimate.TotalAmount.String(),
		"version":      estimate.Version,
	}
	for key, value := range extra {
		metadata[key] = value
	}

	targetID := estimate.ID.String()
	if err := s.auditSvc.AuditLog(ctx, "", nil, action, string(document.TypeEstimate), &targetID, metadata); err != nil {
		s.log.Warn("failed to record audit log", zap.String("action", action), zap.Error(err))
	}
}
