package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/fieldbook/internal/catalog/domain"
	"github.com/smallbiznis/fieldbook/internal/clock"
	"github.com/smallbiznis/fieldbook/internal/document/lineitem"
	"github.com/smallbiznis/fieldbook/pkg/db"
	"github.com/smallbiznis/fieldbook/pkg/db/option"
	"github.com/smallbiznis/fieldbook/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  repository.Repository[domain.CatalogItem]
}

type Service struct {
	log   *zap.Logger
	repo  repository.Repository[domain.CatalogItem]
	genID *snowflake.Node
	clock clock.Clock
}

func New(p Params) domain.Service {
	return &Service{
		log:   p.Log.Named("catalog.service"),
		repo:  p.Repo,
		genID: p.GenID,
		clock: p.Clock,
	}
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]domain.Response, error) {
	opts := []option.QueryOption{option.WithOrder("kind asc, name asc")}

	if raw := strings.TrimSpace(req.Kind); raw != "" {
		kind, err := parseKind(raw)
		if err != nil {
			return nil, err
		}
		opts = append(opts, option.WithEqual("kind", string(kind)))
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		opts = append(opts, option.WithEqual("name", name))
	}
	if req.Active != nil {
		// struct filters skip false, so filter explicitly
		opts = append(opts, option.WithEqual("active", *req.Active))
	}

	items, err := s.repo.Find(ctx, nil, opts...)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.Response, 0, len(items))
	for _, item := range items {
		resp = append(resp, toResponse(item))
	}
	return resp, nil
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	kind, err := parseKind(req.Kind)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	unit := strings.TrimSpace(req.Unit)
	if unit == "" {
		return nil, domain.ErrInvalidUnit
	}
	if req.UnitPrice.IsNegative() {
		return nil, domain.ErrInvalidUnitPrice
	}

	code := strings.TrimSpace(req.Code)
	if code == "" {
		code = name
	}
	code = slug.Make(code)
	if code == "" {
		return nil, domain.ErrInvalidCode
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	now := s.clock.Now()
	item := &domain.CatalogItem{
		ID:          s.genID.Generate(),
		Kind:        kind,
		Code:        code,
		Name:        name,
		Unit:        unit,
		UnitPrice:   req.UnitPrice,
		Description: trimmedPtr(req.Description),
		Active:      active,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, item); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrDuplicateCode
		}
		return nil, err
	}

	s.log.Info("catalog item created",
		zap.String("catalog_item_id", item.ID.String()),
		zap.String("kind", string(item.Kind)),
		zap.String("code", item.Code),
	)
	resp := toResponse(item)
	return &resp, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	item, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toResponse(item)
	return &resp, nil
}

// Update edits the catalog only. Documents that already copied this item keep their values.
func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (*domain.Response, error) {
	item, err := s.load(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, domain.ErrInvalidName
		}
		item.Name = name
	}
	if req.Unit != nil {
		unit := strings.TrimSpace(*req.Unit)
		if unit == "" {
			return nil, domain.ErrInvalidUnit
		}
		item.Unit = unit
	}
	if req.UnitPrice != nil {
		if req.UnitPrice.IsNegative() {
			return nil, domain.ErrInvalidUnitPrice
		}
		item.UnitPrice = *req.UnitPrice
	}
	if req.Description != nil {
		item.Description = trimmedPtr(req.Description)
	}
	if req.Active != nil {
		item.Active = *req.Active
	}

	item.UpdatedAt = s.clock.Now()
	if err := s.repo.Save(ctx, item); err != nil {
		return nil, err
	}

	resp := toResponse(item)
	return &resp, nil
}

// Lookup implements lineitem.Catalog. Inactive items and kind mismatches are unknown refs.
func (s *Service) Lookup(ctx context.Context, kind lineitem.ItemType, ref snowflake.ID) (lineitem.CatalogEntry, error) {
	item, err := s.repo.FindByID(ctx, ref)
	if err != nil {
		return lineitem.CatalogEntry{}, err
	}
	if item == nil || !item.Active || item.Kind != kind {
		return lineitem.CatalogEntry{}, lineitem.ErrCatalogEntryNotFound
	}
	return lineitem.CatalogEntry{
		Ref:   item.ID,
		Kind:  item.Kind,
		Name:  item.Name,
		Unit:  item.Unit,
		Price: item.UnitPrice,
	}, nil
}

func (s *Service) load(ctx context.Context, id string) (*domain.CatalogItem, error) {
	itemID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidID
	}
	item, err := s.repo.FindByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}
	return item, nil
}

func parseKind(raw string) (lineitem.ItemType, error) {
	kind, err := lineitem.ParseItemType(raw)
	if err != nil || !kind.FromCatalog() {
		return "", domain.ErrInvalidKind
	}
	return kind, nil
}

func toResponse(item *domain.CatalogItem) domain.Response {
	return domain.Response{
		ID:          item.ID.String(),
		Kind:        item.Kind,
		Code:        item.Code,
		Name:        item.Name,
		Unit:        item.Unit,
		UnitPrice:   item.UnitPrice,
		Description: item.Description,
		Active:      item.Active,
		CreatedAt:   item.CreatedAt,
		UpdatedAt:   item.UpdatedAt,
	}
}

func trimmedPtr(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}
