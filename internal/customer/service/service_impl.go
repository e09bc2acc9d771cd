package service

import (
	"context"
	"net/mail"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/fieldbook/internal/clock"
	"github.com/smallbiznis/fieldbook/internal/customer/domain"
	"github.com/smallbiznis/fieldbook/internal/document"
	"github.com/smallbiznis/fieldbook/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("customer.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateCustomerRequest) (domain.Customer, error) {
	name, err := normalizeName(req.Name)
	if err != nil {
		return domain.Customer{}, err
	}
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return domain.Customer{}, err
	}

	now := s.clock.Now().UTC()
	customer := domain.Customer{
		ID:        s.genID.Generate(),
		Name:      name,
		Email:     email,
		Phone:     strings.TrimSpace(req.Phone),
		Address:   strings.TrimSpace(req.Address),
		Metadata:  datatypes.JSONMap(req.Metadata),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if customer.Metadata == nil {
		customer.Metadata = datatypes.JSONMap{}
	}

	if err := s.repo.Insert(ctx, s.db, &customer); err != nil {
		return domain.Customer{}, err
	}
	s.log.Debug("customer created", zap.String("customer_id", customer.ID.String()))
	return customer, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateCustomerRequest) (domain.Customer, error) {
	customer, err := s.GetByID(ctx, domain.GetCustomerRequest{ID: req.ID})
	if err != nil {
		return domain.Customer{}, err
	}

	if req.Name != nil {
		if customer.Name, err = normalizeName(*req.Name); err != nil {
			return domain.Customer{}, err
		}
	}
	if req.Email != nil {
		if customer.Email, err = normalizeEmail(*req.Email); err != nil {
			return domain.Customer{}, err
		}
	}
	if req.Phone != nil {
		customer.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Address != nil {
		customer.Address = strings.TrimSpace(*req.Address)
	}
	if req.Metadata != nil {
		customer.Metadata = datatypes.JSONMap(req.Metadata)
	}
	customer.UpdatedAt = s.clock.Now().UTC()

	if err := s.repo.Save(ctx, s.db, &customer); err != nil {
		return domain.Customer{}, err
	}
	return customer, nil
}

func (s *Service) List(ctx context.Context, req domain.ListCustomerRequest) (domain.ListCustomerResponse, error) {
	if req.CreatedFrom != nil && req.CreatedTo != nil && req.CreatedFrom.After(*req.CreatedTo) {
		return domain.ListCustomerResponse{}, domain.ErrInvalidTimeRange
	}
	if err := req.Validate(); err != nil {
		return domain.ListCustomerResponse{}, err
	}

	rows, err := s.repo.Find(ctx, s.db, domain.Filter{
		Query:       strings.ToLower(strings.TrimSpace(req.Query)),
		CreatedFrom: req.CreatedFrom,
		CreatedTo:   req.CreatedTo,
	}, req.Pagination)
	if err != nil {
		return domain.ListCustomerResponse{}, err
	}

	customers, info := pagination.Collect(rows, req.Size(), func(c *domain.Customer) pagination.Cursor {
		return pagination.SeekCursor(int64(c.ID), c.CreatedAt)
	})
	return domain.ListCustomerResponse{PageInfo: info, Customers: customers}, nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetCustomerRequest) (domain.Customer, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(req.ID))
	if err != nil || id <= 0 {
		return domain.Customer{}, domain.ErrInvalidID
	}

	customer, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Customer{}, err
	}
	if customer == nil {
		return domain.Customer{}, domain.ErrNotFound
	}
	return *customer, nil
}

// Snapshot returns the document copy of a customer's contact data.
func (s *Service) Snapshot(ctx context.Context, id string) (document.CustomerSnapshot, error) {
	customer, err := s.GetByID(ctx, domain.GetCustomerRequest{ID: id})
	if err != nil {
		return document.CustomerSnapshot{}, err
	}
	return customer.Snapshot(), nil
}

func normalizeName(value string) (string, error) {
	name := strings.TrimSpace(value)
	if name == "" {
		return "", domain.ErrInvalidName
	}
	return name, nil
}

// normalizeEmail accepts "Name <addr>" and keeps the lower-cased address.
func normalizeEmail(value string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(value))
	if err != nil {
		return "", domain.ErrInvalidEmail
	}
	return strings.ToLower(addr.Address), nil
}
