package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/fieldbook/internal/document/lineitem"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	Update(ctx context.Context, req UpdateRequest) (*Response, error)
	List(ctx context.Context, req ListRequest) ([]Response, error)
	Get(ctx context.Context, id string) (*Response, error)
	Lookup(ctx context.Context, kind lineitem.ItemType, ref snowflake.ID) (lineitem.CatalogEntry, error)
}

type ListRequest struct {
	Kind   string
	Name   string
	Active *bool
}

type CreateRequest struct {
	Kind        string          `json:"kind"`
	Code        string          `json:"code"`
	Name        string          `json:"name"`
	Unit        string          `json:"unit"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Description *string         `json:"description"`
	Active      *bool           `json:"active"`
}

type UpdateRequest struct {
	ID          string           `json:"-"`
	Name        *string          `json:"name"`
	Unit        *string          `json:"unit"`
	UnitPrice   *decimal.Decimal `json:"unit_price"`
	Description *string          `json:"description"`
	Active      *bool            `json:"active"`
}

type Response struct {
	ID          string            `json:"id"`
	Kind        lineitem.ItemType `json:"kind"`
	Code        string            `json:"code"`
	Name        string            `json:"name"`
	Unit        string            `json:"unit"`
	UnitPrice   decimal.Decimal   `json:"unit_price"`
	Description *string           `json:"description,omitempty"`
	Active      bool              `json:"active"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

var (
	ErrInvalidKind      = errors.New("invalid_kind")
	ErrInvalidCode      = errors.New("invalid_code")
	ErrInvalidName      = errors.New("invalid_name")
	ErrInvalidUnit      = errors.New("invalid_unit")
	ErrInvalidUnitPrice = errors.New("invalid_unit_price")
	ErrDuplicateCode    = errors.New("duplicate_code")
	ErrNotFound         = errors.New("not_found")
	ErrInvalidID        = errors.New("invalid_id")
)
