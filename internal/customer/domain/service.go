package domain

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/fieldbook/internal/document"
	"github.com/smallbiznis/fieldbook/pkg/db/pagination"
)

type ListCustomerRequest struct {
	pagination.Pagination
	// Query matches a fragment of the name or email, case-insensitively.
	Query       string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

type ListCustomerResponse struct {
	pagination.PageInfo
	Customers []Customer `json:"customers"`
}

type CreateCustomerRequest struct {
	Name     string         `json:"name"`
	Email    string         `json:"email"`
	Phone    string         `json:"phone"`
	Address  string         `json:"address"`
	Metadata map[string]any `json:"metadata"`
}

// UpdateCustomerRequest changes only the fields that are set. Documents
// already issued keep the contact details they were created with.
type UpdateCustomerRequest struct {
	ID       string
	Name     *string
	Email    *string
	Phone    *string
	Address  *string
	Metadata map[string]any
}

type GetCustomerRequest struct {
	ID string
}

type Service interface {
	Create(context.Context, CreateCustomerRequest) (Customer, error)
	Update(context.Context, UpdateCustomerRequest) (Customer, error)
	List(context.Context, ListCustomerRequest) (ListCustomerResponse, error)
	GetByID(context.Context, GetCustomerRequest) (Customer, error)
	Snapshot(context.Context, string) (document.CustomerSnapshot, error)
}

var (
	ErrInvalidName      = errors.New("invalid_name")
	ErrInvalidEmail     = errors.New("invalid_email")
	ErrInvalidID        = errors.New("invalid_id")
	ErrInvalidTimeRange = errors.New("invalid_time_range")
	ErrNotFound         = errors.New("not_found")
)

// Snapshot copies the fields printed on documents.
func (c Customer) Snapshot() document.CustomerSnapshot {
	return document.CustomerSnapshot{
		Name:    c.Name,
		Email:   c.Email,
		Phone:   c.Phone,
		Address: c.Address,
	}
}
