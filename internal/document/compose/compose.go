// Package compose turns document input into stored content: resolved line
// items, computed totals and the customer snapshot.
package compose

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/fieldbook/internal/config"
	"github.com/smallbiznis/fieldbook/internal/document"
	"github.com/smallbiznis/fieldbook/internal/document/calculator"
	"github.com/smallbiznis/fieldbook/internal/document/lineitem"
	"go.uber.org/fx"
)

// ErrCustomerNotFound is returned by CustomerDirectory implementations for unknown refs.
var ErrCustomerNotFound = errors.New("customer_not_found")

// CustomerDirectory provides the printable view of a customer record.
type CustomerDirectory interface {
	Snapshot(ctx context.Context, ref snowflake.ID) (document.CustomerSnapshot, error)
}

// Input is the content part of a create or update request.
type Input struct {
	Items       []lineitem.Draft
	TaxRate     *decimal.Decimal
	TotalAmount *decimal.Decimal
	CustomerRef *snowflake.ID
	Customer    *document.CustomerSnapshot
}

type Result struct {
	Items    []lineitem.LineItem
	Totals   document.Totals
	Customer document.CustomerSnapshot
}

type Params struct {
	fx.In

	Catalog   lineitem.Catalog               `optional:"true"`
	Customers CustomerDirectory              `optional:"true"`
	Settings  *config.DocumentSettingsHolder `optional:"true"`
}

type Composer struct {
	catalog   lineitem.Catalog
	customers CustomerDirectory
	settings  *config.DocumentSettingsHolder
}

func New(p Params) *Composer {
	return &Composer{
		catalog:   p.Catalog,
		customers: p.Customers,
		settings:  p.Settings,
	}
}

var Module = fx.Module("document.compose",
	fx.Provide(New),
)

// Settings returns the current document settings, or the defaults when none are wired.
func (c *Composer) Settings() config.DocumentSettings {
	if c == nil || c.settings == nil {
		return config.DefaultDocumentSettings()
	}
	return c.settings.Get()
}

// Compose resolves catalog items and derives totals. A missing tax rate
// falls back to the configured default. An explicit customer snapshot wins
// over a customer_ref lookup.
func (c *Composer) Compose(ctx context.Context, in Input) (Result, error) {
	items, err := lineitem.Resolve(ctx, c.catalog, in.Items)
	if err != nil {
		return Result{}, err
	}

	rate := c.Settings().TaxRate()
	if in.TaxRate != nil {
		rate = *in.TaxRate
	}

	totals, err := calculator.Compute(items, rate, in.TotalAmount)
	if err != nil {
		return Result{}, err
	}

	snapshot, err := c.Customer(ctx, in.CustomerRef, in.Customer)
	if err != nil {
		return Result{}, err
	}

	return Result{Items: items, Totals: totals, Customer: snapshot}, nil
}

// Customer resolves the snapshot printed on a document. An explicit snapshot
// wins; otherwise ref is looked up. Both empty yields a zero snapshot.
func (c *Composer) Customer(ctx context.Context, ref *snowflake.ID, explicit *document.CustomerSnapshot) (document.CustomerSnapshot, error) {
	if explicit != nil && !explicit.IsZero() {
		return *explicit, nil
	}
	if ref == nil || *ref == 0 {
		return document.CustomerSnapshot{}, nil
	}
	if c.customers == nil {
		return document.CustomerSnapshot{}, document.NewValidationError("customer_ref", "customer_directory_unavailable", "customer directory is not available")
	}

	snapshot, err := c.customers.Snapshot(ctx, *ref)
	if err != nil {
		if errors.Is(err, ErrCustomerNotFound) {
			return document.CustomerSnapshot{}, document.NewValidationError("customer_ref", "unknown_customer_ref", "customer not found")
		}
		return document.CustomerSnapshot{}, err
	}
	return snapshot, nil
}
