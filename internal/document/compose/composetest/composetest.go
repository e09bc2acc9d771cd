// Package composetest provides in-memory collaborators for document tests.
package composetest

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/fieldbook/internal/config"
	"github.com/smallbiznis/fieldbook/internal/document"
	"github.com/smallbiznis/fieldbook/internal/document/compose"
	"github.com/smallbiznis/fieldbook/internal/document/lineitem"
)

const (
	RomexRef    snowflake.ID = 11
	LabourRef   snowflake.ID = 12
	CustomerRef snowflake.ID = 77
)

type Catalog map[snowflake.ID]lineitem.CatalogEntry

func (c Catalog) Lookup(_ context.Context, kind lineitem.ItemType, ref snowflake.ID) (lineitem.CatalogEntry, error) {
	entry, ok := c[ref]
	if !ok || entry.Kind != kind {
		return lineitem.CatalogEntry{}, lineitem.ErrCatalogEntryNotFound
	}
	return entry, nil
}

type Directory map[snowflake.ID]document.CustomerSnapshot

func (d Directory) Snapshot(_ context.Context, ref snowflake.ID) (document.CustomerSnapshot, error) {
	s, ok := d[ref]
	if !ok {
		return document.CustomerSnapshot{}, compose.ErrCustomerNotFound
	}
	return s, nil
}

// Settings are the defaults used across document tests: 8% tax, $75/h.
func Settings() config.DocumentSettings {
	s := config.DefaultDocumentSettings()
	s.DefaultTaxRate = "8"
	s.DefaultHourlyRate = "75"
	return s
}

// New returns a composer backed by a two-entry catalog and one customer.
func New() *compose.Composer {
	return compose.New(compose.Params{
		Catalog: Catalog{
			RomexRef:  {Ref: RomexRef, Kind: lineitem.TypeMaterial, Name: "12/2 Romex", Unit: "ft", Price: decimal.RequireFromString("2.5")},
			LabourRef: {Ref: LabourRef, Kind: lineitem.TypeService, Name: "Journeyman labour", Unit: "hour", Price: decimal.RequireFromString("75")},
		},
		Customers: Directory{
			CustomerRef: {Name: "Harbor Bakery", Email: "owner@harbor.test", Phone: "555-0100", Address: "12 Pier Rd"},
		},
		Settings: config.NewStaticDocumentSettings(Settings()),
	})
}

func Dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func DecPtr(s string) *decimal.Decimal {
	d := Dec(s)
	return &d
}

func Ref(id snowflake.ID) *string {
	s := id.String()
	return &s
}

// ScenarioItems are the two items whose totals at 8% are 127.50 / 10.20 / 137.70.
func ScenarioItems() []lineitem.Draft {
	ref := RomexRef
	return []lineitem.Draft{
		{ItemType: "material", CatalogRef: &ref, Quantity: Dec("10"), MarkupPercentage: Dec("10")},
		{ItemType: "custom", Description: "Panel upgrade", Unit: "each", Quantity: Dec("1"), UnitPrice: DecPtr("100")},
	}
}
