package lineitem

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/fieldbook/internal/document"
)

// ErrCatalogEntryNotFound is returned by Catalog implementations for unknown or inactive refs.
var ErrCatalogEntryNotFound = errors.New("catalog_entry_not_found")

// CatalogEntry is the add-time view of a material or service catalog record.
type CatalogEntry struct {
	Ref   snowflake.ID
	Kind  ItemType
	Name  string
	Unit  string
	Price decimal.Decimal
}

// Catalog resolves catalog references. It is owned by the catalog context.
type Catalog interface {
	Lookup(ctx context.Context, kind ItemType, ref snowflake.ID) (CatalogEntry, error)
}

// Draft is the request-side item. Catalog-sourced fields left empty are
// copied from the catalog when the item is resolved.
type Draft struct {
	ItemType         string           `json:"item_type"`
	CatalogRef       *snowflake.ID    `json:"catalog_ref,omitempty"`
	Description      string           `json:"description"`
	Quantity         decimal.Decimal  `json:"quantity"`
	Unit             string           `json:"unit"`
	UnitPrice        *decimal.Decimal `json:"unit_price,omitempty"`
	MarkupPercentage decimal.Decimal  `json:"markup_percentage"`
	Notes            string           `json:"notes,omitempty"`
}

// FromEntry copies a catalog entry onto a new line item. No live binding is kept.
func FromEntry(entry CatalogEntry, quantity, markup decimal.Decimal) LineItem {
	ref := entry.Ref
	return LineItem{
		ItemType:         entry.Kind,
		CatalogRef:       &ref,
		Description:      entry.Name,
		Quantity:         quantity,
		Unit:             entry.Unit,
		UnitPrice:        entry.Price,
		MarkupPercentage: markup,
	}
}

// Resolve turns drafts into validated line items, consulting the catalog for
// material and service drafts. Values already present on a draft win over the
// catalog so previously copied prices survive later catalog changes.
func Resolve(ctx context.Context, catalog Catalog, drafts []Draft) ([]LineItem, error) {
	items := make([]LineItem, 0, len(drafts))
	var fields []document.FieldError

	for i, draft := range drafts {
		prefix := fmt.Sprintf("items[%d]", i)
		item, err := resolveOne(ctx, catalog, draft)
		if err != nil {
			vErr := document.AsValidation(err)
			if vErr == nil {
				return nil, err
			}
			fields = append(fields, vErr.Prefix(prefix).Fields...)
			continue
		}
		if err := item.Validate(); err != nil {
			vErr := document.AsValidation(err)
			if vErr == nil {
				return nil, err
			}
			fields = append(fields, vErr.Prefix(prefix).Fields...)
			continue
		}
		items = append(items, item)
	}

	if len(fields) > 0 {
		return nil, &document.ValidationError{Fields: fields}
	}
	return items, nil
}

func resolveOne(ctx context.Context, catalog Catalog, draft Draft) (LineItem, error) {
	kind, err := ParseItemType(draft.ItemType)
	if err != nil {
		return LineItem{}, err
	}

	item := LineItem{
		ItemType:         kind,
		CatalogRef:       draft.CatalogRef,
		Description:      strings.TrimSpace(draft.Description),
		Quantity:         draft.Quantity,
		Unit:             strings.TrimSpace(draft.Unit),
		MarkupPercentage: draft.MarkupPercentage,
		Notes:            strings.TrimSpace(draft.Notes),
	}
	if draft.UnitPrice != nil {
		item.UnitPrice = *draft.UnitPrice
	}

	if !kind.FromCatalog() || draft.CatalogRef == nil {
		return item, nil
	}
	if item.Description != "" && item.Unit != "" && draft.UnitPrice != nil {
		return item, nil
	}
	if catalog == nil {
		return LineItem{}, document.NewValidationError("catalog_ref", "catalog_unavailable", "catalog is not available")
	}

	entry, err := catalog.Lookup(ctx, kind, *draft.CatalogRef)
	if err != nil {
		if errors.Is(err, ErrCatalogEntryNotFound) {
			return LineItem{}, document.NewValidationError("catalog_ref", "unknown_catalog_ref", "catalog entry not found")
		}
		return LineItem{}, err
	}

	if item.Description == "" {
		item.Description = entry.Name
	}
	if item.Unit == "" {
		item.Unit = entry.Unit
	}
	if draft.UnitPrice == nil {
		item.UnitPrice = entry.Price
	}
	return item, nil
}

// Drafts converts stored items back into drafts with every copied field set.
func Drafts(items []LineItem) []Draft {
	out := make([]Draft, 0, len(items))
	for _, item := range items {
		price := item.UnitPrice
		out = append(out, Draft{
			ItemType:         string(item.ItemType),
			CatalogRef:       item.CatalogRef,
			Description:      item.Description,
			Quantity:         item.Quantity,
			Unit:             item.Unit,
			UnitPrice:        &price,
			MarkupPercentage: item.MarkupPercentage,
			Notes:            item.Notes,
		})
	}
	return out
}
