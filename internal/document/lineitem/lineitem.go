// Package lineitem models one billable entry of a financial document.
package lineitem

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/fieldbook/internal/document"
)

// ItemType is the closed set of line item kinds.
type ItemType string

const (
	TypeMaterial ItemType = "material"
	TypeService  ItemType = "service"
	TypeCustom   ItemType = "custom"
)

func ParseItemType(raw string) (ItemType, error) {
	switch ItemType(strings.ToLower(strings.TrimSpace(raw))) {
	case TypeMaterial:
		return TypeMaterial, nil
	case TypeService:
		return TypeService, nil
	case TypeCustom:
		return TypeCustom, nil
	default:
		return "", document.NewValidationError("item_type", "invalid_item_type", "item_type must be material, service or custom")
	}
}

// FromCatalog reports whether items of this kind are sourced from a catalog.
func (t ItemType) FromCatalog() bool {
	return t == TypeMaterial || t == TypeService
}

var hundred = decimal.NewFromInt(100)

// Pricing is the arithmetic core shared by every variant.
type Pricing struct {
	Quantity         decimal.Decimal
	UnitPrice        decimal.Decimal
	MarkupPercentage decimal.Decimal
}

// LineTotal is quantity * unit_price * (1 + markup/100) at full precision.
func (p Pricing) LineTotal() decimal.Decimal {
	factor := decimal.NewFromInt(1).Add(p.MarkupPercentage.Div(hundred))
	return p.Quantity.Mul(p.UnitPrice).Mul(factor)
}

func (p Pricing) validate() *document.ValidationError {
	var fields []document.FieldError
	if p.Quantity.IsNegative() {
		fields = append(fields, document.FieldError{Field: "quantity", Code: "invalid_quantity", Message: "quantity must not be negative"})
	}
	if p.UnitPrice.IsNegative() {
		fields = append(fields, document.FieldError{Field: "unit_price", Code: "invalid_unit_price", Message: "unit_price must not be negative"})
	}
	if p.MarkupPercentage.IsNegative() {
		fields = append(fields, document.FieldError{Field: "markup_percentage", Code: "invalid_markup_percentage", Message: "markup_percentage must not be negative"})
	}
	if len(fields) == 0 {
		return nil
	}
	return &document.ValidationError{Fields: fields}
}

// Billable is the common view over material, service and custom items.
type Billable interface {
	Kind() ItemType
	Describe() string
	UnitOf() string
	Price() Pricing
	LineTotal() decimal.Decimal
}

type base struct {
	Description string
	Unit        string
	Notes       string
	Pricing
}

func (b base) Describe() string { return b.Description }
func (b base) UnitOf() string   { return b.Unit }
func (b base) Price() Pricing   { return b.Pricing }

// Material is a catalog material copied onto the document.
type Material struct {
	base
	CatalogRef snowflake.ID
}

func (Material) Kind() ItemType { return TypeMaterial }

// Service is a catalog service (labour rate) copied onto the document.
type Service struct {
	base
	CatalogRef snowflake.ID
}

func (Service) Kind() ItemType { return TypeService }

// Custom is free text with no catalog binding.
type Custom struct {
	base
}

func (Custom) Kind() ItemType { return TypeCustom }

// LineItem is the persisted and wire form of a billable entry. The line total
// is derived and only exposed through LineTotal.
type LineItem struct {
	ItemType         ItemType        `json:"item_type"`
	CatalogRef       *snowflake.ID   `json:"catalog_ref,omitempty"`
	Description      string          `json:"description"`
	Quantity         decimal.Decimal `json:"quantity"`
	Unit             string          `json:"unit"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	MarkupPercentage decimal.Decimal `json:"markup_percentage"`
	Notes            string          `json:"notes,omitempty"`
}

func (li LineItem) pricing() Pricing {
	return Pricing{Quantity: li.Quantity, UnitPrice: li.UnitPrice, MarkupPercentage: li.MarkupPercentage}
}

// LineTotal computes the derived total without validating.
func (li LineItem) LineTotal() decimal.Decimal {
	return li.pricing().LineTotal()
}

// Validate checks the item in isolation.
func (li LineItem) Validate() error {
	_, err := li.Billable()
	return err
}

// Billable validates the item and returns its typed variant.
func (li LineItem) Billable() (Billable, error) {
	kind, err := ParseItemType(string(li.ItemType))
	if err != nil {
		return nil, err
	}

	var fields []document.FieldError
	if strings.TrimSpace(li.Description) == "" {
		fields = append(fields, document.FieldError{Field: "description", Code: "required", Message: "description is required"})
	}
	if kind.FromCatalog() && (li.CatalogRef == nil || *li.CatalogRef == 0) {
		fields = append(fields, document.FieldError{Field: "catalog_ref", Code: "required", Message: fmt.Sprintf("%s items require a catalog_ref", kind)})
	}
	if kind == TypeCustom && li.CatalogRef != nil {
		fields = append(fields, document.FieldError{Field: "catalog_ref", Code: "not_allowed", Message: "custom items cannot reference a catalog entry"})
	}
	if pErr := li.pricing().validate(); pErr != nil {
		fields = append(fields, pErr.Fields...)
	}
	if len(fields) > 0 {
		return nil, &document.ValidationError{Fields: fields}
	}

	b := base{
		Description: strings.TrimSpace(li.Description),
		Unit:        strings.TrimSpace(li.Unit),
		Notes:       li.Notes,
		Pricing:     li.pricing(),
	}
	switch kind {
	case TypeMaterial:
		return Material{base: b, CatalogRef: *li.CatalogRef}, nil
	case TypeService:
		return Service{base: b, CatalogRef: *li.CatalogRef}, nil
	default:
		return Custom{base: b}, nil
	}
}

// ValidateAll validates a list, qualifying field names with the item index.
func ValidateAll(items []LineItem) error {
	var fields []document.FieldError
	for i, item := range items {
		if err := item.Validate(); err != nil {
			vErr := document.AsValidation(err)
			if vErr == nil {
				return err
			}
			fields = append(fields, vErr.Prefix(fmt.Sprintf("items[%d]", i)).Fields...)
		}
	}
	if len(fields) > 0 {
		return &document.ValidationError{Fields: fields}
	}
	return nil
}

// NewCustom builds a free-text item.
func NewCustom(description, unit string, quantity, unitPrice decimal.Decimal) LineItem {
	return LineItem{
		ItemType:    TypeCustom,
		Description: description,
		Quantity:    quantity,
		Unit:        unit,
		UnitPrice:   unitPrice,
	}
}
