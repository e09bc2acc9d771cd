// Package document holds the shape shared by every financial document:
// totals, customer snapshot, provenance and the engine error kinds.
package document

import (
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Type names a financial document kind.
type Type string

const (
	TypeEstimate    Type = "estimate"
	TypeChangeOrder Type = "change_order"
	TypeInvoice     Type = "invoice"
	TypeServiceCall Type = "service_call"
)

func ParseType(raw string) (Type, error) {
	switch Type(raw) {
	case TypeEstimate, TypeChangeOrder, TypeInvoice, TypeServiceCall:
		return Type(raw), nil
	default:
		return "", NewValidationError("document_type", "invalid_document_type", "unknown document type")
	}
}

// Totals are the stored, derived amounts of a document.
// ManualTotal marks the empty-items fallback where only TotalAmount is meaningful.
type Totals struct {
	TaxRate     decimal.Decimal `gorm:"column:tax_rate;type:numeric(9,4);not null;default:0" json:"tax_rate"`
	Subtotal    decimal.Decimal `gorm:"column:subtotal;type:numeric(20,4);not null;default:0" json:"subtotal"`
	TaxAmount   decimal.Decimal `gorm:"column:tax_amount;type:numeric(20,4);not null;default:0" json:"tax_amount"`
	TotalAmount decimal.Decimal `gorm:"column:total_amount;type:numeric(20,4);not null;default:0" json:"total_amount"`
	ManualTotal bool            `gorm:"column:manual_total;not null;default:false" json:"manual_total"`
}

// Consistent reports whether total == subtotal + tax. Manual totals are exempt.
func (t Totals) Consistent() bool {
	if t.ManualTotal {
		return true
	}
	return t.TotalAmount.Equal(t.Subtotal.Add(t.TaxAmount))
}

// CustomerSnapshot is denormalized at create/edit time and never follows the live customer.
type CustomerSnapshot struct {
	Name    string `gorm:"column:customer_name;type:text" json:"name"`
	Email   string `gorm:"column:customer_email;type:text" json:"email"`
	Phone   string `gorm:"column:customer_phone;type:text" json:"phone"`
	Address string `gorm:"column:customer_address;type:text" json:"address"`
}

func (s CustomerSnapshot) IsZero() bool {
	return s == CustomerSnapshot{}
}

// Provenance records which document an invoice was converted from.
type Provenance struct {
	SourceID   *snowflake.ID    `gorm:"column:source_id;index" json:"source_id,omitempty"`
	SourceType *Type            `gorm:"column:source_type;type:text" json:"source_type,omitempty"`
	Percentage *decimal.Decimal `gorm:"column:source_percentage;type:numeric(9,4)" json:"percentage,omitempty"`
}

func (p Provenance) IsSet() bool {
	return p.SourceID != nil && p.SourceType != nil
}

// References point at external project and customer records.
type References struct {
	ProjectRef  *snowflake.ID `gorm:"column:project_ref;index" json:"project_ref,omitempty"`
	CustomerRef *snowflake.ID `gorm:"column:customer_ref;index" json:"customer_ref,omitempty"`
}
