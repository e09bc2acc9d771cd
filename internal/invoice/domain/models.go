// Package domain contains the invoice model and its lifecycle.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/fieldbook/internal/document"
	"github.com/smallbiznis/fieldbook/internal/document/lifecycle"
	"github.com/smallbiznis/fieldbook/internal/document/lineitem"
	"gorm.io/datatypes"
)

// InvoiceStatus represents invoice lifecycle states.
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusSent      InvoiceStatus = "sent"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusOverdue   InvoiceStatus = "overdue"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

// Lifecycle is draft -> sent -> paid | overdue | cancelled. Overdue is only
// entered through the status endpoint or MarkOverdue, never on a timer.
var Lifecycle = lifecycle.Table[InvoiceStatus]{
	DocumentType: document.TypeInvoice,
	Initial:      InvoiceStatusDraft,
	Transitions: map[InvoiceStatus][]InvoiceStatus{
		InvoiceStatusDraft: {InvoiceStatusSent},
		InvoiceStatusSent:  {InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusCancelled},
	},
	Editable: []InvoiceStatus{InvoiceStatusDraft},
}

// Invoice is a bill sent to a customer, either written directly or converted
// from a change order or a service call.
type Invoice struct {
	ID          snowflake.ID                           `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Sequence    int64                                  `gorm:"not null;uniqueIndex:ux_invoices_sequence" json:"-"`
	Number      string                                 `gorm:"type:text;not null;uniqueIndex:ux_invoices_number" json:"number"`
	Title       string                                 `gorm:"type:text;not null" json:"title"`
	Description string                                 `gorm:"type:text" json:"description,omitempty"`
	Status      InvoiceStatus                          `gorm:"type:text;not null;index" json:"status"`
	Items       datatypes.JSONSlice[lineitem.LineItem] `gorm:"type:json" json:"items"`
	document.Totals
	document.References
	Customer    document.CustomerSnapshot `gorm:"embedded" json:"customer"`
	Provenance  document.Provenance       `gorm:"embedded" json:"provenance"`
	Currency    string                    `gorm:"type:text;not null" json:"currency"`
	Notes       string                    `gorm:"type:text" json:"notes,omitempty"`
	DueDate     *time.Time                `gorm:"index" json:"due_date,omitempty"`
	Version     int64                     `gorm:"not null;default:1" json:"version"`
	SentAt      *time.Time                `json:"sent_at,omitempty"`
	PaidAt      *time.Time                `json:"paid_at,omitempty"`
	OverdueAt   *time.Time                `json:"overdue_at,omitempty"`
	CancelledAt *time.Time                `json:"cancelled_at,omitempty"`
	CreatedAt   time.Time                 `gorm:"not null;index" json:"created_at"`
	UpdatedAt   time.Time                 `gorm:"not null;autoUpdateTime:false" json:"updated_at"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

// Stamp records when the invoice entered status.
func (i *Invoice) Stamp(status InvoiceStatus, at time.Time) {
	switch status {
	case InvoiceStatusSent:
		i.SentAt = &at
	case InvoiceStatusPaid:
		i.PaidAt = &at
	case InvoiceStatusOverdue:
		i.OverdueAt = &at
	case InvoiceStatusCancelled:
		i.CancelledAt = &at
	}
}

// PastDue reports whether a sent invoice's due date lies before asOf.
func (i Invoice) PastDue(asOf time.Time) bool {
	return i.Status == InvoiceStatusSent && i.DueDate != nil && i.DueDate.Before(asOf)
}
