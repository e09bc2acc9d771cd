// Package domain contains the change order model and its lifecycle.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/fieldbook/internal/document"
	"github.com/smallbiznis/fieldbook/internal/document/lifecycle"
	"github.com/smallbiznis/fieldbook/internal/document/lineitem"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusSent      Status = "sent"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

// Lifecycle is draft -> sent -> approved | rejected, with cancelled reachable
// from every non-terminal status.
var Lifecycle = lifecycle.Table[Status]{
	DocumentType: document.TypeChangeOrder,
	Initial:      StatusDraft,
	Transitions: map[Status][]Status{
		StatusDraft: {StatusSent, StatusCancelled},
		StatusSent:  {StatusApproved, StatusRejected, StatusCancelled},
	},
	Editable: []Status{StatusDraft},
}

var hundred = decimal.NewFromInt(100)

type ChangeOrder struct {
	ID          snowflake.ID                           `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Sequence    int64                                  `gorm:"not null;uniqueIndex:ux_change_orders_sequence" json:"-"`
	Number      string                                 `gorm:"type:text;not null;uniqueIndex:ux_change_orders_number" json:"number"`
	Title       string                                 `gorm:"type:text;not null" json:"title"`
	Description string                                 `gorm:"type:text" json:"description,omitempty"`
	Reason      string                                 `gorm:"type:text" json:"reason,omitempty"`
	Status      Status                                 `gorm:"type:text;not null;index" json:"status"`
	Items       datatypes.JSONSlice[lineitem.LineItem] `gorm:"type:json" json:"items"`
	document.Totals
	document.References
	Customer document.CustomerSnapshot `gorm:"embedded" json:"customer"`
	Notes    string                    `gorm:"type:text" json:"notes,omitempty"`
	// ConvertedPercentage is the share of the total already invoiced, 0..100.
	ConvertedPercentage decimal.Decimal `gorm:"type:numeric(9,4);not null;default:0" json:"converted_percentage"`
	Version             int64           `gorm:"not null;default:1" json:"version"`
	SentAt              *time.Time      `json:"sent_at,omitempty"`
	ApprovedAt          *time.Time      `json:"approved_at,omitempty"`
	RejectedAt          *time.Time      `json:"rejected_at,omitempty"`
	CancelledAt         *time.Time      `json:"cancelled_at,omitempty"`
	CreatedAt           time.Time       `gorm:"not null;index" json:"created_at"`
	UpdatedAt           time.Time       `gorm:"not null;autoUpdateTime:false" json:"updated_at"`
}

func (ChangeOrder) TableName() string { return "change_orders" }

// Stamp records when the change order entered status.
func (c *ChangeOrder) Stamp(status Status, at time.Time) {
	switch status {
	case StatusSent:
		c.SentAt = &at
	case StatusApproved:
		c.ApprovedAt = &at
	case StatusRejected:
		c.RejectedAt = &at
	case StatusCancelled:
		c.CancelledAt = &at
	}
}

// RemainingPercentage is what can still be invoiced.
func (c ChangeOrder) RemainingPercentage() decimal.Decimal {
	remaining := hundred.Sub(c.ConvertedPercentage)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}
