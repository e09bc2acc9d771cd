// Package domain contains the estimate model and its lifecycle.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/fieldbook/internal/document"
	"github.com/smallbiznis/fieldbook/internal/document/lifecycle"
	"github.com/smallbiznis/fieldbook/internal/document/lineitem"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusDraft    Status = "draft"
	StatusSent     Status = "sent"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Lifecycle is draft -> sent -> approved | rejected.
var Lifecycle = lifecycle.Table[Status]{
	DocumentType: document.TypeEstimate,
	Initial:      StatusDraft,
	Transitions: map[Status][]Status{
		StatusDraft: {StatusSent},
		StatusSent:  {StatusApproved, StatusRejected},
	},
	Editable: []Status{StatusDraft},
}

type Estimate struct {
	ID          snowflake.ID                           `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Sequence    int64                                  `gorm:"not null;uniqueIndex:ux_estimates_sequence" json:"-"`
	Number      string                                 `gorm:"type:text;not null;uniqueIndex:ux_estimates_number" json:"number"`
	Title       string                                 `gorm:"type:text;not null" json:"title"`
	Description string                                 `gorm:"type:text" json:"description,omitempty"`
	Status      Status                                 `gorm:"type:text;not null;index" json:"status"`
	Items       datatypes.JSONSlice[lineitem.LineItem] `gorm:"type:json" json:"items"`
	document.Totals
	document.References
	Customer   document.CustomerSnapshot `gorm:"embedded" json:"customer"`
	Notes      string                    `gorm:"type:text" json:"notes,omitempty"`
	ValidUntil *time.Time                `json:"valid_until,omitempty"`
	Version    int64                     `gorm:"not null;default:1" json:"version"`
	SentAt     *time.Time                `json:"sent_at,omitempty"`
	ApprovedAt *time.Time                `json:"approved_at,omitempty"`
	RejectedAt *time.Time                `json:"rejected_at,omitempty"`
	CreatedAt  time.Time                 `gorm:"not null;index" json:"created_at"`
	UpdatedAt  time.Time                 `gorm:"not null;autoUpdateTime:false" json:"updated_at"`
}

func (Estimate) TableName() string { return "estimates" }

// Stamp records when the estimate entered status.
func (e *Estimate) Stamp(status Status, at time.Time) {
	switch status {
	case StatusSent:
		e.SentAt = &at
	case StatusApproved:
		e.ApprovedAt = &at
	case StatusRejected:
		e.RejectedAt = &at
	}
}
