// Package domain contains the service call model and its lifecycle.
package domain

import (
	"fmt"
	"slices"
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
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Lifecycle is open -> in_progress -> completed, with cancelled reachable
// from every non-terminal status. Items and costs stay editable until completion.
var Lifecycle = lifecycle.Table[Status]{
	DocumentType: document.TypeServiceCall,
	Initial:      StatusOpen,
	Transitions: map[Status][]Status{
		StatusOpen:       {StatusInProgress, StatusCancelled},
		StatusInProgress: {StatusCompleted, StatusCancelled},
	},
	Editable: []Status{StatusOpen, StatusInProgress},
}

type ServiceCall struct {
	ID          snowflake.ID                           `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Sequence    int64                                  `gorm:"not null;uniqueIndex:ux_service_calls_sequence" json:"-"`
	Number      string                                 `gorm:"type:text;not null;uniqueIndex:ux_service_calls_number" json:"number"`
	Title       string                                 `gorm:"type:text;not null" json:"title"`
	Description string                                 `gorm:"type:text" json:"description,omitempty"`
	Status      Status                                 `gorm:"type:text;not null;index" json:"status"`
	Items       datatypes.JSONSlice[lineitem.LineItem] `gorm:"type:json" json:"items"`
	document.Totals
	document.References
	Customer    document.CustomerSnapshot `gorm:"embedded" json:"customer"`
	Technician  string                    `gorm:"type:text" json:"technician,omitempty"`
	ScheduledAt *time.Time                `json:"scheduled_at,omitempty"`

	EstimatedHours decimal.Decimal  `gorm:"type:numeric(9,2);not null;default:0" json:"estimated_hours"`
	ActualHours    *decimal.Decimal `gorm:"type:numeric(9,2)" json:"actual_hours,omitempty"`
	HourlyRate     decimal.Decimal  `gorm:"type:numeric(20,4);not null;default:0" json:"hourly_rate"`
	MaterialsCost  decimal.Decimal  `gorm:"type:numeric(20,4);not null;default:0" json:"materials_cost"`
	// TotalCost overrides the labour plus materials computation when set.
	TotalCost *decimal.Decimal `gorm:"type:numeric(20,4)" json:"total_cost,omitempty"`

	ConvertedToInvoiceID *snowflake.ID `gorm:"index" json:"converted_to_invoice_id,omitempty"`
	Notes                string        `gorm:"type:text" json:"notes,omitempty"`
	Version              int64         `gorm:"not null;default:1" json:"version"`
	StartedAt            *time.Time    `json:"started_at,omitempty"`
	CompletedAt          *time.Time    `json:"completed_at,omitempty"`
	CancelledAt          *time.Time    `json:"cancelled_at,omitempty"`
	CreatedAt            time.Time     `gorm:"not null;index" json:"created_at"`
	UpdatedAt            time.Time     `gorm:"not null;autoUpdateTime:false" json:"updated_at"`
}

func (ServiceCall) TableName() string { return "service_calls" }

// Stamp records when the service call entered status.
func (s *ServiceCall) Stamp(status Status, at time.Time) {
	switch status {
	case StatusInProgress:
		s.StartedAt = &at
	case StatusCompleted:
		s.CompletedAt = &at
	case StatusCancelled:
		s.CancelledAt = &at
	}
}

// BillableHours are the actual hours when recorded, else the estimate.
func (s ServiceCall) BillableHours() decimal.Decimal {
	if s.ActualHours != nil {
		return *s.ActualHours
	}
	return s.EstimatedHours
}

// CostItems derives billing lines from the cost fields: one line for an
// explicit total cost, otherwise labour and materials. Zero amounts are skipped.
func (s ServiceCall) CostItems() []lineitem.LineItem {
	if s.TotalCost != nil {
		return []lineitem.LineItem{
			lineitem.NewCustom(fmt.Sprintf("%s - %s", s.Number, s.Title), "each", decimal.NewFromInt(1), *s.TotalCost),
		}
	}

	var items []lineitem.LineItem
	if hours := s.BillableHours(); hours.IsPositive() && s.HourlyRate.IsPositive() {
		labour := lineitem.NewCustom(fmt.Sprintf("%s - labour", s.Number), "hour", hours, s.HourlyRate)
		labour.Notes = s.Technician
		items = append(items, labour)
	}
	if s.MaterialsCost.IsPositive() {
		items = append(items, lineitem.NewCustom(fmt.Sprintf("%s - materials", s.Number), "each", decimal.NewFromInt(1), s.MaterialsCost))
	}
	return items
}

// BillableItems are the lines the call is priced and invoiced on. Explicit
// items win over the cost fields.
func (s ServiceCall) BillableItems() []lineitem.LineItem {
	if len(s.Items) > 0 {
		return slices.Clone([]lineitem.LineItem(s.Items))
	}
	return s.CostItems()
}

func (s ServiceCall) Converted() bool {
	return s.ConvertedToInvoiceID != nil && *s.ConvertedToInvoiceID != 0
}
