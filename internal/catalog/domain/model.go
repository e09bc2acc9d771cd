package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/fieldbook/internal/document/lineitem"
)

// CatalogItem is a material or a service rate. Documents copy its values at
// add time, so edits here never reach existing documents.
type CatalogItem struct {
	ID          snowflake.ID      `json:"id" gorm:"primaryKey;autoIncrement:false"`
	Kind        lineitem.ItemType `json:"kind" gorm:"type:text;not null;index"`
	Code        string            `json:"code" gorm:"type:text;not null;uniqueIndex:ux_catalog_items_code"`
	Name        string            `json:"name" gorm:"type:text;not null"`
	Unit        string            `json:"unit" gorm:"type:text;not null"`
	UnitPrice   decimal.Decimal   `json:"unit_price" gorm:"type:numeric(20,4);not null"`
	Description *string           `json:"description,omitempty" gorm:"type:text"`
	Active      bool              `json:"active" gorm:"not null;default:true"`
	CreatedAt   time.Time         `json:"created_at" gorm:"not null"`
	UpdatedAt   time.Time         `json:"updated_at" gorm:"not null"`
}

func (CatalogItem) TableName() string { return "catalog_items" }
