package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Customer is the live record. Documents keep their own snapshot of it.
type Customer struct {
	ID        snowflake.ID      `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Name      string            `gorm:"not null" json:"name"`
	Email     string            `gorm:"not null;index" json:"email"`
	Phone     string            `gorm:"column:phone" json:"phone,omitempty"`
	Address   string            `gorm:"column:address" json:"address,omitempty"`
	Metadata  datatypes.JSONMap `gorm:"type:json" json:"metadata,omitempty"`
	CreatedAt time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time         `gorm:"not null" json:"updated_at"`
}

func (Customer) TableName() string { return "customers" }
