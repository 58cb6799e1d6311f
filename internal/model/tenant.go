package model

import (
	"time"

	"gorm.io/gorm"
)

// Tenant represents a customer account stored in the database.
// Each tenant owns a dedicated Postgres schema named by SchemaName;
// the schema is created and dropped only through the provisioner.
type Tenant struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	Name        string         `json:"name" gorm:"type:varchar(100);uniqueIndex"`
	SchemaName  string         `json:"schema_name" gorm:"type:varchar(63);uniqueIndex"`
	Description string         `json:"description" gorm:"type:text"`
	Active      bool           `json:"active" gorm:"default:true"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}
