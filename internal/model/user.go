package model

import (
	"time"

	"gorm.io/gorm"
)

// User represents the user model stored in the database.
// Every user belongs to exactly one role; TenantID is nil for
// platform-level accounts that are not bound to a tenant.
type User struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	Email     string         `json:"email" gorm:"type:varchar(100);uniqueIndex"`
	Name      string         `json:"name" gorm:"type:varchar(100)"`
	Password  string         `json:"-" gorm:"type:varchar(255)"`
	RoleID    uint           `json:"role_id" gorm:"index;not null"`
	Role      Role           `json:"role,omitempty" gorm:"foreignKey:RoleID"`
	TenantID  *uint          `json:"tenant_id,omitempty" gorm:"index"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}
