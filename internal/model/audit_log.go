package model

import (
	"time"
)

// AuditLog is an append-only record of a mutation, keyed by the acting
// user, the tenant scope and the mutated subject. DataBefore/DataAfter
// hold JSON snapshots supplied by the calling service; rows are never
// updated or deleted by the application.
type AuditLog struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	UserID     uint      `json:"user_id" gorm:"index;not null"`
	TenantID   *uint     `json:"tenant_id,omitempty" gorm:"index"`
	Action     string    `json:"action" gorm:"type:varchar(50);not null;index"`
	Subject    string    `json:"subject" gorm:"type:varchar(50);not null;index"`
	SubjectID  string    `json:"subject_id,omitempty" gorm:"type:varchar(64)"`
	DataBefore string    `json:"data_before,omitempty" gorm:"type:jsonb"`
	DataAfter  string    `json:"data_after,omitempty" gorm:"type:jsonb"`
	ClientInfo string    `json:"client_info,omitempty" gorm:"type:jsonb"`
	CreatedAt  time.Time `json:"created_at"`
}
