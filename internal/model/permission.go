package model

import (
	"time"

	"gorm.io/gorm"
)

// Permission is a single grant of an action on a subject.
// The (action, subject) pair is unique across the table.
type Permission struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	Action    string         `json:"action" gorm:"type:varchar(50);not null;uniqueIndex:idx_action_subject"`
	Subject   string         `json:"subject" gorm:"type:varchar(50);not null;uniqueIndex:idx_action_subject"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// Well-known actions. "manage" grants every action on its subject.
const (
	ActionManage = "manage"
	ActionCreate = "create"
	ActionRead   = "read"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// SubjectAll grants a permission on every subject.
const SubjectAll = "all"
