// Package rbac resolves whether a role may perform an action on a subject.
package rbac

import (
	"saas-platform/internal/model"

	"gorm.io/gorm"
)

// Allows reports whether any of the given permissions grants the action
// on the subject. The "manage" action matches every action and the
// "all" subject matches every subject.
func Allows(perms []model.Permission, action, subject string) bool {
	for _, p := range perms {
		actionOK := p.Action == action || p.Action == model.ActionManage
		subjectOK := p.Subject == subject || p.Subject == model.SubjectAll
		if actionOK && subjectOK {
			return true
		}
	}
	return false
}

// Can loads the permissions attached to a role and checks the grant.
func Can(db *gorm.DB, roleID uint, action, subject string) (bool, error) {
	var role model.Role
	if err := db.Preload("Permissions").First(&role, roleID).Error; err != nil {
		return false, err
	}
	return Allows(role.Permissions, action, subject), nil
}
