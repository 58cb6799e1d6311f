package rbac

import (
	"testing"

	"saas-platform/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestAllows(t *testing.T) {
	tests := []struct {
		name    string
		perms   []model.Permission
		action  string
		subject string
		want    bool
	}{
		{
			name:    "exact match",
			perms:   []model.Permission{{Action: "read", Subject: "User"}},
			action:  "read",
			subject: "User",
			want:    true,
		},
		{
			name:    "manage matches any action",
			perms:   []model.Permission{{Action: model.ActionManage, Subject: "User"}},
			action:  "delete",
			subject: "User",
			want:    true,
		},
		{
			name:    "all matches any subject",
			perms:   []model.Permission{{Action: "read", Subject: model.SubjectAll}},
			action:  "read",
			subject: "Tenant",
			want:    true,
		},
		{
			name:    "manage on all is a superuser grant",
			perms:   []model.Permission{{Action: model.ActionManage, Subject: model.SubjectAll}},
			action:  "update",
			subject: "AuditLog",
			want:    true,
		},
		{
			name:    "wrong action denied",
			perms:   []model.Permission{{Action: "read", Subject: "User"}},
			action:  "delete",
			subject: "User",
			want:    false,
		},
		{
			name:    "wrong subject denied",
			perms:   []model.Permission{{Action: "read", Subject: "User"}},
			action:  "read",
			subject: "Role",
			want:    false,
		},
		{
			name: "any grant in the set suffices",
			perms: []model.Permission{
				{Action: "read", Subject: "Role"},
				{Action: "update", Subject: "User"},
			},
			action:  "update",
			subject: "User",
			want:    true,
		},
		{
			name:    "empty permission set denies",
			perms:   nil,
			action:  "read",
			subject: "User",
			want:    false,
		},
		{
			name:    "subject wildcard does not grant other actions",
			perms:   []model.Permission{{Action: "read", Subject: model.SubjectAll}},
			action:  "delete",
			subject: "User",
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Allows(tt.perms, tt.action, tt.subject))
		})
	}
}
