package auth

import (
	"strings"

	"github.com/faisal-mohamed/rfdb-new/internal/workflow"
	"github.com/faisal-mohamed/rfdb-new/pkg/models"
)

// Role is a caller's permission level.
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleApprover Role = "APPROVER"
	RoleEditor   Role = "EDITOR"
	RoleViewer   Role = "VIEWER"
)

// ParseRole maps a claim or header value to a Role. Unknown values are
// VIEWER.
func ParseRole(s string) Role {
	switch r := Role(strings.ToUpper(strings.TrimSpace(s))); r {
	case RoleAdmin, RoleApprover, RoleEditor:
		return r
	default:
		return RoleViewer
	}
}

func (r Role) rank() int {
	switch r {
	case RoleAdmin:
		return 3
	case RoleApprover:
		return 2
	case RoleEditor:
		return 1
	}
	return 0
}

var approverActions = map[workflow.Action]bool{
	workflow.ActionApprove:          true,
	workflow.ActionGenerateDocument: true,
}

// Can reports whether role may run action. Editors process and edit,
// approvers approve and generate, admins do everything.
func (r Role) Can(action workflow.Action) bool {
	switch r {
	case RoleAdmin:
		return true
	case RoleApprover:
		return approverActions[action]
	case RoleEditor:
		return action.Valid() && !approverActions[action]
	}
	return false
}

// CanUpload reports whether role may register documents.
func (r Role) CanUpload() bool {
	return r == RoleAdmin || r == RoleEditor
}

// Authorize returns a *models.ForbiddenError when c may not run action.
func (c Caller) Authorize(action workflow.Action) error {
	if c.Role.Can(action) {
		return nil
	}
	return &models.ForbiddenError{Role: string(c.Role), Action: string(action)}
}
