package audit

import "fmt"

// RBAC operations
const (
	OpCreateRole       = "create-role"
	OpUpdateRole       = "update-role"
	OpDeleteRole       = "delete-role"
	OpCreatePermission = "create-permission"
	OpGrantPermission  = "grant-permission"
	OpRevokePermission = "revoke-permission"
	OpAssignRole       = "assign-role"
	OpUnassignRole     = "unassign-role"
)

// RBACEvent represents a change to roles, permissions or role assignments
type RBACEvent struct {
	User         string
	ClientIP     string
	Operation    string
	Target       string
	Success      bool
	ErrorMessage string
}

func (e RBACEvent) MessageID() string {
	return "rbac"
}

func (e RBACEvent) Message() string {
	if e.Success {
		return fmt.Sprintf("%s performed %s on %s", e.User, e.Operation, e.Target)
	}
	msg := fmt.Sprintf("%s tried to perform %s on %s", e.User, e.Operation, e.Target)
	if e.ErrorMessage != "" {
		msg += ": " + e.ErrorMessage
	}
	return msg
}

func (e RBACEvent) Severity() Severity {
	if e.Success {
		return SeverityNotice
	}
	return SeverityWarning
}

func (e RBACEvent) Facility() int {
	return FacilityAuthPriv
}

func (e RBACEvent) StructuredData() map[string]map[string]string {
	return map[string]map[string]string{
		SDIDAuth: {
			"user": e.User,
		},
		SDIDSubject: {
			"target": e.Target,
		},
		SDIDClient: {
			"ip": e.ClientIP,
		},
		SDIDAction: {
			"operation": e.Operation,
			"result":    result(e.Success),
		},
	}
}
