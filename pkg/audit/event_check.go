package audit

import "fmt"

// CheckEvent represents a permission check made by the authorization guard
type CheckEvent struct {
	User       string
	ClientIP   string
	Method     string
	Path       string
	Permission string
	Allowed    bool
}

func (e CheckEvent) MessageID() string {
	return "check"
}

func (e CheckEvent) Message() string {
	verdict := "allowed"
	if !e.Allowed {
		verdict = "denied"
	}
	return fmt.Sprintf("%s checked permission %s on %s %s: %s", e.User, e.Permission, e.Method, e.Path, verdict)
}

func (e CheckEvent) Severity() Severity {
	if e.Allowed {
		return SeverityInfo
	}
	return SeverityWarning
}

func (e CheckEvent) Facility() int {
	return FacilityAuthPriv
}

func (e CheckEvent) StructuredData() map[string]map[string]string {
	return map[string]map[string]string{
		SDIDAuth: {
			"user": e.User,
		},
		SDIDSubject: {
			"path":       e.Path,
			"permission": e.Permission,
		},
		SDIDClient: {
			"ip": e.ClientIP,
		},
		SDIDAction: {
			"operation": "check",
			"result":    result(e.Allowed),
		},
	}
}
